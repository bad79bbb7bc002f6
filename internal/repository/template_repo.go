package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

// TemplateRepository reads evaluation templates.
type TemplateRepository interface {
	Create(ctx context.Context, template *models.EvaluationTemplate) error
	GetByID(ctx context.Context, id uint) (models.EvaluationTemplate, error)
	ListWithCriteria(ctx context.Context) ([]models.EvaluationTemplate, error)
}

// NewTemplateRepository constructs a template repository.
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

type templateRepository struct {
	db *gorm.DB
}

func (r *templateRepository) Create(ctx context.Context, template *models.EvaluationTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

func (r *templateRepository) GetByID(ctx context.Context, id uint) (models.EvaluationTemplate, error) {
	var template models.EvaluationTemplate
	if err := r.db.WithContext(ctx).First(&template, id).Error; err != nil {
		return models.EvaluationTemplate{}, err
	}
	return template, nil
}

// ListWithCriteria returns templates that declare their own criteria.
func (r *templateRepository) ListWithCriteria(ctx context.Context) ([]models.EvaluationTemplate, error) {
	var templates []models.EvaluationTemplate
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&templates).Error; err != nil {
		return nil, err
	}

	filtered := templates[:0]
	for _, template := range templates {
		if len(template.Criteria) > 0 {
			filtered = append(filtered, template)
		}
	}
	return filtered, nil
}
