package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

// SubmissionRepository exposes persistence helpers for material submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.MaterialSubmission) error
	GetByID(ctx context.Context, id uint) (models.MaterialSubmission, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
}

// NewSubmissionRepository constructs a submission repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

type submissionRepository struct {
	db *gorm.DB
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.MaterialSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

// GetByID loads the submission with its files in upload order and its template.
func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.MaterialSubmission, error) {
	var submission models.MaterialSubmission
	err := r.db.WithContext(ctx).
		Preload("Files", orderedFiles).
		Preload("Template").
		First(&submission, id).Error
	if err != nil {
		return models.MaterialSubmission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return updateStatus(r.db.WithContext(ctx), &models.MaterialSubmission{}, id, status)
}

func orderedFiles(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("id ASC")
}

func updateStatus(db *gorm.DB, model interface{}, id uint, status string) error {
	result := db.Model(model).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
