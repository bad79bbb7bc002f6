package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

// TaskRepository exposes persistence helpers for evaluation tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *models.EvaluationTask) error
	GetByID(ctx context.Context, id uint) (models.EvaluationTask, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
}

// NewTaskRepository constructs a task repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

type taskRepository struct {
	db *gorm.DB
}

func (r *taskRepository) Create(ctx context.Context, task *models.EvaluationTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepository) GetByID(ctx context.Context, id uint) (models.EvaluationTask, error) {
	var task models.EvaluationTask
	err := r.db.WithContext(ctx).
		Preload("Files", orderedFiles).
		Preload("Template").
		First(&task, id).Error
	if err != nil {
		return models.EvaluationTask{}, err
	}
	return task, nil
}

func (r *taskRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return updateStatus(r.db.WithContext(ctx), &models.EvaluationTask{}, id, status)
}
