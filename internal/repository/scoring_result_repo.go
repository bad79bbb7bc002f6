package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

// ErrUnknownTarget is returned for a target type other than submission or task.
var ErrUnknownTarget = errors.New("unknown scoring target type")

// ScoringResultRepository stores scoring records.
type ScoringResultRepository interface {
	Save(ctx context.Context, result *models.ScoringResult) error
	Latest(ctx context.Context, targetType string, targetID uint) (models.ScoringResult, error)
	History(ctx context.Context, targetType string, targetID uint) ([]models.ScoringResult, error)
}

// NewScoringResultRepository constructs a scoring result repository.
func NewScoringResultRepository(db *gorm.DB) ScoringResultRepository {
	return &scoringResultRepository{db: db}
}

type scoringResultRepository struct {
	db *gorm.DB
}

// Save inserts the record and moves its target to scored in one
// transaction. A missing target rolls the insert back. ScoredAt is
// truncated to microseconds so the caller's copy matches what is read back.
func (r *scoringResultRepository) Save(ctx context.Context, result *models.ScoringResult) error {
	target, err := targetModel(result.TargetType)
	if err != nil {
		return err
	}
	result.ScoredAt = result.ScoredAt.UTC().Truncate(time.Microsecond)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(result).Error; err != nil {
			return fmt.Errorf("insert scoring result: %w", err)
		}

		update := tx.Model(target).Where("id = ?", result.SubmissionID).Updates(map[string]interface{}{
			"status":           models.ScoringStatusScored,
			"latest_result_id": result.ID,
		})
		if update.Error != nil {
			return fmt.Errorf("mark %s scored: %w", result.TargetType, update.Error)
		}
		if update.RowsAffected == 0 {
			return fmt.Errorf("mark %s %d scored: %w", result.TargetType, result.SubmissionID, gorm.ErrRecordNotFound)
		}
		return nil
	})
}

func (r *scoringResultRepository) Latest(ctx context.Context, targetType string, targetID uint) (models.ScoringResult, error) {
	var result models.ScoringResult
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND submission_id = ?", targetType, targetID).
		Order("scored_at DESC").
		Order("id DESC").
		First(&result).Error
	if err != nil {
		return models.ScoringResult{}, err
	}
	return result, nil
}

func (r *scoringResultRepository) History(ctx context.Context, targetType string, targetID uint) ([]models.ScoringResult, error) {
	var results []models.ScoringResult
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND submission_id = ?", targetType, targetID).
		Order("scored_at DESC").
		Order("id DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func targetModel(targetType string) (interface{}, error) {
	switch targetType {
	case models.TargetSubmission:
		return &models.MaterialSubmission{}, nil
	case models.TargetTask:
		return &models.EvaluationTask{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, targetType)
	}
}
