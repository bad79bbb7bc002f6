package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

// ActivityLogFilter narrows activity log queries.
type ActivityLogFilter struct {
	Page       int
	PageSize   int
	Action     string
	EntityType string
	EntityID   *uint
}

// ActivityLogRepository persists scoring events.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs the activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List returns entries in emission order.
func (r *activityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivityLog{})

	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var entries []models.ActivityLog
	if err := query.Order("created_at ASC").Order("id ASC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
