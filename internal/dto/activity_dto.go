package dto

import (
	"time"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ActivityListRequest narrows an activity listing.
type ActivityListRequest struct {
	Page       int
	PageSize   int
	Action     string
	EntityType string
	EntityID   uint
}

// ActivityResponse serialises an activity log entry.
type ActivityResponse struct {
	ID         uint                   `json:"id"`
	ActorID    *uint                  `json:"actor_id,omitempty"`
	ActorRole  string                 `json:"actor_role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   uint                   `json:"entity_id"`
	Details    map[string]interface{} `json:"details"`
	CreatedAt  time.Time              `json:"created_at"`
}

// ActivityListResponse wraps a page of activity entries.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewActivityResponse converts a model into an activity DTO.
func NewActivityResponse(entry models.ActivityLog) ActivityResponse {
	details := map[string]interface{}{}
	for key, value := range entry.Details {
		details[key] = value
	}
	return ActivityResponse{
		ID:         entry.ID,
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Details:    details,
		CreatedAt:  entry.CreatedAt,
	}
}
