package models

import (
	"time"

	"gorm.io/datatypes"
)

// Scoring activity actions.
const (
	ActionScoringStarted   = "scoring_started"
	ActionScoringCompleted = "scoring_completed"
	ActionScoringFailed    = "scoring_failed"
)

// ActivityLog is an append-only event recorded against a scoring target.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    *uint             `json:"actor_id,omitempty"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	EntityType string            `gorm:"size:32;not null;index:idx_activity_entity,priority:1" json:"entity_type"`
	EntityID   uint              `gorm:"not null;index:idx_activity_entity,priority:2" json:"entity_id"`
	Details    datatypes.JSONMap `gorm:"type:json" json:"details"`
	CreatedAt  time.Time         `json:"created_at"`
}
