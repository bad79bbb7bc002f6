package models

import (
	"time"

	"gorm.io/datatypes"
)

// ScoringTypeAuto marks records produced by the automatic engine.
const ScoringTypeAuto = "auto"

// ScoreDetail is the stored per-criterion score.
type ScoreDetail struct {
	Indicator string  `json:"indicator"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"max_score"`
	Reason    string  `json:"reason"`
}

// BonusDetail is the stored effective bonus item.
type BonusDetail struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// ScoringResult is one scoring run for a submission or task. Records are
// append-only; re-scoring adds a new row.
type ScoringResult struct {
	ID            uint                             `gorm:"primaryKey" json:"id"`
	TargetType    string                           `gorm:"size:16;not null;default:submission;index:idx_scoring_target,priority:1" json:"target_type"`
	SubmissionID  uint                             `gorm:"not null;index:idx_scoring_target,priority:2" json:"submission_id"`
	FileType      string                           `gorm:"size:64" json:"file_type"`
	FileName      string                           `gorm:"size:255" json:"file_name"`
	TotalScore    float64                          `gorm:"not null" json:"total_score"`
	BaseScore     float64                          `gorm:"not null" json:"base_score"`
	BonusScore    float64                          `gorm:"not null" json:"bonus_score"`
	FinalScore    float64                          `gorm:"not null" json:"final_score"`
	Grade         string                           `gorm:"size:16;not null" json:"grade"`
	ScoreDetails  datatypes.JSONSlice[ScoreDetail] `gorm:"type:json" json:"score_details"`
	BonusDetails  datatypes.JSONSlice[BonusDetail] `gorm:"type:json" json:"bonus_details"`
	VetoTriggered bool                             `gorm:"not null;default:false" json:"veto_triggered"`
	VetoReason    string                           `gorm:"type:text" json:"veto_reason"`
	ScoringType   string                           `gorm:"size:16;not null;default:auto" json:"scoring_type"`
	Summary       string                           `gorm:"type:text" json:"summary"`
	Model         string                           `gorm:"size:64" json:"model"`
	Attempts      int                              `gorm:"not null;default:1" json:"attempts"`
	ScoredAt      time.Time                        `gorm:"not null;index" json:"scored_at"`
	CreatedAt     time.Time                        `json:"created_at"`
}
