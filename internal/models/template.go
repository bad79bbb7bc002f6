package models

import (
	"time"

	"gorm.io/datatypes"
)

// DefaultTotalScore applies when a template omits its total.
const DefaultTotalScore = 100

// TemplateCriterion is one weighted line of a persisted rubric.
type TemplateCriterion struct {
	Name     string  `json:"name"`
	MaxScore float64 `json:"max_score"`
}

// EvaluationTemplate is an administrator-defined rubric distributed to teachers.
type EvaluationTemplate struct {
	ID         uint                                   `gorm:"primaryKey" json:"id"`
	Name       string                                 `gorm:"size:255;not null" json:"name"`
	FileType   string                                 `gorm:"size:64;not null;uniqueIndex" json:"file_type"`
	TotalScore int                                    `gorm:"not null;default:100" json:"total_score"`
	Criteria   datatypes.JSONSlice[TemplateCriterion] `gorm:"type:json" json:"criteria"`
	Vetoes     datatypes.JSONSlice[string]            `gorm:"type:json" json:"vetoes"`
	CreatedAt  time.Time                              `json:"created_at"`
	UpdatedAt  time.Time                              `json:"updated_at"`
}

// EffectiveTotal returns TotalScore, or fallback when the template leaves
// it unset. A non-positive fallback means DefaultTotalScore.
func (t EvaluationTemplate) EffectiveTotal(fallback float64) float64 {
	if t.TotalScore > 0 {
		return float64(t.TotalScore)
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultTotalScore
}

// CriteriaTotal sums the declared criteria caps.
func (t EvaluationTemplate) CriteriaTotal() float64 {
	var total float64
	for _, criterion := range t.Criteria {
		total += criterion.MaxScore
	}
	return total
}
