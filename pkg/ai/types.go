package ai

import "context"

// VetoCheck reports whether the model observed a veto item.
type VetoCheck struct {
	Triggered bool   `json:"triggered"`
	Reason    string `json:"reason"`
}

// IndicatorScore is the model's score for one rubric criterion.
type IndicatorScore struct {
	Indicator string  `json:"indicator"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"max_score"`
	Reason    string  `json:"reason"`
}

// ScoringRequest carries a fully rendered prompt and the scale it targets.
type ScoringRequest struct {
	Prompt     string
	TotalScore float64
}

// ScoringResponse is the validated object returned by the model.
// GradeSuggestion is normalised to Excellent, Good, Pass or Fail.
type ScoringResponse struct {
	VetoCheck       VetoCheck        `json:"veto_check"`
	ScoreDetails    []IndicatorScore `json:"score_details"`
	BaseScore       float64          `json:"base_score"`
	GradeSuggestion string           `json:"grade_suggestion"`
	Summary         string           `json:"summary"`
	Model           string           `json:"-"`
	Attempts        int              `json:"-"`
}

// Scorer describes an LLM capable of scoring teaching material.
type Scorer interface {
	Score(ctx context.Context, req ScoringRequest) (ScoringResponse, error)
}
