package dto

import (
	"time"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

// BonusItemRequest is one caller-supplied bonus adjustment.
type BonusItemRequest struct {
	Name  string  `json:"name" validate:"required,max=128"`
	Score float64 `json:"score" validate:"gte=0"`
}

// ScoreRequest triggers scoring of one submission or task.
type ScoreRequest struct {
	Target     string             `json:"target" validate:"omitempty,oneof=submission task"`
	BonusItems []BonusItemRequest `json:"bonus_items" validate:"omitempty,max=20,dive"`
}

// BatchScoreRequest triggers scoring of many ids.
type BatchScoreRequest struct {
	IDs        []uint             `json:"ids" validate:"required,min=1,max=200,dive,gt=0"`
	Target     string             `json:"target" validate:"omitempty,oneof=submission task"`
	BonusItems []BonusItemRequest `json:"bonus_items" validate:"omitempty,max=20,dive"`
}

// ScoreDetailResponse is the per-criterion breakdown.
type ScoreDetailResponse struct {
	Indicator string  `json:"indicator"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"max_score"`
	Reason    string  `json:"reason"`
}

// BonusDetailResponse is an effective bonus item.
type BonusDetailResponse struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// ScoringResultResponse serialises a stored scoring record.
type ScoringResultResponse struct {
	ID            uint                  `json:"id"`
	TargetType    string                `json:"target_type"`
	SubmissionID  uint                  `json:"submission_id"`
	FileType      string                `json:"file_type"`
	FileName      string                `json:"file_name"`
	TotalScore    float64               `json:"total_score"`
	BaseScore     float64               `json:"base_score"`
	BonusScore    float64               `json:"bonus_score"`
	FinalScore    float64               `json:"final_score"`
	Grade         string                `json:"grade"`
	GradeLabel    string                `json:"grade_label"`
	VetoTriggered bool                  `json:"veto_triggered"`
	VetoReason    string                `json:"veto_reason,omitempty"`
	ScoreDetails  []ScoreDetailResponse `json:"score_details"`
	BonusDetails  []BonusDetailResponse `json:"bonus_details"`
	Summary       string                `json:"summary"`
	ScoringType   string                `json:"scoring_type"`
	Model         string                `json:"model,omitempty"`
	ScoredAt      time.Time             `json:"scored_at"`
	CacheHit      bool                  `json:"cache_hit,omitempty"`
}

// BatchItemResponse reports the outcome for one id of a batch.
type BatchItemResponse struct {
	ID        uint                   `json:"id"`
	Success   bool                   `json:"success"`
	Result    *ScoringResultResponse `json:"result,omitempty"`
	Error     string                 `json:"error,omitempty"`
	ErrorKind string                 `json:"error_kind,omitempty"`
}

// BatchScoreResponse accumulates a batch run.
type BatchScoreResponse struct {
	BatchID   string              `json:"batch_id"`
	Total     int                 `json:"total"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Items     []BatchItemResponse `json:"items"`
}

// NewScoringResultResponse converts a stored record into its DTO.
func NewScoringResultResponse(result models.ScoringResult, gradeLabel string) ScoringResultResponse {
	details := make([]ScoreDetailResponse, 0, len(result.ScoreDetails))
	for _, detail := range result.ScoreDetails {
		details = append(details, ScoreDetailResponse(detail))
	}
	bonus := make([]BonusDetailResponse, 0, len(result.BonusDetails))
	for _, item := range result.BonusDetails {
		bonus = append(bonus, BonusDetailResponse(item))
	}

	return ScoringResultResponse{
		ID:            result.ID,
		TargetType:    result.TargetType,
		SubmissionID:  result.SubmissionID,
		FileType:      result.FileType,
		FileName:      result.FileName,
		TotalScore:    result.TotalScore,
		BaseScore:     result.BaseScore,
		BonusScore:    result.BonusScore,
		FinalScore:    result.FinalScore,
		Grade:         result.Grade,
		GradeLabel:    gradeLabel,
		VetoTriggered: result.VetoTriggered,
		VetoReason:    result.VetoReason,
		ScoreDetails:  details,
		BonusDetails:  bonus,
		Summary:       result.Summary,
		ScoringType:   result.ScoringType,
		Model:         result.Model,
		ScoredAt:      result.ScoredAt,
	}
}
