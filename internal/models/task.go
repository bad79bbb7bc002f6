package models

import "time"

// EvaluationTask is an evaluation assignment handed to a teacher. Tasks
// carry their own files and are scored through the same pipeline as
// submissions.
type EvaluationTask struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	AssigneeID     uint                `gorm:"not null;index" json:"assignee_id"`
	AssigneeName   string              `gorm:"size:128" json:"assignee_name"`
	Title          string              `gorm:"size:255;not null" json:"title"`
	TemplateID     *uint               `json:"template_id"`
	Template       *EvaluationTemplate `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"template,omitempty"`
	Status         string              `gorm:"size:32;not null;default:pending" json:"status"`
	LatestResultID *uint               `json:"latest_result_id"`
	DueAt          *time.Time          `json:"due_at"`
	Files          []SubmissionFile    `gorm:"foreignKey:TaskID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"files"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// PrimaryFile returns the first file descriptor.
func (t EvaluationTask) PrimaryFile() (SubmissionFile, bool) {
	if len(t.Files) == 0 {
		return SubmissionFile{}, false
	}
	return t.Files[0], true
}
