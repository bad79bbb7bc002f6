package models

import "time"

// Scoring lifecycle of a submission or task.
const (
	ScoringStatusPending = "pending"
	ScoringStatusScoring = "scoring"
	ScoringStatusScored  = "scored"
	ScoringStatusFailed  = "failed"
)

// Scoring target types.
const (
	TargetSubmission = "submission"
	TargetTask       = "task"
)

// MaterialSubmission is a bundle of teaching documents uploaded by a teacher.
type MaterialSubmission struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	TeacherID      uint                `gorm:"not null;index" json:"teacher_id"`
	TeacherName    string              `gorm:"size:128" json:"teacher_name"`
	Title          string              `gorm:"size:255" json:"title"`
	TemplateID     *uint               `json:"template_id"`
	Template       *EvaluationTemplate `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"template,omitempty"`
	Status         string              `gorm:"size:32;not null;default:pending" json:"status"`
	LatestResultID *uint               `json:"latest_result_id"`
	Files          []SubmissionFile    `gorm:"foreignKey:SubmissionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"files"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// SubmissionFile describes one uploaded document. It belongs either to a
// submission or to a task.
type SubmissionFile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID *uint     `gorm:"index" json:"submission_id,omitempty"`
	TaskID       *uint     `gorm:"index" json:"task_id,omitempty"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Path         string    `gorm:"size:1024;not null" json:"path"`
	FileType     string    `gorm:"size:64" json:"file_type"`
	Position     int       `gorm:"not null;default:0" json:"position"`
	CreatedAt    time.Time `json:"created_at"`
}

// PrimaryFile returns the first file descriptor.
func (s MaterialSubmission) PrimaryFile() (SubmissionFile, bool) {
	if len(s.Files) == 0 {
		return SubmissionFile{}, false
	}
	return s.Files[0], true
}
