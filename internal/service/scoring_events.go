package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

// ScoringEvent is broadcast after each scoring run.
type ScoringEvent struct {
	Type       string    `json:"type"`
	TargetType string    `json:"target_type"`
	TargetID   uint      `json:"target_id"`
	ResultID   uint      `json:"result_id,omitempty"`
	FinalScore float64   `json:"final_score,omitempty"`
	Grade      string    `json:"grade,omitempty"`
	Vetoed     bool      `json:"vetoed,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	BatchID    string    `json:"batch_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Event types.
const (
	EventScoringCompleted = "scoring.completed"
	EventScoringFailed    = "scoring.failed"
)

// EventPublisher delivers scoring events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event ScoringEvent) error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

// Publish implements EventPublisher.
func (NoopPublisher) Publish(context.Context, ScoringEvent) error { return nil }

// NATSPublisher publishes events as JSON on a subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher returns a publisher, or a NoopPublisher when conn is nil.
func NewNATSPublisher(conn *nats.Conn, subject string) EventPublisher {
	if conn == nil || subject == "" {
		return NoopPublisher{}
	}
	return &NATSPublisher{conn: conn, subject: subject}
}

// Publish implements EventPublisher.
func (p *NATSPublisher) Publish(ctx context.Context, event ScoringEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject+"."+event.TargetType, payload)
}
