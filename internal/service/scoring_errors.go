package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/gema-eval-api/internal/repository"
	"github.com/noah-isme/gema-eval-api/internal/storage"
	"github.com/noah-isme/gema-eval-api/pkg/ai"
	"github.com/noah-isme/gema-eval-api/pkg/extract"
)

var (
	// ErrSubmissionNotFound indicates the id matched no submission or task,
	// or the match carries no files.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrResultNotFound indicates the target has never been scored.
	ErrResultNotFound = errors.New("scoring result not found")
	// ErrInvalidTarget indicates an unknown target discriminator.
	ErrInvalidTarget = errors.New("invalid scoring target")
	// ErrScoringFailed is matched by every ScoringFailedError.
	ErrScoringFailed = errors.New("scoring failed")
)

// Error kinds reported in scoring_failed details and batch items.
const (
	KindInput          = "input"
	KindParsing        = "parsing"
	KindTransport      = "transport"
	KindAuthentication = "authentication"
	KindContract       = "contract"
	KindPersistence    = "persistence"
	KindInternal       = "internal"
)

// ScoringFailedError wraps the cause of a failed scoring run.
type ScoringFailedError struct {
	TargetType string
	TargetID   uint
	Kind       string
	Err        error
}

func (e *ScoringFailedError) Error() string {
	return fmt.Sprintf("scoring %s %d failed (%s): %v", e.TargetType, e.TargetID, e.Kind, e.Err)
}

func (e *ScoringFailedError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrScoringFailed.
func (e *ScoringFailedError) Is(target error) bool { return target == ErrScoringFailed }

// persistenceError marks failures writing the scoring record.
type persistenceError struct{ err error }

func (e persistenceError) Error() string { return e.err.Error() }
func (e persistenceError) Unwrap() error { return e.err }

// ErrorKind classifies err into the scoring error taxonomy.
func ErrorKind(err error) string {
	var persist persistenceError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSubmissionNotFound),
		errors.Is(err, storage.ErrFileNotFound),
		errors.Is(err, extract.ErrFileNotFound),
		errors.Is(err, extract.ErrEmptyFile),
		errors.Is(err, extract.ErrUnsupportedFormat),
		errors.Is(err, ErrInvalidTarget):
		return KindInput
	case errors.Is(err, extract.ErrFileCorrupted):
		return KindParsing
	case errors.Is(err, ai.ErrAuthentication):
		return KindAuthentication
	case errors.Is(err, ai.ErrAPICall), errors.Is(err, ai.ErrAPITimeout),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTransport
	case errors.Is(err, ai.ErrValidation):
		return KindContract
	case errors.As(err, &persist), errors.Is(err, repository.ErrUnknownTarget):
		return KindPersistence
	default:
		return KindInternal
	}
}
