package ai

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAuthentication indicates the endpoint rejected the API key.
	ErrAuthentication = errors.New("llm authentication failed")
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("llm response failed validation")
	// ErrAPICall is matched by every APIError.
	ErrAPICall = errors.New("llm api call failed")
	// ErrAPITimeout is matched by every TimeoutError.
	ErrAPITimeout = errors.New("llm api call timed out")
)

// APIError is a non-retryable HTTP failure or an exhausted retry budget.
type APIError struct {
	StatusCode int
	Attempts   int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("llm api call failed with status %d after %d attempt(s): %v", e.StatusCode, e.Attempts, e.Err)
	}
	return fmt.Sprintf("llm api call failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrAPICall.
func (e *APIError) Is(target error) bool { return target == ErrAPICall }

// TimeoutError reports that every attempt ran into the per-attempt deadline
// or the last one did.
type TimeoutError struct {
	Attempts int
	Timeout  time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("llm api call timed out after %d attempt(s) of %s: %v", e.Attempts, e.Timeout, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrAPITimeout.
func (e *TimeoutError) Is(target error) bool { return target == ErrAPITimeout }

// ValidationError describes a model response that breaks the output contract.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid llm response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid llm response: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(reason string, err error) error {
	return &ValidationError{Reason: reason, Err: err}
}
