package ai

import (
	"math"
	"net/http"
	"time"
)

// Decision is what the client does after a failed attempt.
type Decision int

const (
	// DecisionRetry backs off and tries again while budget remains.
	DecisionRetry Decision = iota
	// DecisionAbort surfaces the failure immediately.
	DecisionAbort
	// DecisionAbortAuth surfaces ErrAuthentication immediately.
	DecisionAbortAuth
)

// RetryPolicy bundles the attempt budget, the backoff curve and the
// status-code mapping used by ChatScorer.
type RetryPolicy struct {
	// MaxAttempts is the total number of requests one call may send.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   map[int]struct{}
}

// DefaultRetryPolicy returns three attempts with 1s, 2s backoff.
func DefaultRetryPolicy() RetryPolicy {
	return NewRetryPolicy(3)
}

// NewRetryPolicy builds the standard policy with the given attempt budget.
func NewRetryPolicy(maxAttempts int) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Retryable: map[int]struct{}{
			http.StatusTooManyRequests:     {},
			http.StatusInternalServerError: {},
			http.StatusBadGateway:          {},
			http.StatusServiceUnavailable:  {},
			http.StatusGatewayTimeout:      {},
		},
	}
}

// Backoff returns the delay after the given failed attempt (1-based):
// BaseDelay * 2^(attempt-1), capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := time.Duration(float64(p.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// ForStatus maps an HTTP status code onto a retry decision.
func (p RetryPolicy) ForStatus(status int) Decision {
	if status == http.StatusUnauthorized {
		return DecisionAbortAuth
	}
	if _, ok := p.Retryable[status]; ok {
		return DecisionRetry
	}
	return DecisionAbort
}

// MaxWallTime bounds one call: every attempt may use the full timeout and
// every gap may use the largest backoff.
func (p RetryPolicy) MaxWallTime(timeout time.Duration) time.Duration {
	return time.Duration(p.MaxAttempts) * (timeout + p.Backoff(p.MaxAttempts))
}
