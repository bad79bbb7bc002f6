package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "scoring_duration_seconds",
		Help:      "Duration of LLM scoring calls including retries",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "scoring_failures_total",
		Help:      "Number of LLM scoring failures",
	}, []string{"model", "reason"})

	aiAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "request_attempts_total",
		Help:      "Number of chat completion requests sent",
	}, []string{"model", "outcome"})
)

var errNoChoices = errors.New("no choices returned from llm endpoint")

// ChatConfig defines configuration options for the chat-completion scorer.
type ChatConfig struct {
	EndpointURL string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	Policy      RetryPolicy
	HTTPClient  *http.Client
	Logger      zerolog.Logger
}

// ChatScorer implements Scorer against an OpenAI-compatible chat endpoint.
type ChatScorer struct {
	client *openai.Client
	cfg    ChatConfig
	tracer trace.Tracer
	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewChatScorer builds a scorer using the provided configuration.
func NewChatScorer(cfg ChatConfig) (*ChatScorer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	if cfg.EndpointURL == "" {
		return nil, fmt.Errorf("llm endpoint url is required")
	}

	if cfg.Model == "" {
		cfg.Model = "deepseek-chat"
	}
	if cfg.MaxTokens < 2000 {
		cfg.MaxTokens = 2000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Policy.MaxAttempts < 1 {
		cfg.Policy = DefaultRetryPolicy()
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = baseURL(cfg.EndpointURL)
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	} else {
		config.HTTPClient = &http.Client{}
	}

	return &ChatScorer{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-eval-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "llm_client").Str("model", cfg.Model).Logger(),
		sleep:  sleepContext,
	}, nil
}

// baseURL turns a full chat completion URL into the client base URL.
func baseURL(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	return strings.TrimSuffix(endpoint, "/chat/completions")
}

// Score sends the prompt, retrying transient failures, and validates the reply.
func (s *ChatScorer) Score(parent context.Context, req ScoringRequest) (ScoringResponse, error) {
	ctx, span := s.tracer.Start(parent, "openai.score", trace.WithAttributes(
		attribute.String("model", s.cfg.Model),
		attribute.Int("prompt_chars", len(req.Prompt)),
	))
	defer span.End()

	start := time.Now()
	content, attempts, err := s.complete(ctx, req.Prompt)
	aiDuration.WithLabelValues(s.cfg.Model).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("attempts", attempts))
	if err != nil {
		aiFailures.WithLabelValues(s.cfg.Model, failureReason(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ScoringResponse{}, err
	}

	result, err := ParseScoringResponse(content, req.TotalScore)
	if err != nil {
		aiFailures.WithLabelValues(s.cfg.Model, "validation").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn().Err(err).Int("content_chars", len(content)).Msg("llm response rejected")
		return ScoringResponse{}, err
	}

	result.Model = s.cfg.Model
	result.Attempts = attempts
	return result, nil
}

func (s *ChatScorer) complete(ctx context.Context, prompt string) (string, int, error) {
	var (
		lastErr    error
		lastStatus int
		timedOut   bool
	)

	policy := s.cfg.Policy
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		content, err := s.attempt(ctx, prompt)
		if err == nil {
			aiAttempts.WithLabelValues(s.cfg.Model, "success").Inc()
			if attempt > 1 {
				s.logger.Info().Int("attempt", attempt).Msg("llm call succeeded after retry")
			}
			return content, attempt, nil
		}
		aiAttempts.WithLabelValues(s.cfg.Model, "error").Inc()

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", attempt, fmt.Errorf("llm call cancelled: %w", ctxErr)
		}
		if errors.Is(err, errNoChoices) {
			return "", attempt, invalid("response envelope", err)
		}

		status, isTimeout, isNetwork := classify(err)
		switch {
		case status != 0:
			switch policy.ForStatus(status) {
			case DecisionAbortAuth:
				return "", attempt, fmt.Errorf("%w: %v", ErrAuthentication, err)
			case DecisionAbort:
				return "", attempt, &APIError{StatusCode: status, Attempts: attempt, Err: err}
			}
		case isTimeout, isNetwork:
		default:
			return "", attempt, &APIError{Attempts: attempt, Err: err}
		}

		lastErr, lastStatus, timedOut = err, status, isTimeout
		if attempt == policy.MaxAttempts {
			break
		}

		delay := policy.Backoff(attempt)
		s.logger.Warn().Err(err).Int("attempt", attempt).Int("status", status).Dur("backoff", delay).Msg("llm call failed, retrying")
		if err := s.sleep(ctx, delay); err != nil {
			return "", attempt, fmt.Errorf("llm call cancelled during backoff: %w", err)
		}
	}

	if timedOut {
		return "", policy.MaxAttempts, &TimeoutError{Attempts: policy.MaxAttempts, Timeout: s.cfg.Timeout, Err: lastErr}
	}
	return "", policy.MaxAttempts, &APIError{StatusCode: lastStatus, Attempts: policy.MaxAttempts, Err: lastErr}
}

func (s *ChatScorer) attempt(parent context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.Timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: requestTemperature(s.cfg.Temperature),
		Stream:      false,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// requestTemperature keeps a zero temperature on the wire; the client
// drops the field when it is exactly 0.
func requestTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// classify extracts the HTTP status of a failed attempt, or flags it as a
// timeout or a connection-level failure.
func classify(err error) (status int, timeout bool, network bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, false, false
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, false, false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return 0, true, false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return 0, true, false
		}
		return 0, false, true
	}
	return 0, false, false
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrAPITimeout):
		return "timeout"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "api"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
