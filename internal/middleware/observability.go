package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-eval-api/internal/observability"
)

// Observability records Prometheus metrics and a structured access log for
// every /api request.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()
	logger = logger.With().Str("component", "http").Logger()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		if !strings.HasPrefix(c.Path(), "/api/") {
			return err
		}

		route := routeTemplate(c)
		method := c.Method()
		status := c.Response().StatusCode()
		statusLabel := strconv.Itoa(status)

		observability.HTTPRequests().WithLabelValues(method, route, statusLabel).Inc()
		observability.HTTPLatency().WithLabelValues(method, route).Observe(duration.Seconds())
		if status >= fiber.StatusBadRequest {
			observability.HTTPErrors().WithLabelValues(method, route, statusLabel).Inc()
		}

		requestLogger := logger.With().
			Str("correlation_id", GetCorrelationID(c)).
			Str("route", route).
			Str("method", method).
			Int("status", status).
			Float64("latency_ms", float64(duration)/float64(time.Millisecond)).
			Str("latency_bucket", latencyBucket(duration)).
			Logger()

		switch {
		case status >= fiber.StatusInternalServerError:
			requestLogger.Error().Msg("request failed")
		case status >= fiber.StatusBadRequest:
			requestLogger.Warn().Msg("request completed with client error")
		default:
			requestLogger.Info().Msg("request completed")
		}

		return err
	}
}

func routeTemplate(c *fiber.Ctx) string {
	if c.Route() != nil && c.Route().Path != "" {
		return c.Route().Path
	}
	return c.Path()
}

// Scoring calls wait on the model, so the buckets stretch to tens of seconds.
func latencyBucket(duration time.Duration) string {
	switch {
	case duration <= 100*time.Millisecond:
		return "<=100ms"
	case duration <= time.Second:
		return "<=1s"
	case duration <= 5*time.Second:
		return "<=5s"
	case duration <= 30*time.Second:
		return "<=30s"
	default:
		return ">30s"
	}
}
