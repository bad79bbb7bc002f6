package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderCorrelationID carries the request correlation id in both directions.
const HeaderCorrelationID = "X-Correlation-ID"

type correlationKey struct{}

// CorrelationID reuses X-Correlation-ID or X-Request-ID from the caller and
// mints a UUID otherwise. The id is echoed back and bound to the user context
// so scoring logs and spans can carry it.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(HeaderCorrelationID))
		if id == "" {
			id = strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals("correlation_id", id)
		c.Set(HeaderCorrelationID, id)
		c.SetUserContext(ContextWithCorrelation(c.UserContext(), id))

		return c.Next()
	}
}

// CorrelationIDFromContext extracts the correlation identifier from context, if present.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// GetCorrelationID returns the correlation identifier bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals("correlation_id").(string); ok {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

// ContextWithCorrelation attaches the correlation identifier to ctx.
func ContextWithCorrelation(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, correlationID)
}
