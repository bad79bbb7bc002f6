package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-eval-api/internal/utils"
)

// Roles allowed to trigger scoring and read results.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

// RequireRole ensures that the authenticated user possesses one of the allowed roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := strings.ToLower(strings.TrimSpace(role)); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		if c.Locals(LocalUserID) == nil && c.Locals(LocalUserRole) == nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if _, ok := allowed[roleValue(c.Locals(LocalUserRole))]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

func roleValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
	}
}
