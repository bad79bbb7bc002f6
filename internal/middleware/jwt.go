package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-eval-api/internal/utils"
)

// Locals keys populated from verified tokens.
const (
	LocalUserID   = "user_id"
	LocalUserRole = "user_role"
)

// JWTProtected validates HMAC signed bearer tokens and stores the caller's
// id and role in the request locals.
func JWTProtected(secret string) fiber.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))

	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		scheme, tokenString, ok := strings.Cut(authorization, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		claims := jwt.MapClaims{}
		token, err := parser.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(t *jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		if userID, ok := userIDFromClaims(claims); ok {
			c.Locals(LocalUserID, userID)
		}
		if role := roleFromClaims(claims); role != "" {
			c.Locals(LocalUserRole, role)
		}

		return c.Next()
	}
}

func userIDFromClaims(claims jwt.MapClaims) (uint, bool) {
	for _, key := range []string{"sub", "user_id", "id"} {
		value, ok := claims[key]
		if !ok {
			continue
		}
		if id, err := toUint(value); err == nil {
			return id, true
		}
	}
	return 0, false
}

func toUint(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("negative subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	default:
		return 0, fmt.Errorf("unsupported subject type %T", value)
	}
}

// roleFromClaims reads "role" or the first non-empty entry of "roles".
func roleFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"role", "roles"} {
		switch v := claims[key].(type) {
		case string:
			if role := strings.ToLower(strings.TrimSpace(v)); role != "" {
				return role
			}
		case []interface{}:
			for _, item := range v {
				if str, ok := item.(string); ok {
					if role := strings.ToLower(strings.TrimSpace(str)); role != "" {
						return role
					}
				}
			}
		}
	}
	return ""
}
