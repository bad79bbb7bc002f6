package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-eval-api/internal/config"
	"github.com/noah-isme/gema-eval-api/internal/handler"
	"github.com/noah-isme/gema-eval-api/internal/middleware"
	"github.com/noah-isme/gema-eval-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ScoringHandler *handler.ScoringHandler
	HealthProbes   map[string]handler.HealthProbe
	JWTMiddleware  fiber.Handler
	// BatchRateLimit caps batch requests per caller per minute. Zero disables it.
	BatchRateLimit int
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler(nil))

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	if deps.ScoringHandler == nil {
		return
	}

	// Without a JWT middleware, auth is disabled and so are the role guards.
	passthrough := func(c *fiber.Ctx) error { return c.Next() }
	jwtMiddleware, readGuard, writeGuard := deps.JWTMiddleware, fiber.Handler(passthrough), fiber.Handler(passthrough)
	if jwtMiddleware == nil {
		jwtMiddleware = passthrough
	} else {
		readGuard = middleware.RequireRole(middleware.RoleAdmin, middleware.RoleTeacher)
		writeGuard = middleware.RequireRole(middleware.RoleAdmin)
	}

	scoring := api.Group("/scoring", jwtMiddleware)

	var batchGuards []fiber.Handler
	if deps.BatchRateLimit > 0 {
		batchGuards = append(batchGuards, middleware.RateLimit("scoring_batch", deps.BatchRateLimit, time.Minute))
	}

	// Read routes first so the admin-only guard below does not shadow them.
	read := scoring.Group("", readGuard)
	deps.ScoringHandler.RegisterRead(read)

	write := scoring.Group("", writeGuard)
	deps.ScoringHandler.RegisterWrite(write, batchGuards...)
}
