package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-eval-api/internal/bootstrap"
	"github.com/noah-isme/gema-eval-api/internal/config"
	"github.com/noah-isme/gema-eval-api/internal/handler"
	"github.com/noah-isme/gema-eval-api/internal/middleware"
	"github.com/noah-isme/gema-eval-api/internal/observability"
	"github.com/noah-isme/gema-eval-api/internal/router"
	"github.com/noah-isme/gema-eval-api/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := observability.NewLogger("info", "json")
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat).With().Str("service", cfg.AppName).Logger()

	container, err := bootstrap.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise scoring engine")
	}
	defer container.Close()

	scoringHandler := handler.NewScoringHandler(container.Scoring, container.Validator, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status := fiber.StatusInternalServerError
			if fiberErr, ok := err.(*fiber.Error); ok {
				status = fiberErr.Code
			}
			return utils.SendError(c, status, err.Error())
		},
	})

	middleware.Register(app, middleware.Config{Logger: logger})

	deps := router.Dependencies{
		ScoringHandler: scoringHandler,
		HealthProbes:   container.HealthProbes(),
		BatchRateLimit: 10,
	}
	if cfg.JWTSecret != "" {
		deps.JWTMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	} else {
		logger.Warn().Msg("jwt secret not configured, scoring routes are unauthenticated")
	}
	router.Register(app, cfg, deps)

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Msg("http server listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
