package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-eval-api/internal/bootstrap"
	"github.com/noah-isme/gema-eval-api/internal/config"
	"github.com/noah-isme/gema-eval-api/internal/observability"
	"github.com/noah-isme/gema-eval-api/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(connect, os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// connect loads configuration and wires the scoring service against the
// configured database and LLM endpoint.
func connect(ctx context.Context, verbose bool) (service.ScoringService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = zerolog.LevelDebugValue
	}
	logger := observability.NewLogger(level, "console")

	container, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return container.Scoring, container.Close, nil
}
