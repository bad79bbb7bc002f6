package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-eval-api/internal/config"
	"github.com/noah-isme/gema-eval-api/internal/database"
	"github.com/noah-isme/gema-eval-api/internal/handler"
	"github.com/noah-isme/gema-eval-api/internal/models"
	"github.com/noah-isme/gema-eval-api/internal/prompt"
	"github.com/noah-isme/gema-eval-api/internal/repository"
	"github.com/noah-isme/gema-eval-api/internal/rubric"
	"github.com/noah-isme/gema-eval-api/internal/scoring"
	"github.com/noah-isme/gema-eval-api/internal/service"
	"github.com/noah-isme/gema-eval-api/internal/storage"
	"github.com/noah-isme/gema-eval-api/pkg/ai"
	"github.com/noah-isme/gema-eval-api/pkg/extract"
)

// Container holds the wired scoring engine and the connections behind it.
type Container struct {
	DB        *gorm.DB
	Redis     *redis.Client
	NATS      *nats.Conn
	Registry  *rubric.Registry
	Scoring   service.ScoringService
	Validator *validator.Validate
}

// New connects every backing store and wires the scoring service.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Container, error) {
	db, err := database.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	container := &Container{DB: db, Validator: validator.New(validator.WithRequiredStructEnabled())}

	container.Redis, err = database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		// The cache is optional; a broken redis must not stop scoring.
		logger.Warn().Err(err).Msg("redis unavailable, result cache disabled")
	}

	container.NATS, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, scoring events disabled")
	}

	templates := repository.NewTemplateRepository(db)
	container.Registry, err = loadRegistry(ctx, cfg, templates, logger)
	if err != nil {
		container.Close()
		return nil, err
	}

	policy := ai.NewRetryPolicy(cfg.LLM.MaxRetries)
	scorer, err := ai.NewChatScorer(ai.ChatConfig{
		EndpointURL: cfg.LLM.EndpointURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		Policy:      policy,
		Logger:      logger,
	})
	if err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	logger.Info().Stringer("llm", cfg.LLM).Msg("llm client configured")

	roots := make([]storage.Root, 0, len(cfg.StorageRoots))
	for _, root := range cfg.StorageRoots {
		roots = append(roots, storage.Root{Prefix: root.Prefix, Dir: root.Root})
	}

	container.Scoring = service.NewScoringService(service.ScoringDependencies{
		Submissions: repository.NewSubmissionRepository(db),
		Tasks:       repository.NewTaskRepository(db),
		Results:     repository.NewScoringResultRepository(db),
		Activity:    service.NewActivityService(repository.NewActivityLogRepository(db), logger),
		Registry:    container.Registry,
		Prompts:     prompt.NewBuilder(container.Registry),
		Extractor:   extract.New(logger),
		Scorer:      scorer,
		Resolver:    storage.NewResolver(roots),
		Cache:       container.Redis,
		Events:      service.NewNATSPublisher(container.NATS, cfg.NATSSubject),
	}, service.ScoringConfig{
		DefaultTotalScore:  float64(cfg.Scoring.DefaultTotalScore),
		ExtensionFileTypes: cfg.Scoring.ExtensionFileTypes,
		Bonus:              scoring.BonusPolicy{MaxItem: cfg.Bonus.MaxItem, MaxTotal: cfg.Bonus.MaxTotal},
		CacheTTL:           cfg.Scoring.ResultCacheTTL,
		BatchConcurrency:   cfg.Scoring.BatchConcurrency,
	}, logger)

	return container, nil
}

// HealthProbes returns the dependency checks reported by /api/v1/health.
func (c *Container) HealthProbes() map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := c.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if c.Redis != nil {
		probes["redis"] = func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() }
	}
	if c.NATS != nil {
		probes["nats"] = func(ctx context.Context) error {
			if !c.NATS.IsConnected() {
				return fmt.Errorf("nats status %s", c.NATS.Status())
			}
			return nil
		}
	}
	return probes
}

// Close releases every connection the container opened.
func (c *Container) Close() {
	if c.NATS != nil {
		_ = c.NATS.Drain()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// loadRegistry builds the rubric registry: built-ins, then the YAML override
// file, then persisted templates that declare their own criteria.
func loadRegistry(ctx context.Context, cfg config.Config, templates repository.TemplateRepository, logger zerolog.Logger) (*rubric.Registry, error) {
	registry := rubric.NewRegistry(logger)

	if path := cfg.RubricOverridesFile; path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("rubric overrides file: %w", err)
		}
		count, err := registry.LoadOverrides(path)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", path).Int("rubrics", count).Msg("rubric overrides loaded")
	}

	stored, err := templates.ListWithCriteria(ctx)
	if err != nil {
		return nil, fmt.Errorf("load evaluation templates: %w", err)
	}
	if applied := registry.ApplyTemplates(TemplateSources(stored, float64(cfg.Scoring.DefaultTotalScore))); applied > 0 {
		logger.Info().Int("templates", applied).Msg("template rubrics applied")
	}
	logger.Info().Strs("file_types", registry.FileTypes()).Msg("rubric registry ready")
	return registry, nil
}

// TemplateSources converts persisted templates into registry sources.
// Templates without a total use defaultTotal.
func TemplateSources(templates []models.EvaluationTemplate, defaultTotal float64) []rubric.Source {
	sources := make([]rubric.Source, 0, len(templates))
	for _, template := range templates {
		criteria := make([]rubric.Criterion, 0, len(template.Criteria))
		for _, criterion := range template.Criteria {
			criteria = append(criteria, rubric.Criterion{Name: criterion.Name, MaxScore: criterion.MaxScore})
		}
		sources = append(sources, rubric.Source{
			FileType:   template.FileType,
			TotalScore: template.EffectiveTotal(defaultTotal),
			Criteria:   criteria,
			Vetoes:     []string(template.Vetoes),
		})
	}
	return sources
}
