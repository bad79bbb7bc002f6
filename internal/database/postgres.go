package database

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

const sqlitePrefix = "sqlite://"

// Connect opens the database named by url. A "sqlite://<path>" url opens a
// local SQLite file; anything else is treated as a PostgreSQL DSN.
func Connect(url string, log zerolog.Logger) (*gorm.DB, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("database url must not be empty")
	}

	config := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if log.GetLevel() <= zerolog.DebugLevel {
		config.Logger = logger.Default.LogMode(logger.Info)
	}

	if path, ok := strings.CutPrefix(url, sqlitePrefix); ok {
		db, err := gorm.Open(sqlite.Open(path), config)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return db, nil
	}

	return ConnectPostgres(url, config)
}

// ConnectPostgres establishes a connection to the PostgreSQL database using the provided DSN.
func ConnectPostgres(dsn string, config *gorm.Config) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}
	if config == nil {
		config = &gorm.Config{}
	}

	db, err := gorm.Open(postgres.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the scoring tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.EvaluationTemplate{},
		&models.MaterialSubmission{},
		&models.EvaluationTask{},
		&models.SubmissionFile{},
		&models.ScoringResult{},
		&models.ActivityLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
