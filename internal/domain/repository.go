package domain

import (
	"context"
	"time"
)

// Repository persists the score audit log. Model snapshots themselves are
// never persisted here; the snapshot directory is the only model source.
type Repository interface {
	// Score audit log
	SaveScoreEvent(ctx context.Context, event *ScoreEvent) error
	GetScoreEvent(ctx context.Context, id string) (*ScoreEvent, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
