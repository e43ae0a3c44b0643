package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Config controls how the storage backend is opened.
type Config struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// AutoMigrate creates missing tables through gorm. Deployments that run
	// goose migrations leave it off.
	AutoMigrate bool `yaml:"auto_migrate"`
}

// Open constructs a Storage based on the given configuration.
func Open(ctx context.Context, cfg Config) (Storage, error) {
	drv := cfg.Driver
	if drv == "" {
		drv = "memory"
	}
	switch drv {
	case "memory":
		log.Info().Msg("storage: using in-memory backend")
		return NewMemory(), nil

	case "sqlite", "postgres":
		log.Info().Str("driver", drv).Msg("storage: using gorm backend")
		st, err := NewGormStorage(drv, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return migrated(ctx, st, cfg.AutoMigrate)

	case "postgrespool":
		log.Info().Msg("storage: using gorm backend with pgx pool")
		st, err := OpenPostgresPool(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return migrated(ctx, st, cfg.AutoMigrate)

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", drv)
	}
}

type migrator interface {
	Storage
	Migrate(ctx context.Context) error
}

func migrated(ctx context.Context, st migrator, auto bool) (Storage, error) {
	if !auto {
		return st, nil
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("storage migrate: %w", err)
	}
	return st, nil
}
