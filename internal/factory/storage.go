// Package factory constructs the store backend selected by configuration.
package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/amptracker/amp-tracker/internal/config"
	storepkg "github.com/amptracker/amp-tracker/internal/store"
	storepg "github.com/amptracker/amp-tracker/internal/store/postgres"
	storesqlite "github.com/amptracker/amp-tracker/internal/store/sqlite"
)

// NewStore returns the store.Store for cfg.DBDriver.
//
// For postgres the connection is opened synchronously (health checks need
// it immediately) and the idempotent schema bootstrap runs async with a
// configurable timeout so startup stays fast. For sqlite the schema is
// applied inline; local files are cheap.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		return newPostgresStore(ctx, cfg, log)
	case "sqlite":
		return newSQLiteStore(cfg, log)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}

func newPostgresStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("AMP_TRACKER_POSTGRES_DSN is required when DB_DRIVER=postgres")
	}

	db, err := storepg.Open(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	go func() {
		bootstrapTimeout := time.Duration(cfg.BootstrapTimeoutSeconds) * time.Second
		bootstrapCtx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
		defer cancel()

		if err := storepg.Bootstrap(bootstrapCtx, db); err != nil {
			log.Warn().Err(err).Str("driver", cfg.DBDriver).Msg("store bootstrap check failed")
		} else {
			log.Debug().Str("driver", cfg.DBDriver).Msg("store bootstrap check completed")
		}
	}()

	return storepg.NewWithDB(db), nil
}

func newSQLiteStore(cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	db, err := storesqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := storesqlite.EnsureSchema(db); err != nil {
		return nil, err
	}
	log.Debug().Str("path", cfg.SQLitePath).Msg("sqlite store ready")
	return storesqlite.New(db), nil
}
