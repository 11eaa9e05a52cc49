// Package factory constructs the service's infrastructure from configuration.
package factory

import (
	"context"
	"fmt"

	"github.com/standuphq/standup-engine/internal/config"
	"github.com/standuphq/standup-engine/internal/store"
	"github.com/standuphq/standup-engine/internal/store/memory"
	"github.com/standuphq/standup-engine/internal/store/postgres"
	"github.com/standuphq/standup-engine/internal/store/sqlite"
)

// NewStore selects the store implementation from cfg.DBDriver and ensures the
// schema exists for the SQL-backed drivers.
func NewStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return nil, err
		}
		return postgres.NewWithDB(db), nil
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := sqlite.EnsureSchema(ctx, db); err != nil {
			return nil, err
		}
		return sqlite.NewWithDB(db), nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
