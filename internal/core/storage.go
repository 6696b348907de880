package core

import (
	"context"
	"fmt"

	"ifcquery/internal/config"
	"ifcquery/internal/infra/persistence/memory"
	"ifcquery/internal/infra/persistence/postgres"
	"ifcquery/internal/infra/persistence/sqlite"
	"ifcquery/internal/persistence"
)

// OpenSnapshotStore selects the snapshot backend named by cfg.Driver. The
// "none" driver returns a nil store and disables snapshot persistence.
func OpenSnapshotStore(ctx context.Context, cfg config.PersistenceConfig) (persistence.Store, error) {
	switch cfg.Driver {
	case config.PersistenceNone, "":
		return nil, nil
	case config.PersistenceMemory:
		return memory.NewStore(), nil
	case config.PersistenceSQLite:
		store, err := sqlite.NewStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.PersistencePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown persistence driver %q", cfg.Driver)
	}
}
