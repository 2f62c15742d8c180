package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/morezero/method-pipe/internal/config"
	"github.com/morezero/method-pipe/pkg/db"
	"github.com/morezero/method-pipe/pkg/methods/storage"
	"github.com/morezero/method-pipe/pkg/registry"
	"github.com/morezero/method-pipe/pkg/sqlitestore"
)

const storageLogPrefix = "server:storage"

// storageBackend is the storage.Service chosen by STORAGE_DRIVER plus its
// health probes and cleanup.
type storageBackend struct {
	service storage.Service
	probes  []registry.Probe
	close   func()
}

func openStorage(ctx context.Context, cfg *config.Config) (*storageBackend, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to connect to database: %w", storageLogPrefix, err)
		}
		if cfg.RunMigrations {
			migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
			if err != nil {
				pool.Close()
				return nil, fmt.Errorf("%s - failed to load migrations: %w", storageLogPrefix, err)
			}
			if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
				pool.Close()
				return nil, fmt.Errorf("%s - failed to run migrations: %w", storageLogPrefix, err)
			}
		}
		slog.Info(fmt.Sprintf("%s - Storage: postgres", storageLogPrefix))
		return &storageBackend{
			service: db.NewStorageRepository(pool),
			probes:  []registry.Probe{{Name: "database", Check: pool.Ping}},
			close:   pool.Close,
		}, nil

	case config.DriverSQLite:
		store, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to open sqlite store: %w", storageLogPrefix, err)
		}
		slog.Info(fmt.Sprintf("%s - Storage: sqlite at %s", storageLogPrefix, cfg.SQLitePath))
		return &storageBackend{
			service: store,
			probes:  []registry.Probe{{Name: "database", Check: store.Ping}},
			close: func() {
				if err := store.Close(); err != nil {
					slog.Warn(fmt.Sprintf("%s - close sqlite store: %v", storageLogPrefix, err))
				}
			},
		}, nil

	default:
		slog.Info(fmt.Sprintf("%s - Storage: memory", storageLogPrefix))
		return &storageBackend{service: storage.NewMemory(), close: func() {}}, nil
	}
}
