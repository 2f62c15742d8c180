package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearStorage removes every stored item. The schema is preserved.
func ClearStorage(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing %s", clearLogPrefix, StorageTable))

	if _, err := pool.Exec(ctx, `TRUNCATE TABLE `+StorageTable); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Storage cleared", clearLogPrefix))
	return nil
}
