package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/method-pipe/pkg/methods/storage"
)

const repoLogPrefix = "db:storage_repository"

// StorageRepository implements storage.Service on the pipe_storage table.
type StorageRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewStorageRepository creates a StorageRepository on pool.
func NewStorageRepository(pool *pgxpool.Pool) *StorageRepository {
	return &StorageRepository{pool: pool, now: time.Now}
}

var _ storage.Service = (*StorageRepository)(nil)

// SetItem implements storage.Service.
func (r *StorageRepository) SetItem(ctx context.Context, biz, key string, value interface{}, expiresAt time.Time) error {
	slog.Debug(fmt.Sprintf("%s - SetItem biz=%s key=%s", repoLogPrefix, biz, key))

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s - failed to encode value: %w", repoLogPrefix, err)
	}
	var expires *time.Time
	if !expiresAt.IsZero() {
		t := expiresAt.UTC()
		expires = &t
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO pipe_storage (biz, key, value, expires_at, modified)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (biz, key) DO UPDATE SET
		   value = EXCLUDED.value,
		   expires_at = EXCLUDED.expires_at,
		   modified = EXCLUDED.modified`,
		biz, key, data, expires, r.now().UTC())
	if err != nil {
		return fmt.Errorf("%s - failed to store %s/%s: %w", repoLogPrefix, biz, key, err)
	}
	return nil
}

// GetItem implements storage.Service. Expired rows are deleted on read.
func (r *StorageRepository) GetItem(ctx context.Context, biz, key string) (interface{}, bool, error) {
	var (
		data    []byte
		expires *time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT value, expires_at FROM pipe_storage WHERE biz = $1 AND key = $2`,
		biz, key).Scan(&data, &expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s - failed to load %s/%s: %w", repoLogPrefix, biz, key, err)
	}

	if expires != nil && storage.Expired(*expires, r.now()) {
		if _, err := r.pool.Exec(ctx,
			`DELETE FROM pipe_storage WHERE biz = $1 AND key = $2 AND expires_at <= $3`,
			biz, key, r.now().UTC()); err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to evict %s/%s: %v", repoLogPrefix, biz, key, err))
		}
		return nil, false, nil
	}

	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, false, fmt.Errorf("%s - failed to decode %s/%s: %w", repoLogPrefix, biz, key, err)
	}
	return value, true, nil
}

// RemoveItem implements storage.Service.
func (r *StorageRepository) RemoveItem(ctx context.Context, biz, key string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM pipe_storage WHERE biz = $1 AND key = $2`, biz, key); err != nil {
		return fmt.Errorf("%s - failed to remove %s/%s: %w", repoLogPrefix, biz, key, err)
	}
	return nil
}
