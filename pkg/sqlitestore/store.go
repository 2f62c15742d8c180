// Package sqlitestore is the single-file storage backend of the storage.*
// methods.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/morezero/method-pipe/pkg/methods/storage"
)

const logPrefix = "sqlitestore:store"

//go:embed schema.sql
var schema string

// Store implements storage.Service on SQLite. Timestamps are unix
// milliseconds; zero means unset.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ storage.Service = (*Store)(nil)

// Open opens path, creating the file and schema when missing.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%s - storage path is required", logPrefix)
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s - open sqlite db: %w", logPrefix, err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%s - ping sqlite db: %w", logPrefix, err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%s - apply schema: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Opened %s", logPrefix, path))
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SetItem implements storage.Service.
func (s *Store) SetItem(ctx context.Context, biz, key string, value interface{}, expiresAt time.Time) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s - encode value: %w", logPrefix, err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO pipe_storage (biz, key, value_json, expires_at, modified)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (biz, key) DO UPDATE SET
		   value_json = excluded.value_json,
		   expires_at = excluded.expires_at,
		   modified = excluded.modified`,
		biz, key, string(data), timeToUnixMillis(expiresAt), timeToUnixMillis(s.now()))
	if err != nil {
		return fmt.Errorf("%s - put %s/%s: %w", logPrefix, biz, key, err)
	}
	return nil
}

// GetItem implements storage.Service. Expired rows are deleted on read.
func (s *Store) GetItem(ctx context.Context, biz, key string) (interface{}, bool, error) {
	var (
		data      string
		expiresAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT value_json, expires_at FROM pipe_storage WHERE biz = ? AND key = ?`,
		biz, key).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s - get %s/%s: %w", logPrefix, biz, key, err)
	}

	now := s.now()
	if storage.Expired(unixMillisToTime(expiresAt), now) {
		if _, err := s.sqlDB.ExecContext(ctx,
			`DELETE FROM pipe_storage WHERE biz = ? AND key = ? AND expires_at > 0 AND expires_at <= ?`,
			biz, key, timeToUnixMillis(now)); err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to evict %s/%s: %v", logPrefix, biz, key, err))
		}
		return nil, false, nil
	}

	var value interface{}
	if err := json.Unmarshal([]byte(data), &value); err != nil {
		return nil, false, fmt.Errorf("%s - decode %s/%s: %w", logPrefix, biz, key, err)
	}
	return value, true, nil
}

// RemoveItem implements storage.Service.
func (s *Store) RemoveItem(ctx context.Context, biz, key string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM pipe_storage WHERE biz = ? AND key = ?`, biz, key); err != nil {
		return fmt.Errorf("%s - remove %s/%s: %w", logPrefix, biz, key, err)
	}
	return nil
}

// Clear removes every item.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM pipe_storage`); err != nil {
		return fmt.Errorf("%s - clear: %w", logPrefix, err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

func timeToUnixMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func unixMillisToTime(value int64) time.Time {
	if value <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}
