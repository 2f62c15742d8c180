package db

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"

	"github.com/morezero/method-pipe/migrations"
)

const migrationsLogPrefix = "db:migrations"

// EmbeddedMigrations names the migration source used when no directory is
// configured.
const EmbeddedMigrations = "embedded"

// LoadMigrationFiles returns the .sql migrations of dir in name order. An
// empty dir reads the migrations compiled into the binary.
func LoadMigrationFiles(dir string) ([]string, error) {
	if dir == "" {
		return LoadMigrations(migrations.Files, EmbeddedMigrations)
	}
	return LoadMigrations(os.DirFS(dir), dir)
}

// LoadMigrations reads the top-level .sql files of fsys in name order. source
// only labels logs and errors.
func LoadMigrations(fsys fs.FS, source string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read migrations from %s: %w", migrationsLogPrefix, source, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to read %s from %s: %w", migrationsLogPrefix, name, source, err)
		}
		out = append(out, string(data))
	}
	slog.Info(fmt.Sprintf("%s - Loaded %d migration files from %s", migrationsLogPrefix, len(out), source))
	return out, nil
}
