// Package main is the entrypoint for the method-pipe server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/morezero/method-pipe/internal/config"
	"github.com/morezero/method-pipe/internal/server"
	"github.com/morezero/method-pipe/pkg/db"
	"github.com/morezero/method-pipe/pkg/sqlitestore"
)

const usage = `Usage: method-pipe [command]
       method-pipe serve              Start the pipe (NATS call subject, HTTP endpoint).
       method-pipe migrate up         Run Postgres storage migrations.
       method-pipe migrate status     Show migration status.
       method-pipe ensure-db [name]   Create database if missing (default name: method_pipe_test). Uses DATABASE_URL host/user.
       method-pipe clear              Delete every stored item of the configured STORAGE_DRIVER; schema is preserved.

Commands:
  serve           (default) Start the method pipe.
  migrate up      Run database migrations only.
  migrate status  Show current migration status.
  ensure-db [name] Create database (e.g. method_pipe_test) on same host as DATABASE_URL; then run tests with that URL.
  clear           Truncate pipe storage (postgres or sqlite).

Environment: COMMS_URL, STORAGE_DRIVER (memory|postgres|sqlite), DATABASE_URL, SQLITE_PATH, MIGRATION_PATH,
PIPE_HTTP_ADDR (default :8080), PIPE_BOOTSTRAP_FILE, PIPE_DEBUG, PIPE_MOCK_RULES_FILE. See README.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("method-pipe migrate: require subcommand (up, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := runMigrateUp(); err != nil {
				log.Fatalf("method-pipe migrate up: %v", err)
			}
		case "status":
			if err := runMigrateStatus(); err != nil {
				log.Fatalf("method-pipe migrate status: %v", err)
			}
		default:
			log.Fatalf("method-pipe migrate: unknown subcommand %q (use up, status)", sub)
		}
		return
	case "clear":
		if err := runClear(); err != nil {
			log.Fatalf("method-pipe clear: %v", err)
		}
		return
	case "ensure-db":
		dbName := "method_pipe_test"
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("method-pipe ensure-db: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("method-pipe: %v", err)
	}
}

func loadDBConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runMigrateUp() error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runMigrateStatus() error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	state, err := db.MigrationStatus(ctx, pool, cfg.MigrationPath)
	if err != nil {
		return err
	}
	fmt.Println(state)
	return nil
}

func runClear() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()

	switch cfg.StorageDriver {
	case config.DriverPostgres:
		if err := cfg.ValidateForDB(); err != nil {
			return err
		}
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		if err := db.ClearStorage(ctx, pool); err != nil {
			return fmt.Errorf("clear storage: %w", err)
		}
	case config.DriverSQLite:
		store, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		defer store.Close()
		if err := store.Clear(ctx); err != nil {
			return fmt.Errorf("clear storage: %w", err)
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER %q keeps nothing to clear", cfg.StorageDriver)
	}
	return nil
}

func runEnsureDB(dbName string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	targetURL, err := db.DatabaseURLFor(cfg.DatabaseURL, dbName)
	if err != nil {
		return err
	}
	created, err := db.EnsureDatabase(context.Background(), targetURL)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Database %q created.\n", dbName)
	} else {
		fmt.Printf("Database %q is ready.\n", dbName)
	}
	return nil
}
