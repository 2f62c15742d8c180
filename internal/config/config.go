// Package config provides server configuration loaded from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds method-pipe configuration.
type Config struct {
	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"method-pipe"`

	// Subject overrides (empty = commsutil defaults)
	CallSubject        string `envconfig:"PIPE_CALL_SUBJECT"`
	EventSubjectPrefix string `envconfig:"PIPE_EVENT_SUBJECT_PREFIX"`
	ContainerSubject   string `envconfig:"PIPE_CONTAINER_SUBJECT"`

	// Dispatch
	RequestTimeout time.Duration `envconfig:"PIPE_REQUEST_TIMEOUT" default:"25s"`
	MainQueueSize  int           `envconfig:"PIPE_MAIN_QUEUE_SIZE" default:"256"`
	RateLimit      float64       `envconfig:"PIPE_RATE_LIMIT" default:"0"`
	RateBurst      int           `envconfig:"PIPE_RATE_BURST" default:"20"`

	// Bootstrap and debugging
	BootstrapFile string `envconfig:"PIPE_BOOTSTRAP_FILE"`
	Debug         bool   `envconfig:"PIPE_DEBUG" default:"false"`
	MockRulesFile string `envconfig:"PIPE_MOCK_RULES_FILE"`

	// Storage
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"memory"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"method-pipe.db"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH"`

	// HTTP endpoint (PIPE_HTTP_ADDR preferred, e.g. "0.0.0.0:8080")
	HTTPAddr           string        `envconfig:"PIPE_HTTP_ADDR"`
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Observability
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	OTelEndpoint   string `envconfig:"OTEL_ENDPOINT"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	return &c, nil
}

// ValidateForServe checks required config when running the pipe server.
func (c *Config) ValidateForServe() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - PIPE_REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	if c.MainQueueSize <= 0 {
		return fmt.Errorf("%s - PIPE_MAIN_QUEUE_SIZE must be positive", logPrefix)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%s - PIPE_RATE_LIMIT must not be negative", logPrefix)
	}
	switch c.StorageDriver {
	case DriverMemory:
	case DriverPostgres:
		return c.ValidateForDB()
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%s - SQLITE_PATH is required for the sqlite driver", logPrefix)
		}
	default:
		return fmt.Errorf("%s - unknown STORAGE_DRIVER %q (want memory, postgres or sqlite)", logPrefix, c.StorageDriver)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands
// (migrate, clear).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}

// ListenAddr returns HTTPAddr, or ":<HTTPPort>" when it is empty.
func (c *Config) ListenAddr() string {
	if c.HTTPAddr != "" {
		return c.HTTPAddr
	}
	return fmt.Sprintf(":%d", c.HTTPPort)
}
