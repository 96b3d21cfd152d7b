package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the tracker service.
// Environment variables are automatically parsed from the AMP_TRACKER_ prefix.
type Config struct {
	// Build target selects the high-level environment: local, cloud
	BuildTarget string `envconfig:"BUILD_TARGET" default:"local"`

	// DBDriver selects the store backend: sqlite, postgres, or auto
	// (derived from BuildTarget).
	DBDriver string `envconfig:"DB_DRIVER" default:"auto"`

	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Postgres Configuration
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// SQLite Configuration
	SQLitePath string `envconfig:"SQLITE_PATH" default:"./data/tracker.db"`

	// Health Configuration
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"15"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"5"`

	// BootstrapTimeoutSeconds bounds the async schema bootstrap check.
	BootstrapTimeoutSeconds int `envconfig:"BOOTSTRAP_TIMEOUT_SECONDS" default:"30"`
}

// ResolveDefaults validates BuildTarget and derives DBDriver when set to
// "auto" or empty.
func (c *Config) ResolveDefaults() error {
	var defaultDB string

	switch c.BuildTarget {
	case "local":
		defaultDB = "sqlite"
	case "cloud":
		defaultDB = "postgres"
	default:
		return fmt.Errorf("unsupported BUILD_TARGET: %s", c.BuildTarget)
	}

	if c.DBDriver == "" || c.DBDriver == "auto" {
		c.DBDriver = defaultDB
	}

	allowedDB := map[string]bool{"sqlite": true, "postgres": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Environment variables should be prefixed with AMP_TRACKER_
// Example: AMP_TRACKER_HTTP_PORT, AMP_TRACKER_POSTGRES_DSN
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("AMP_TRACKER", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("postgres_dsn_present", func() string {
			if cfg.PostgresDSN != "" {
				return "true"
			}
			return "false"
		}()).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		Environment:               EnvTesting,
		BuildTarget:               "local",
		DBDriver:                  "sqlite",
		SQLitePath:                ":memory:",
		HTTPPort:                  8080,
		HealthIntervalSeconds:     1,
		HealthProbeTimeoutSeconds: 1,
		BootstrapTimeoutSeconds:   5,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// IsDevMode returns true when the service should use the static dev
// authorizer instead of a real key service.
func (c *Config) IsDevMode() bool {
	return c.Environment != EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
