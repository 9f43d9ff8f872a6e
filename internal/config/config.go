// Package config provides centralized configuration management for the
// application. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database Database
	Pipeline Pipeline
	Watch    Watch
	Server   Server
	Logging  Logging
}

// Database holds postgres connection settings.
type Database struct {
	// URL is the PostgreSQL connection string. Optional: dry runs and
	// schema inspection work without a database; commands that persist
	// require it.
	URL string `env:"DATABASE_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" envDefault:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" envDefault:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
}

// Pipeline holds file-processing settings.
type Pipeline struct {
	// MappingConfig is the default mapping-config path for the run command.
	MappingConfig string `env:"MDI_MAPPING_CONFIG" envDefault:"config/mapping_config.xml"`

	// InputGlob is the default batch glob for the run command.
	InputGlob string `env:"MDI_INPUT_GLOB" envDefault:"data/raw/*.csv"`

	// ArchiveDir is where processed files are moved when the mapping
	// config enables archiving.
	ArchiveDir string `env:"MDI_ARCHIVE_DIR" envDefault:"data/processed"`

	// Workers is how many records are row-validated concurrently (default: 4)
	Workers int `env:"MDI_WORKERS" envDefault:"4"`

	// RunTimeout bounds one file's processing end to end (default: 10m)
	RunTimeout time.Duration `env:"MDI_RUN_TIMEOUT" envDefault:"10m"`
}

// Watch holds intake-directory watcher settings.
type Watch struct {
	// Dir is the directory watched for new CSV files (default: data/raw)
	Dir string `env:"MDI_WATCH_DIR" envDefault:"data/raw"`

	// Debounce is how long a file must stay quiet before it is picked up,
	// so partially-written files are not read mid-copy (default: 500ms)
	Debounce time.Duration `env:"MDI_WATCH_DEBOUNCE" envDefault:"500ms"`

	// SweepSchedule is an optional cron expression for a periodic
	// directory sweep that catches files the watcher missed.
	SweepSchedule string `env:"MDI_SWEEP_SCHEDULE"`
}

// Server holds status-server settings (watch mode only).
type Server struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envDefault:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"30s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Logging holds logging settings.
type Logging struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// Addr returns the server listen address in host:port format.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from environment variables, applies defaults
// for unset values, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}

	if c.Pipeline.Workers <= 0 {
		errs = append(errs, "MDI_WORKERS must be positive")
	}
	if c.Pipeline.RunTimeout <= 0 {
		errs = append(errs, "MDI_RUN_TIMEOUT must be positive")
	}
	if c.Pipeline.ArchiveDir == "" {
		errs = append(errs, "MDI_ARCHIVE_DIR must not be empty")
	}

	if c.Watch.Debounce <= 0 {
		errs = append(errs, "MDI_WATCH_DEBOUNCE must be positive")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Database: {URL: %s, MaxConns: %d, MinConns: %d}, ",
		maskURL(c.Database.URL), c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Pipeline: {MappingConfig: %q, InputGlob: %q, Workers: %d}, ",
		c.Pipeline.MappingConfig, c.Pipeline.InputGlob, c.Pipeline.Workers))
	b.WriteString(fmt.Sprintf("Watch: {Dir: %q, Debounce: %s}, ", c.Watch.Dir, c.Watch.Debounce))
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}

// maskURL hides everything but the presence of a connection string.
func maskURL(u string) string {
	if u == "" {
		return "[UNSET]"
	}
	return "[MASKED]"
}
