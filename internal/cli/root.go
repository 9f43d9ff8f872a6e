// Package cli wires the mdi commands: batch processing, directory watch,
// mapping-config inspection, and run summaries.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/prodline/mdi/internal/config"
	"github.com/prodline/mdi/internal/logging"
)

// Root builds the mdi command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name:  "mdi",
		Usage: "Validate and load manufacturing CSV exports into postgres",
		Description: `mdi reads tabular manufacturing records, validates them against a
declarative mapping configuration (field rules plus batch-level duplicate
checks), loads the valid records into the target table, and files every
rule failure in the validation error table for review.

# Examples

Validate and load one file:
  mdi run --input data/raw/shift_a.csv --config config/mapping_config.xml

Process everything matching the batch glob:
  mdi run --batch 'data/raw/*.csv'

Validate without touching the database:
  mdi run --input data/raw/shift_a.csv --dry-run

Watch an intake directory (with the status server):
  mdi watch --config config/mapping_config.xml

Inspect a mapping config:
  mdi schema --config config/mapping_config.yaml

Show the last week of processing:
  mdi summary`,
		Commands: []*cli.Command{
			runCmd(),
			watchCmd(),
			schemaCmd(),
			summaryCmd(),
		},
	}
}

// setup loads .env, parses configuration, and installs the logger. Every
// command goes through here first.
func setup() (*config.Config, error) {
	if err := godotenv.Overload(); err == nil {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())
	return cfg, nil
}

// openPool connects to postgres with the configured pool sizing and
// verifies the connection before returning.
func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set; configure it or use --dry-run")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
