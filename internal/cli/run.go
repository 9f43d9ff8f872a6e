package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/prodline/mdi/internal/etl"
	"github.com/prodline/mdi/internal/refdata"
	"github.com/prodline/mdi/internal/schema"
	"github.com/prodline/mdi/internal/store"
	"github.com/prodline/mdi/internal/validate"
)

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Validate and load CSV files",
		Description: `Processes one file (--input) or every file matching a glob (--batch)
against the mapping configuration. Valid records are loaded into the
target table; every rule failure is written to the validation error
table. With --dry-run nothing is persisted and lookups resolve against
the built-in demo reference set unless a database is configured.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Single CSV file to process",
			},
			&cli.StringFlag{
				Name:    "batch",
				Aliases: []string{"b"},
				Usage:   "Glob of CSV files to process (default: MDI_INPUT_GLOB)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Mapping configuration file (default: MDI_MAPPING_CONFIG)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Validate only; do not load, log, or archive",
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mappingPath := cmd.String("config")
	if mappingPath == "" {
		mappingPath = cfg.Pipeline.MappingConfig
	}
	sch, err := schema.Load(mappingPath)
	if err != nil {
		return err
	}

	dryRun := cmd.Bool("dry-run")

	var (
		st       *store.Store
		provider validate.ReferenceProvider
	)
	if !dryRun {
		pool, err := openPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		st = store.New(pool)
		provider = refdata.NewPG(pool)
	} else if cfg.Database.URL != "" {
		// Dry run against a real database still resolves real lookups.
		pool, err := openPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		provider = refdata.NewPG(pool)
	} else {
		provider = refdata.NewDemoStatic()
	}

	pipeline := &etl.Pipeline{
		Schema: sch,
		Validator: validate.New(
			validate.WithReferenceProvider(provider),
			validate.WithWorkers(cfg.Pipeline.Workers),
		),
		Store:      st,
		ArchiveDir: cfg.Pipeline.ArchiveDir,
		DryRun:     dryRun,
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Pipeline.RunTimeout)
	defer cancel()

	if input := cmd.String("input"); input != "" {
		_, err := pipeline.ProcessFile(runCtx, input)
		return err
	}

	pattern := cmd.String("batch")
	if pattern == "" {
		pattern = cfg.Pipeline.InputGlob
	}
	results, err := pipeline.ProcessGlob(runCtx, pattern)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("all files matching %q were already processed", pattern)
	}
	return nil
}
