package cli

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/prodline/mdi/internal/etl"
	"github.com/prodline/mdi/internal/refdata"
	"github.com/prodline/mdi/internal/schema"
	"github.com/prodline/mdi/internal/server"
	"github.com/prodline/mdi/internal/store"
	"github.com/prodline/mdi/internal/validate"
	"github.com/prodline/mdi/internal/watch"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Watch an intake directory and process files as they arrive",
		Description: `Watches the intake directory for new CSV files, processing each one
once it stops changing. An optional cron sweep (MDI_SWEEP_SCHEDULE)
re-scans the directory for files the watcher missed; run history keeps
sweeps from reloading finished files. The status server exposes
/healthz, /readyz, /metrics, and /api/runs while watching.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Mapping configuration file (default: MDI_MAPPING_CONFIG)",
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Intake directory to watch (default: MDI_WATCH_DIR)",
			},
		},
		Action: watchAction,
	}
}

func watchAction(ctx context.Context, cmd *cli.Command) error {
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

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	st := store.New(pool)

	tracker := etl.NewTracker(0)
	pipeline := &etl.Pipeline{
		Schema: sch,
		Validator: validate.New(
			validate.WithReferenceProvider(refdata.NewPG(pool)),
			validate.WithWorkers(cfg.Pipeline.Workers),
		),
		Store:      st,
		Tracker:    tracker,
		ArchiveDir: cfg.Pipeline.ArchiveDir,
	}

	dir := cmd.String("dir")
	if dir == "" {
		dir = cfg.Watch.Dir
	}
	watcher := watch.New(dir, cfg.Watch.Debounce, cfg.Watch.SweepSchedule,
		func(ctx context.Context, path string) {
			runCtx, cancel := context.WithTimeout(ctx, cfg.Pipeline.RunTimeout)
			defer cancel()
			if _, err := pipeline.ProcessFile(runCtx, path); err != nil {
				slog.Error("processing failed", "file", path, "error", err)
			}
		})

	srv := server.New(cfg.Server, tracker, st)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("status server listening", "addr", cfg.Server.Addr())
		return srv.ListenAndServe()
	})
	g.Go(func() error {
		return watcher.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		return srv.Shutdown(context.Background())
	})

	return ignoreCanceled(g.Wait())
}

// ignoreCanceled maps context cancellation, wrapped or not, to a clean
// exit. Signal-driven shutdown surfaces through the errgroup as a
// cancellation, not a failure.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
