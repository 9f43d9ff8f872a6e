// Package watch feeds the pipeline from an intake directory: an fsnotify
// watcher picks up new CSV files as they land, and an optional cron sweep
// catches anything the watcher missed (files moved in while the process
// was down, missed events under load).
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
)

// ProcessFunc handles one discovered file.
type ProcessFunc func(ctx context.Context, path string)

// Watcher monitors one intake directory.
type Watcher struct {
	dir      string
	debounce time.Duration
	schedule string
	process  ProcessFunc

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a Watcher over dir. A non-empty schedule is a cron
// expression for the periodic sweep.
func New(dir string, debounce time.Duration, schedule string, process ProcessFunc) *Watcher {
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		schedule: schedule,
		process:  process,
		timers:   make(map[string]*time.Timer),
	}
}

// Run watches until ctx is cancelled. Files already in the directory are
// swept once at startup so a restart never strands queued input.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	if w.schedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(w.schedule, func() { w.Sweep(ctx) }); err != nil {
			return fmt.Errorf("invalid sweep schedule %q: %w", w.schedule, err)
		}
		c.Start()
		defer c.Stop()
		slog.Info("sweep scheduled", "schedule", w.schedule)
	}

	slog.Info("watching intake directory", "dir", w.dir, "debounce", w.debounce)
	w.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isCSV(event.Name) {
				continue
			}
			w.schedulePickup(ctx, event.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

// schedulePickup (re)arms the per-file debounce timer. Each write resets
// the timer, so a file is only picked up once it has been quiet for the
// debounce interval.
func (w *Watcher) schedulePickup(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		slog.Info("file settled", "file", filepath.Base(path))
		w.process(ctx, path)
	})
}

// Sweep processes every CSV currently in the directory. The pipeline's
// run history keeps re-sweeps from reloading finished files.
func (w *Watcher) Sweep(ctx context.Context) {
	paths, err := filepath.Glob(filepath.Join(w.dir, "*.csv"))
	if err != nil {
		slog.Warn("sweep glob failed", "dir", w.dir, "error", err)
		return
	}
	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, path)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
