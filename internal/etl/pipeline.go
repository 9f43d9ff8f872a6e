// Package etl orchestrates the processing of one input file end to end:
// CSV ingestion, validation, loading valid rows, logging failures,
// archiving the file, and recording the run.
package etl

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/prodline/mdi/internal/logging"
	"github.com/prodline/mdi/internal/record"
	"github.com/prodline/mdi/internal/schema"
	"github.com/prodline/mdi/internal/store"
	"github.com/prodline/mdi/internal/validate"
)

// timeRound is the display precision for durations in reports and logs.
const timeRound = time.Millisecond

// Pipeline processes input files against one mapping schema. A nil Store
// or the DryRun flag validates without persisting anything.
type Pipeline struct {
	Schema     *schema.Schema
	Validator  *validate.Validator
	Store      *store.Store
	Tracker    *Tracker
	ArchiveDir string
	DryRun     bool

	// Out receives the console report; defaults to stdout.
	Out io.Writer
}

// Result is the outcome of processing one file.
type Result struct {
	RunID     uuid.UUID
	File      string
	Status    string
	Summary   validate.Summary
	Inserted  int
	StartedAt time.Time
	Duration  time.Duration
	Archived  string
}

// ProcessFile runs one file through the pipeline. Fatal conditions (file
// unreadable, schema mismatch, storage failure) return an error and no
// Result; per-record rule failures are data inside the Result.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	runID := uuid.New()
	logger := logging.WithRun(runID.String()).With("file", filepath.Base(path))
	logger.Info("processing started")

	batch, err := ReadBatch(path, p.Schema)
	if err != nil {
		p.recordFailure(ctx, runID, path, start)
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	outcome, err := p.Validator.Validate(ctx, batch, p.Schema)
	if err != nil {
		p.recordFailure(ctx, runID, path, start)
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}

	res := &Result{
		RunID:     runID,
		File:      filepath.Base(path),
		Summary:   outcome.Summarize(),
		StartedAt: start,
	}

	abortOnErrors := p.Schema.ETL().ErrorHandling == "abort"
	if abortOnErrors && res.Summary.Invalid > 0 {
		res.Status = store.RunStatusFailed
		res.Duration = time.Since(start)
		p.finish(ctx, res, outcome)
		return res, fmt.Errorf("%s: %d invalid records and error handling is abort", path, res.Summary.Invalid)
	}

	persist := p.Store != nil && !p.DryRun
	if persist {
		if err := p.load(ctx, res, batch, outcome, path); err != nil {
			p.recordFailure(ctx, runID, path, start)
			return nil, err
		}
	} else {
		res.Status = store.RunStatusDryRun
	}

	if persist && p.Schema.ETL().ArchiveFiles {
		archived, err := archiveFile(path, p.ArchiveDir)
		if err != nil {
			logger.Warn("archive failed", "error", err)
		} else {
			res.Archived = archived
		}
	}

	res.Duration = time.Since(start)
	p.finish(ctx, res, outcome)
	logger.Info("processing complete",
		"status", res.Status,
		"total", res.Summary.Total,
		"valid", res.Summary.Valid,
		"invalid", res.Summary.Invalid,
		"inserted", res.Inserted,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// load persists the outcome: valid rows into the target table, rule
// failures into the error table.
func (p *Pipeline) load(ctx context.Context, res *Result, batch *record.Batch, outcome *validate.Outcome, path string) error {
	inserted, err := p.Store.InsertValidRows(ctx, p.Schema, batch, outcome.ValidIndices, res.File, res.RunID)
	res.Inserted = inserted
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if err := p.Store.LogValidationErrors(ctx, res.RunID, res.File, outcome.Errors); err != nil {
		return fmt.Errorf("log errors for %s: %w", path, err)
	}

	if res.Summary.Invalid > 0 {
		res.Status = store.RunStatusPartial
	} else {
		res.Status = store.RunStatusSuccess
	}
	return nil
}

// finish records the run, updates metrics and the tracker, and prints the
// console report. Best-effort: a failed run record is logged, not fatal.
func (p *Pipeline) finish(ctx context.Context, res *Result, outcome *validate.Outcome) {
	if p.Store != nil && !p.DryRun {
		err := p.Store.RecordRun(ctx, store.Run{
			ID:             res.RunID,
			FileName:       res.File,
			TargetTable:    p.Schema.Target().Table,
			TotalRecords:   res.Summary.Total,
			ValidRecords:   res.Summary.Valid,
			InvalidRecords: res.Summary.Invalid,
			InsertedRows:   res.Inserted,
			Status:         res.Status,
			StartedAt:      res.StartedAt,
			Duration:       res.Duration,
		})
		if err != nil {
			logging.WithRun(res.RunID.String()).Warn("run record failed", "error", err)
		}
	}

	runsTotal.WithLabelValues(res.Status).Inc()
	runDuration.Observe(res.Duration.Seconds())
	recordsValidated.WithLabelValues("valid").Add(float64(res.Summary.Valid))
	recordsValidated.WithLabelValues("invalid").Add(float64(res.Summary.Invalid))
	for _, e := range outcome.Errors {
		validationErrors.WithLabelValues(string(e.Kind)).Inc()
	}

	if p.Tracker != nil {
		p.Tracker.Add(*res)
	}
	writeReport(p.out(), res)
}

// recordFailure books a failed run when processing dies before producing
// an outcome, so aborted files still show up in history.
func (p *Pipeline) recordFailure(ctx context.Context, runID uuid.UUID, path string, start time.Time) {
	res := Result{
		RunID:     runID,
		File:      filepath.Base(path),
		Status:    store.RunStatusFailed,
		StartedAt: start,
		Duration:  time.Since(start),
	}
	if p.Store != nil && !p.DryRun {
		err := p.Store.RecordRun(ctx, store.Run{
			ID:          runID,
			FileName:    res.File,
			TargetTable: p.Schema.Target().Table,
			Status:      res.Status,
			StartedAt:   start,
			Duration:    res.Duration,
		})
		if err != nil {
			logging.WithRun(runID.String()).Warn("run record failed", "error", err)
		}
	}
	runsTotal.WithLabelValues(store.RunStatusFailed).Inc()
	if p.Tracker != nil {
		p.Tracker.Add(res)
	}
}

// ProcessGlob expands pattern and processes each matching file in name
// order. Files with a previous successful run are skipped. Unless the
// schema's error handling is abort, one file's failure does not stop the
// rest of the batch; the first error is returned after all files ran.
func (p *Pipeline) ProcessGlob(ctx context.Context, pattern string) ([]*Result, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad glob %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files match %q", pattern)
	}
	sort.Strings(paths)

	abortOnErrors := p.Schema.ETL().ErrorHandling == "abort"
	var (
		results  []*Result
		firstErr error
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if p.alreadyProcessed(ctx, path) {
			logging.WithFields("file", filepath.Base(path)).Info("skipping previously processed file")
			continue
		}

		res, err := p.ProcessFile(ctx, path)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			if abortOnErrors {
				return results, err
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return results, firstErr
}

// alreadyProcessed consults run history; without a store nothing is
// skipped.
func (p *Pipeline) alreadyProcessed(ctx context.Context, path string) bool {
	if p.Store == nil || p.DryRun {
		return false
	}
	done, err := p.Store.WasProcessed(ctx, filepath.Base(path))
	if err != nil {
		logging.WithFields("file", filepath.Base(path)).Warn("history check failed", "error", err)
		return false
	}
	return done
}

func (p *Pipeline) out() io.Writer {
	if p.Out != nil {
		return p.Out
	}
	return os.Stdout
}
