package validate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/prodline/mdi/internal/record"
	"github.com/prodline/mdi/internal/schema"
)

// Validator runs batches through the row and dataset phases. A Validator
// is safe for concurrent use; all per-run state (the lookup cache) is
// created inside Validate.
type Validator struct {
	provider ReferenceProvider
	workers  int
}

// Option configures a Validator.
type Option func(*Validator)

// WithReferenceProvider supplies the resolver for lookup rules. Without
// one, every lookup rule fails its records with a LOOKUP error.
func WithReferenceProvider(p ReferenceProvider) Option {
	return func(v *Validator) {
		v.provider = p
	}
}

// WithWorkers sets how many rows are validated concurrently. Values below
// two keep the row phase serial.
func WithWorkers(n int) Option {
	return func(v *Validator) {
		v.workers = n
	}
}

// New creates a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{workers: 1}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate partitions batch into valid and invalid records under s.
//
// It is deterministic for a given (batch, schema, reference data) triple
// regardless of worker count. The only error returns are fatal: a batch
// missing declared source columns (*SchemaMismatchError) or a cancelled
// context; no partial Outcome accompanies an error.
func (v *Validator) Validate(ctx context.Context, batch *record.Batch, s *schema.Schema) (*Outcome, error) {
	if s == nil {
		return nil, errors.New("validate: nil schema")
	}
	if batch == nil {
		batch = &record.Batch{}
	}

	if err := checkColumns(batch, s); err != nil {
		return nil, err
	}

	start := time.Now()
	lookups := newLookupCache(v.provider)
	fields := s.Fields()

	perRow := make([][]ValidationError, batch.Len())
	if v.workers > 1 && batch.Len() > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(v.workers)
		for i := range batch.Rows {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				perRow[i] = validateRow(gctx, i, batch.Rows[i], fields, lookups)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range batch.Rows {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			perRow[i] = validateRow(ctx, i, batch.Rows[i], fields, lookups)
		}
	}

	// Merge in record order so error insertion order is deterministic.
	invalid := make(map[int]bool)
	var errs []ValidationError
	for i, rowErrs := range perRow {
		if len(rowErrs) > 0 {
			invalid[i] = true
			errs = append(errs, rowErrs...)
		}
	}

	rowOutcome := buildOutcome(batch.Len(), invalid, errs)
	final := applyDatasetRules(rowOutcome, batch, s.DatasetRules())

	slog.Debug("batch validated",
		"records", batch.Len(),
		"valid", len(final.ValidIndices),
		"invalid", len(final.InvalidIndices),
		"errors", len(final.Errors),
		"workers", v.workers,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return final, nil
}
