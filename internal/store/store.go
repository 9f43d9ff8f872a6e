// Package store persists validation results to postgres: valid records
// into the mapping config's target table, rule failures into the error
// table, and one bookkeeping row per processing run.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prodline/mdi/internal/record"
	"github.com/prodline/mdi/internal/schema"
	"github.com/prodline/mdi/internal/validate"
)

// Store wraps a pgx pool with the queries the pipeline needs.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Run is one processing-run bookkeeping row.
type Run struct {
	ID             uuid.UUID
	FileName       string
	TargetTable    string
	TotalRecords   int
	ValidRecords   int
	InvalidRecords int
	InsertedRows   int
	Status         string
	StartedAt      time.Time
	Duration       time.Duration
}

// Run statuses stored in processing_runs.status.
const (
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusFailed  = "failed"
	RunStatusDryRun  = "dry_run"
)

// InsertValidRows bulk-loads the outcome's valid records into the schema's
// target table. Rows go in via COPY in chunks of the schema's batch size;
// a chunk COPY rejection falls back to row-at-a-time inserts under
// savepoints so one bad row does not discard its neighbors. Returns the
// number of rows actually inserted.
func (s *Store) InsertValidRows(ctx context.Context, sch *schema.Schema, batch *record.Batch, indices []int, fileSource string, runID uuid.UUID) (int, error) {
	if len(indices) == 0 {
		return 0, nil
	}

	fields := sch.Fields()
	columns := make([]string, 0, len(fields)+3)
	for _, f := range fields {
		columns = append(columns, f.TargetField)
	}
	columns = append(columns, "file_source", "run_id", "validation_status")

	rows := make([][]any, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(batch.Rows) {
			continue
		}
		row := make([]any, 0, len(columns))
		for _, f := range fields {
			row = append(row, toPgValue(batch.Rows[idx].Get(f.SourceField), f.DataType))
		}
		row = append(row,
			toPgText(fileSource),
			pgtype.UUID{Bytes: runID, Valid: true},
			toPgText("VALID"),
		)
		rows = append(rows, row)
	}

	chunkSize := sch.ETL().BatchSize
	inserted := 0
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		n, err := s.loadChunk(ctx, sch.Target().Table, columns, rows[start:end])
		inserted += n
		if err != nil {
			return inserted, fmt.Errorf("load chunk [%d:%d]: %w", start, end, err)
		}
	}
	return inserted, nil
}

// loadChunk COPYs one chunk inside a transaction, retrying row by row
// under savepoints when COPY rejects the chunk.
func (s *Store) loadChunk(ctx context.Context, table string, columns []string, rows [][]any) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdentifier(c)
	}

	n, copyErr := tx.CopyFrom(ctx,
		pgx.Identifier{table},
		columns,
		pgx.CopyFromRows(rows),
	)
	if copyErr == nil {
		if err := tx.Commit(ctx); err != nil {
			return 0, fmt.Errorf("commit: %w", err)
		}
		return int(n), nil
	}

	// COPY is all-or-nothing per chunk; the transaction is poisoned, so
	// restart it and insert row by row to salvage the good rows.
	_ = tx.Rollback(ctx)
	slog.Warn("copy rejected, retrying chunk row by row", "table", table, "error", copyErr)

	tx, err = s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin retry: %w", err)
	}
	defer tx.Rollback(ctx)

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentifier(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)

	inserted := 0
	for i, row := range rows {
		sp := fmt.Sprintf("sp_%d", i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+sp); err != nil {
			return inserted, fmt.Errorf("savepoint: %w", err)
		}
		if _, err := tx.Exec(ctx, insertSQL, row...); err != nil {
			_, _ = tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp)
			slog.Warn("row rejected during fallback insert", "table", table, "row", i, "error", err)
			continue
		}
		_, _ = tx.Exec(ctx, "RELEASE SAVEPOINT "+sp)
		inserted++
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit retry: %w", err)
	}
	return inserted, nil
}

// LogValidationErrors writes the flat error list to validation_errors in
// one batched round trip. Field values are truncated so oversized cells
// cannot bloat the table.
func (s *Store) LogValidationErrors(ctx context.Context, runID uuid.UUID, fileSource string, errs []validate.ValidationError) error {
	if len(errs) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for _, e := range errs {
		b.Queue(`INSERT INTO validation_errors
			(run_id, file_source, record_index, field_name, field_value, error_kind, message)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			pgtype.UUID{Bytes: runID, Valid: true},
			fileSource,
			e.RecordIndex,
			e.FieldName,
			truncateFieldValue(e.FieldValue),
			string(e.Kind),
			e.Message,
		)
	}

	res := s.pool.SendBatch(ctx, b)
	defer res.Close()
	for range errs {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("log validation errors: %w", err)
		}
	}
	return nil
}

// RecordRun writes one processing-run row.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO processing_runs
		(id, file_name, target_table, total_records, valid_records, invalid_records, inserted_rows, status, started_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		pgtype.UUID{Bytes: run.ID, Valid: true},
		run.FileName,
		run.TargetTable,
		run.TotalRecords,
		run.ValidRecords,
		run.InvalidRecords,
		run.InsertedRows,
		run.Status,
		toPgTimestamptz(run.StartedAt),
		run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent processing runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `SELECT
			id, file_name, target_table, total_records, valid_records, invalid_records, inserted_rows, status, started_at, duration_ms
		FROM processing_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			id         pgtype.UUID
			startedAt  pgtype.Timestamptz
			durationMS int64
		)
		if err := rows.Scan(&id, &r.FileName, &r.TargetTable, &r.TotalRecords, &r.ValidRecords,
			&r.InvalidRecords, &r.InsertedRows, &r.Status, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.ID = uuid.UUID(id.Bytes)
		r.StartedAt = startedAt.Time
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read runs: %w", err)
	}
	return runs, nil
}

// WasProcessed reports whether fileName already has a successful run, so
// batch sweeps do not reload files the watcher got to first.
func (s *Store) WasProcessed(ctx context.Context, fileName string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM processing_runs WHERE file_name = $1 AND status = $2)`,
		fileName, RunStatusSuccess,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("was processed: %w", err)
	}
	return exists, nil
}

// SummaryRow is one day/status bucket of the processing summary.
type SummaryRow struct {
	Day     time.Time
	Status  string
	Files   int
	Records int
	Valid   int
	Invalid int
}

// ProcessingSummary aggregates the last seven days of runs per day and
// status, newest day first.
func (s *Store) ProcessingSummary(ctx context.Context) ([]SummaryRow, error) {
	rows, err := s.pool.Query(ctx, `SELECT
			date_trunc('day', started_at) AS day,
			status,
			COUNT(*),
			COALESCE(SUM(total_records), 0),
			COALESCE(SUM(valid_records), 0),
			COALESCE(SUM(invalid_records), 0)
		FROM processing_runs
		WHERE started_at >= now() - interval '7 days'
		GROUP BY day, status
		ORDER BY day DESC, status`)
	if err != nil {
		return nil, fmt.Errorf("processing summary: %w", err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var (
			r   SummaryRow
			day pgtype.Timestamptz
		)
		if err := rows.Scan(&day, &r.Status, &r.Files, &r.Records, &r.Valid, &r.Invalid); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		r.Day = day.Time
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}
	return out, nil
}

// RunByID fetches one run by its identifier.
func (s *Store) RunByID(ctx context.Context, id uuid.UUID) (*Run, error) {
	var (
		r          Run
		pgID       pgtype.UUID
		startedAt  pgtype.Timestamptz
		durationMS int64
	)
	err := s.pool.QueryRow(ctx, `SELECT
			id, file_name, target_table, total_records, valid_records, invalid_records, inserted_rows, status, started_at, duration_ms
		FROM processing_runs WHERE id = $1`,
		pgtype.UUID{Bytes: id, Valid: true},
	).Scan(&pgID, &r.FileName, &r.TargetTable, &r.TotalRecords, &r.ValidRecords,
		&r.InvalidRecords, &r.InsertedRows, &r.Status, &startedAt, &durationMS)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("run by id: %w", err)
	}
	r.ID = uuid.UUID(pgID.Bytes)
	r.StartedAt = startedAt.Time
	r.Duration = time.Duration(durationMS) * time.Millisecond
	return &r, nil
}
