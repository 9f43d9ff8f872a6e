// Package refdata provides reference-value providers for lookup rules.
//
// A provider resolves the set of known values for a (table, column) pair.
// The postgres provider queries lookup tables directly; the static provider
// serves fixed sets for dry runs and tests.
package refdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PG resolves reference values from postgres lookup tables.
type PG struct {
	pool *pgxpool.Pool
}

// NewPG returns a provider backed by the given pool.
func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

// ReferenceValues loads the distinct non-null values of table.column.
// Values are compared as strings downstream, so non-text columns are
// cast in SQL rather than scanned by column type.
func (p *PG) ReferenceValues(ctx context.Context, table, column string) (map[string]struct{}, error) {
	query := fmt.Sprintf(
		"SELECT DISTINCT %s::text FROM %s WHERE %s IS NOT NULL",
		quoteIdentifier(column),
		quoteIdentifier(table),
		quoteIdentifier(column),
	)

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	values := make(map[string]struct{})
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s.%s: %w", table, column, err)
		}
		values[v] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s.%s: %w", table, column, err)
	}
	return values, nil
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
