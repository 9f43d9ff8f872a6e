package store

// convert.go maps cell values to the pgtype wire representations used by
// COPY and the fallback inserts. Nulls and failed coercions become invalid
// pgtype values so the database stores NULL rather than a bogus zero.

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/prodline/mdi/internal/record"
	"github.com/prodline/mdi/internal/schema"
)

// maxFieldValueLen bounds stringified field values written to the error
// table; anything longer is truncated so one pathological cell cannot
// bloat the table.
const maxFieldValueLen = 255

// toPgValue converts one validated cell to the pgtype value for its
// declared data type. Validation ran first, so a coercion failure here
// means the field carried no coercion rule; such values fall back to text
// NULL semantics rather than failing the load.
func toPgValue(v record.Value, dt schema.DataType) any {
	if v.IsNull() {
		return nil
	}
	switch dt {
	case schema.TypeNumber:
		return toPgFloat8(v)
	case schema.TypeDate:
		return toPgTimestamp(v)
	default:
		return toPgText(v.String())
	}
}

// toPgText converts a string to pgtype.Text, invalid for blank input.
func toPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// toPgFloat8 converts a numeric-coercible value to pgtype.Float8.
func toPgFloat8(v record.Value) pgtype.Float8 {
	f, ok := v.Float()
	if !ok {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}

// toPgTimestamp converts a date-coercible value to pgtype.Timestamp.
func toPgTimestamp(v record.Value) pgtype.Timestamp {
	t, ok := v.Time()
	if !ok {
		return pgtype.Timestamp{Valid: false}
	}
	return pgtype.Timestamp{Time: t, Valid: true}
}

// toPgTimestamptz wraps a known-good time for bookkeeping columns.
func toPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// truncateFieldValue caps a stringified cell for the error table. The
// cut backs up to a rune boundary so the stored value stays valid
// UTF-8; postgres rejects text with a split multi-byte sequence.
func truncateFieldValue(s string) string {
	if len(s) <= maxFieldValueLen {
		return s
	}
	cut := maxFieldValueLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// quoteIdentifier quotes a SQL identifier to prevent injection. Target
// table and column names come from mapping configs, which are operator
// input, not trusted SQL.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
