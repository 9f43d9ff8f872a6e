package validate

import (
	"fmt"
	"strings"
)

// ErrorKind tags a record-level validation failure. The values are stable
// identifiers; they are stored in the error table and matched by reporting
// queries, so they never change spelling.
type ErrorKind string

const (
	KindRequiredFieldMissing ErrorKind = "REQUIRED_FIELD_MISSING"
	KindNotNull              ErrorKind = "NOT_NULL"
	KindRange                ErrorKind = "RANGE"
	KindNumeric              ErrorKind = "NUMERIC"
	KindRegex                ErrorKind = "REGEX"
	KindDateRange            ErrorKind = "DATE_RANGE"
	KindDateFormat           ErrorKind = "DATE_FORMAT"
	KindLookup               ErrorKind = "LOOKUP"
	KindDuplicate            ErrorKind = "DUPLICATE"
)

// ValidationError is one rule failure attributed to one record. It is
// plain data: produced once, never mutated, serializable to the error
// table or a report without further translation.
type ValidationError struct {
	RecordIndex int
	FieldName   string
	FieldValue  string
	Kind        ErrorKind
	Message     string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.RecordIndex, e.Kind, e.Message)
}

// SchemaMismatchError reports input that is structurally incompatible with
// the schema: one or more declared source columns are absent from the
// batch. It aborts the whole run; it is never attributed to a record.
type SchemaMismatchError struct {
	Missing []string
}

// Error implements the error interface.
func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("input missing declared source columns: %s", strings.Join(e.Missing, ", "))
}
