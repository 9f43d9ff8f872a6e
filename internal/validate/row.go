package validate

// row.go implements the row phase: required-field checks plus every
// field rule, applied to one record in schema order.

import (
	"context"
	"fmt"
	"sort"

	"github.com/prodline/mdi/internal/record"
	"github.com/prodline/mdi/internal/schema"
)

// checkColumns verifies the batch carries every declared source column.
// Missing columns are a structural fault with the input file, reported for
// the whole batch before any per-record work.
func checkColumns(batch *record.Batch, s *schema.Schema) error {
	present := make(map[string]bool, len(batch.Columns))
	for _, c := range batch.Columns {
		present[c] = true
	}

	var missing []string
	for _, f := range s.Fields() {
		if !present[f.SourceField] {
			missing = append(missing, f.SourceField)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &SchemaMismatchError{Missing: missing}
	}
	return nil
}

// validateRow collects every rule failure for one record. A null value on
// a required field yields exactly one REQUIRED_FIELD_MISSING error and
// suppresses the field's rules; a null value on an optional field is
// skipped outright. Non-null values run every attached rule in declared
// order, and each failure is appended.
func validateRow(ctx context.Context, idx int, row record.Record, fields []schema.FieldRule, lookups *lookupCache) []ValidationError {
	var errs []ValidationError

	for _, mapping := range fields {
		value := row.Get(mapping.SourceField)

		if value.IsNull() {
			if mapping.Required {
				errs = append(errs, ValidationError{
					RecordIndex: idx,
					FieldName:   mapping.SourceField,
					FieldValue:  "",
					Kind:        KindRequiredFieldMissing,
					Message:     fmt.Sprintf("Required field '%s' is empty", mapping.SourceField),
				})
			}
			continue
		}

		for _, rule := range mapping.Rules {
			if err := evaluateRule(ctx, idx, mapping.SourceField, value, rule, lookups); err != nil {
				errs = append(errs, *err)
			}
		}
	}

	return errs
}
