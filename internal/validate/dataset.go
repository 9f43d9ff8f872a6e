package validate

// dataset.go implements the dataset phase: rules that need visibility
// across the whole batch. The phase consumes the row-phase outcome and
// returns a new one; it only ever demotes records from valid to invalid.

import (
	"fmt"
	"strings"

	"github.com/prodline/mdi/internal/record"
	"github.com/prodline/mdi/internal/schema"
)

// nullKeyToken stands in for a null value inside a duplicate key: two
// records that are both missing a key field still compare equal on it.
const nullKeyToken = "\x00"

// keySeparator joins key parts without colliding with cell text.
const keySeparator = "\x1f"

// applyDatasetRules runs every batch-level rule and returns a fresh
// Outcome. Records already invalid are left untouched, which is what makes
// a second application of the same rules a no-op.
func applyDatasetRules(prev *Outcome, batch *record.Batch, rules []schema.DatasetRule) *Outcome {
	if len(rules) == 0 || batch.Len() == 0 {
		return prev
	}

	total := batch.Len()
	invalid := prev.invalidSet()
	errs := append([]ValidationError(nil), prev.Errors...)

	for _, rule := range rules {
		switch rule.Kind {
		case schema.DatasetDuplicateCheck:
			for _, idx := range duplicateIndices(batch, rule.Fields) {
				if invalid[idx] {
					continue
				}
				invalid[idx] = true
				errs = append(errs, ValidationError{
					RecordIndex: idx,
					FieldName:   strings.Join(rule.Fields, ","),
					FieldValue:  "multiple",
					Kind:        KindDuplicate,
					Message:     fmt.Sprintf("Duplicate combination of %s", strings.Join(rule.Fields, ", ")),
				})
			}
		}
	}

	return buildOutcome(total, invalid, errs)
}

// duplicateIndices returns, in ascending order, every record index whose
// key tuple appears more than once in the batch.
func duplicateIndices(batch *record.Batch, fields []string) []int {
	groups := make(map[string][]int, batch.Len())
	for i, row := range batch.Rows {
		key := duplicateKey(row, fields)
		groups[key] = append(groups[key], i)
	}

	seen := make(map[int]bool, batch.Len())
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		for _, idx := range members {
			seen[idx] = true
		}
	}

	dups := make([]int, 0, len(seen))
	for i := 0; i < batch.Len(); i++ {
		if seen[i] {
			dups = append(dups, i)
		}
	}
	return dups
}

// duplicateKey builds the comparison key for one record over the named
// fields.
func duplicateKey(row record.Record, fields []string) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		v := row.Get(f)
		if v.IsNull() {
			parts[i] = nullKeyToken
			continue
		}
		parts[i] = v.String()
	}
	return strings.Join(parts, keySeparator)
}
