package validate

// evaluate.go holds the per-kind rule evaluators. Each one maps a single
// (field value, rule) pair to at most one ValidationError. Expected
// failure conditions are returned as data; nothing here panics or aborts
// a run.

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/prodline/mdi/internal/record"
	"github.com/prodline/mdi/internal/schema"
)

// ReferenceProvider resolves the permitted value set for a lookup rule.
// Implementations may hit a database or other external source; results are
// cached per (table, column) for the duration of one validation run.
type ReferenceProvider interface {
	ReferenceValues(ctx context.Context, table, column string) (map[string]struct{}, error)
}

// lookupCache memoizes reference-set resolutions for one run. Failures are
// cached alongside successes so an unreachable table is queried once, not
// once per record. The mutex makes it safe for concurrent row workers.
type lookupCache struct {
	provider ReferenceProvider

	mu      sync.Mutex
	entries map[string]lookupEntry
}

type lookupEntry struct {
	values map[string]struct{}
	err    error
}

func newLookupCache(provider ReferenceProvider) *lookupCache {
	return &lookupCache{
		provider: provider,
		entries:  make(map[string]lookupEntry),
	}
}

// resolve returns the cached reference set for (table, column), consulting
// the provider on first use.
func (c *lookupCache) resolve(ctx context.Context, table, column string) (map[string]struct{}, error) {
	key := table + "." + column

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		return entry.values, entry.err
	}

	var entry lookupEntry
	if c.provider == nil {
		entry.err = fmt.Errorf("no reference provider configured")
	} else {
		entry.values, entry.err = c.provider.ReferenceValues(ctx, table, column)
	}
	c.entries[key] = entry
	return entry.values, entry.err
}

// evaluateRule applies one rule to one field value, returning nil on pass.
// The rule kind set is closed; schema construction rejects unknown kinds,
// so the default arm is unreachable with a loaded schema.
func evaluateRule(ctx context.Context, idx int, field string, value record.Value, rule schema.Rule, lookups *lookupCache) *ValidationError {
	switch rule.Kind {
	case schema.RuleNotNull:
		return evalNotNull(idx, field, value)
	case schema.RuleRange:
		return evalRange(idx, field, value, rule)
	case schema.RuleRegex:
		return evalRegex(idx, field, value, rule)
	case schema.RuleDateRange:
		return evalDateRange(idx, field, value, rule)
	case schema.RuleLookup:
		return evalLookup(ctx, idx, field, value, rule, lookups)
	default:
		return nil
	}
}

func evalNotNull(idx int, field string, value record.Value) *ValidationError {
	if value.IsNull() || strings.TrimSpace(value.String()) == "" {
		return &ValidationError{
			RecordIndex: idx,
			FieldName:   field,
			FieldValue:  value.String(),
			Kind:        KindNotNull,
			Message:     fmt.Sprintf("%s cannot be null", field),
		}
	}
	return nil
}

// evalRange coerces to a number first; a value that will not coerce is a
// NUMERIC error, distinct from a RANGE violation. Bounds are inclusive and
// independently optional.
func evalRange(idx int, field string, value record.Value, rule schema.Rule) *ValidationError {
	num, ok := value.Float()
	if !ok {
		return &ValidationError{
			RecordIndex: idx,
			FieldName:   field,
			FieldValue:  value.String(),
			Kind:        KindNumeric,
			Message:     fmt.Sprintf("%s='%s' is not a valid number", field, value.String()),
		}
	}

	if rule.Min != nil && num < *rule.Min {
		return &ValidationError{
			RecordIndex: idx,
			FieldName:   field,
			FieldValue:  value.String(),
			Kind:        KindRange,
			Message:     fmt.Sprintf("%s=%v below minimum %v", field, num, *rule.Min),
		}
	}
	if rule.Max != nil && num > *rule.Max {
		return &ValidationError{
			RecordIndex: idx,
			FieldName:   field,
			FieldValue:  value.String(),
			Kind:        KindRange,
			Message:     fmt.Sprintf("%s=%v exceeds maximum %v", field, num, *rule.Max),
		}
	}
	return nil
}

// evalRegex matches the compiled pattern against the start of the
// stringified value (see the package doc on prefix semantics).
func evalRegex(idx int, field string, value record.Value, rule schema.Rule) *ValidationError {
	if rule.Pattern == nil {
		return nil
	}

	s := value.String()
	if rule.Pattern.MatchString(s) {
		return nil
	}

	desc := rule.Description
	if desc == "" {
		desc = "match pattern " + rule.RawPattern
	}
	return &ValidationError{
		RecordIndex: idx,
		FieldName:   field,
		FieldValue:  s,
		Kind:        KindRegex,
		Message:     fmt.Sprintf("%s='%s' does not match required format: %s", field, s, desc),
	}
}

// evalDateRange coerces to a time instant first; a value that will not
// coerce is a DATE_FORMAT error. Bound messages quote the config literal.
func evalDateRange(idx int, field string, value record.Value, rule schema.Rule) *ValidationError {
	t, ok := value.Time()
	if !ok {
		return &ValidationError{
			RecordIndex: idx,
			FieldName:   field,
			FieldValue:  value.String(),
			Kind:        KindDateFormat,
			Message:     fmt.Sprintf("%s='%s' is not a valid date", field, value.String()),
		}
	}

	if rule.MinDate != nil && t.Before(*rule.MinDate) {
		return &ValidationError{
			RecordIndex: idx,
			FieldName:   field,
			FieldValue:  value.String(),
			Kind:        KindDateRange,
			Message:     fmt.Sprintf("%s date before minimum %s", field, rule.RawMinDate),
		}
	}
	if rule.MaxDate != nil && t.After(*rule.MaxDate) {
		return &ValidationError{
			RecordIndex: idx,
			FieldName:   field,
			FieldValue:  value.String(),
			Kind:        KindDateRange,
			Message:     fmt.Sprintf("%s date after maximum %s", field, rule.RawMaxDate),
		}
	}
	return nil
}

// evalLookup checks membership in the reference set. A provider failure is
// a LOOKUP error on this record, never a fatal condition for the run.
func evalLookup(ctx context.Context, idx int, field string, value record.Value, rule schema.Rule, lookups *lookupCache) *ValidationError {
	s := value.String()

	values, err := lookups.resolve(ctx, rule.Table, rule.Column)
	if err != nil {
		return &ValidationError{
			RecordIndex: idx,
			FieldName:   field,
			FieldValue:  s,
			Kind:        KindLookup,
			Message:     fmt.Sprintf("%s='%s' cannot be verified against %s: %v", field, s, rule.Table, err),
		}
	}

	if _, ok := values[s]; !ok {
		return &ValidationError{
			RecordIndex: idx,
			FieldName:   field,
			FieldValue:  s,
			Kind:        KindLookup,
			Message:     fmt.Sprintf("%s='%s' not found in %s", field, s, rule.Table),
		}
	}
	return nil
}
