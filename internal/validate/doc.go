// Package validate implements the rule engine that partitions a batch of
// manufacturing records into valid and invalid sets with per-record error
// attribution.
//
// This package is pure domain logic, independent of any file format,
// database, or transport. It can be driven by the ETL pipeline, the CLI,
// or tests without modification.
//
// # Phases
//
// A validation run has two phases with immutable results:
//
//  1. Row phase: every record is checked independently against the schema's
//     field rules. Required fields that are null produce exactly one
//     REQUIRED_FIELD_MISSING error and skip the field's remaining rules;
//     null optional fields are skipped outright. All other rules attached
//     to a field run in declared order and every failure is collected (no
//     short-circuiting within a record).
//  2. Dataset phase: batch-level rules run over the complete batch. A
//     duplicate check groups records by a key tuple and demotes every
//     member of a group of two or more from valid to invalid, appending one
//     DUPLICATE error per demoted record. The phase consumes the row-phase
//     Outcome and produces a new one; it never moves a record back to
//     valid, and re-running it on its own output changes nothing.
//
// The two index sets in an Outcome always partition the input range
// exactly: every record is in one set and no record is in both.
//
// # Fatal conditions
//
// Two faults abort a run before any per-record work: a malformed schema
// (*schema.SchemaError, raised at load) and an input batch that is missing
// a declared source column entirely (*SchemaMismatchError). Everything
// else is captured as per-record data and never stops the run.
//
// # Regex matching
//
// Regex rules match at the start of the value only, not against the whole
// string. Legacy mapping configs were authored against engines with that
// behavior and their patterns often omit a trailing anchor; full-string
// matching would silently change which records pass. Patterns wanting a
// full match must end with $. This is a known source of false negatives
// with prefix-shaped data.
//
// # Lookups
//
// Lookup rules resolve their reference sets through a ReferenceProvider.
// Results, including resolution failures, are cached per (table, column)
// for the duration of one Validate call and never shared across runs.
// Provider failures surface as LOOKUP errors on the affected records, not
// as a fatal error.
//
// # Concurrency
//
// Rows have no ordering dependency, so the row phase can fan out across a
// bounded worker group. Results land in an index-addressed slice, keeping
// the merged error order deterministic regardless of worker count. The
// dataset phase is a single pass over the whole batch and runs serially.
package validate
