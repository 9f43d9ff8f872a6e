package validate

// outcome.go defines the immutable result of a validation phase and the
// report helpers built on it.

import (
	"github.com/prodline/mdi/internal/record"
)

// summaryErrorSample is how many leading errors a Summary carries for
// quick diagnostics.
const summaryErrorSample = 5

// Outcome is the result of a validation phase. ValidIndices and
// InvalidIndices are sorted and together partition the batch's index range
// exactly: no overlap, no gaps. Outcomes are never mutated; the dataset
// phase builds a new one.
type Outcome struct {
	ValidIndices   []int
	InvalidIndices []int
	Errors         []ValidationError
}

// buildOutcome derives the sorted index partition for a batch of total
// records given the set of invalid indices.
func buildOutcome(total int, invalid map[int]bool, errs []ValidationError) *Outcome {
	o := &Outcome{
		ValidIndices:   make([]int, 0, total-len(invalid)),
		InvalidIndices: make([]int, 0, len(invalid)),
		Errors:         errs,
	}
	for i := 0; i < total; i++ {
		if invalid[i] {
			o.InvalidIndices = append(o.InvalidIndices, i)
		} else {
			o.ValidIndices = append(o.ValidIndices, i)
		}
	}
	return o
}

// invalidSet rebuilds the invalid-index set for phase transitions.
func (o *Outcome) invalidSet() map[int]bool {
	set := make(map[int]bool, len(o.InvalidIndices))
	for _, i := range o.InvalidIndices {
		set[i] = true
	}
	return set
}

// Valid selects the valid records from batch, preserving original order.
func (o *Outcome) Valid(batch *record.Batch) []record.Record {
	return selectRows(batch, o.ValidIndices)
}

// Invalid selects the invalid records from batch, preserving original order.
func (o *Outcome) Invalid(batch *record.Batch) []record.Record {
	return selectRows(batch, o.InvalidIndices)
}

func selectRows(batch *record.Batch, indices []int) []record.Record {
	rows := make([]record.Record, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(batch.Rows) {
			rows = append(rows, batch.Rows[i])
		}
	}
	return rows
}

// ErrorsFor returns the errors attributed to one record, in insertion
// order.
func (o *Outcome) ErrorsFor(idx int) []ValidationError {
	var errs []ValidationError
	for _, e := range o.Errors {
		if e.RecordIndex == idx {
			errs = append(errs, e)
		}
	}
	return errs
}

// Summary condenses an Outcome for reporting: counts, percentages, and a
// small sample of leading errors. It is informational only.
type Summary struct {
	Total       int
	Valid       int
	Invalid     int
	ValidPct    float64
	InvalidPct  float64
	ErrorCount  int
	FirstErrors []ValidationError
}

// Summarize builds the report view of the outcome.
func (o *Outcome) Summarize() Summary {
	s := Summary{
		Total:      len(o.ValidIndices) + len(o.InvalidIndices),
		Valid:      len(o.ValidIndices),
		Invalid:    len(o.InvalidIndices),
		ErrorCount: len(o.Errors),
	}
	if s.Total > 0 {
		s.ValidPct = float64(s.Valid) / float64(s.Total) * 100
		s.InvalidPct = float64(s.Invalid) / float64(s.Total) * 100
	}

	sample := len(o.Errors)
	if sample > summaryErrorSample {
		sample = summaryErrorSample
	}
	s.FirstErrors = o.Errors[:sample]
	return s
}
