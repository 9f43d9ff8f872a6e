package etl

// report.go renders the console summary for one processed file. The
// summary is informational; the durable results are the target table,
// the error table, and the run record.

import (
	"fmt"
	"io"
)

// writeReport prints the human-readable run summary to w.
func writeReport(w io.Writer, r *Result) {
	s := r.Summary

	fmt.Fprintf(w, "\n=== Processing Summary: %s ===\n", r.File)
	fmt.Fprintf(w, "Status:          %s\n", r.Status)
	fmt.Fprintf(w, "Total records:   %d\n", s.Total)
	fmt.Fprintf(w, "Valid records:   %d (%.1f%%)\n", s.Valid, s.ValidPct)
	fmt.Fprintf(w, "Invalid records: %d (%.1f%%)\n", s.Invalid, s.InvalidPct)
	if r.Inserted > 0 {
		fmt.Fprintf(w, "Rows loaded:     %d\n", r.Inserted)
	}
	fmt.Fprintf(w, "Duration:        %s\n", r.Duration.Round(timeRound))

	if s.ErrorCount == 0 {
		return
	}
	fmt.Fprintf(w, "\nFirst %d of %d validation errors:\n", len(s.FirstErrors), s.ErrorCount)
	for _, e := range s.FirstErrors {
		fmt.Fprintf(w, "  row %d  %-22s %s: %s\n", e.RecordIndex, e.FieldName, e.Kind, e.Message)
	}
}
