package etl

// csv.go reads one input file into a record.Batch using the mapping
// config's source settings: delimiter, header presence, and legacy
// encoding. Cells are inferred into the closed value variant here, once,
// so validation and loading never re-parse raw text.

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/prodline/mdi/internal/record"
	"github.com/prodline/mdi/internal/schema"
)

// maxHeaderSearchRows bounds how deep into a file the header row is
// searched. Exports sometimes carry title or date lines above the header.
const maxHeaderSearchRows = 10

// ReadBatch parses the CSV file at path according to the schema's source
// settings and returns a Batch ready for validation.
func ReadBatch(path string, sch *schema.Schema) (*record.Batch, error) {
	src := sch.Source()
	declared := sch.SourceFields()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	reader, err := decodeReader(f, src.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(reader)
	cr.Comma = src.Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return &record.Batch{}, nil
	}

	var columns []string
	dataStart := 0
	if src.HasHeader {
		idx := findHeader(rows, declared)
		if idx < 0 {
			return nil, fmt.Errorf("header row not found in first %d rows of %s", maxHeaderSearchRows, path)
		}
		columns = canonicalHeader(rows[idx], declared)
		dataStart = idx + 1
	} else {
		columns = declared
	}

	batch := &record.Batch{Columns: columns}
	for _, row := range rows[dataStart:] {
		if isEmptyRow(row) {
			continue
		}
		rec := make(record.Record, len(columns))
		for i, col := range columns {
			if i < len(row) {
				rec[col] = record.Infer(cleanCell(row[i]))
			}
		}
		batch.Rows = append(batch.Rows, rec)
	}
	return batch, nil
}

// decodeReader wraps f for the declared encoding. UTF-8 input gets BOM
// stripping plus on-the-fly sanitizing; legacy codepages are transcoded.
func decodeReader(f io.Reader, encoding string) (io.Reader, error) {
	switch encoding {
	case "":
		return newUTF8SanitizeReader(newBOMSkipReader(f)), nil
	case "windows-1252":
		return transform.NewReader(f, charmap.Windows1252.NewDecoder()), nil
	case "latin-1":
		return transform.NewReader(f, charmap.ISO8859_1.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported source encoding %q", encoding)
	}
}

// findHeader locates the first row whose cells cover every declared
// source field, comparing case-insensitively after cell cleanup.
func findHeader(rows [][]string, declared []string) int {
	limit := maxHeaderSearchRows
	if len(rows) < limit {
		limit = len(rows)
	}

	for i := 0; i < limit; i++ {
		if coversFields(rows[i], declared) {
			return i
		}
	}
	return -1
}

func coversFields(row []string, declared []string) bool {
	present := make(map[string]bool, len(row))
	for _, cell := range row {
		present[strings.ToLower(cleanCell(cell))] = true
	}
	for _, field := range declared {
		if !present[strings.ToLower(field)] {
			return false
		}
	}
	return len(declared) > 0
}

// canonicalHeader cleans the header cells and swaps in the declared
// spelling for any column that matches a source field case-insensitively,
// so downstream column checks compare exact names.
func canonicalHeader(row []string, declared []string) []string {
	byLower := make(map[string]string, len(declared))
	for _, field := range declared {
		byLower[strings.ToLower(field)] = field
	}

	columns := make([]string, len(row))
	for i, cell := range row {
		c := cleanCell(cell)
		if exact, ok := byLower[strings.ToLower(c)]; ok {
			c = exact
		}
		columns[i] = c
	}
	return columns
}

// cleanCell normalizes one raw cell: whitespace trimmed, stray BOM
// removed, and Excel's ="value" formula wrapper unwrapped.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "\ufeff")
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
