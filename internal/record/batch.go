package record

// Record maps a source field name to its cell value for one row.
// A missing key reads as Null; validation treats absent and null alike.
type Record map[string]Value

// Get returns the value for field, or Null when the field is absent.
func (r Record) Get(field string) Value {
	if v, ok := r[field]; ok {
		return v
	}
	return Null()
}

// Batch is one parsed input file: the column names in input order plus one
// Record per data row. Batches are caller-owned; validation only reads them.
type Batch struct {
	Columns []string
	Rows    []Record
}

// Len returns the number of data rows.
func (b *Batch) Len() int {
	return len(b.Rows)
}

// HasColumn reports whether name appears in the batch's column list.
func (b *Batch) HasColumn(name string) bool {
	for _, c := range b.Columns {
		if c == name {
			return true
		}
	}
	return false
}
