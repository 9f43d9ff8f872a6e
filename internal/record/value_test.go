package record

import (
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// Infer Tests
// ----------------------------------------------------------------------------

func TestInfer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind Kind
		wantStr  string
	}{
		{
			name:     "empty cell is null",
			input:    "",
			wantKind: KindNull,
			wantStr:  "",
		},
		{
			name:     "whitespace-only cell is null",
			input:    "   \t ",
			wantKind: KindNull,
			wantStr:  "",
		},
		{
			name:     "integer cell",
			input:    "0",
			wantKind: KindNumber,
			wantStr:  "0",
		},
		{
			name:     "decimal cell",
			input:    "300.0",
			wantKind: KindNumber,
			wantStr:  "300",
		},
		{
			name:     "negative decimal",
			input:    "-12.5",
			wantKind: KindNumber,
			wantStr:  "-12.5",
		},
		{
			name:     "scientific notation",
			input:    "1e3",
			wantKind: KindNumber,
			wantStr:  "1000",
		},
		{
			name:     "alphanumeric code stays text",
			input:    "BATCH001",
			wantKind: KindText,
			wantStr:  "BATCH001",
		},
		{
			name:     "product code stays text",
			input:    "PROD-A1",
			wantKind: KindText,
			wantStr:  "PROD-A1",
		},
		{
			name:     "datetime string stays text",
			input:    "2024-02-15 10:00:00",
			wantKind: KindText,
			wantStr:  "2024-02-15 10:00:00",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  LINE001  ",
			wantKind: KindText,
			wantStr:  "LINE001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Infer(tt.input)
			if got.Kind() != tt.wantKind {
				t.Errorf("Infer(%q).Kind() = %v, want %v", tt.input, got.Kind(), tt.wantKind)
			}
			if got.String() != tt.wantStr {
				t.Errorf("Infer(%q).String() = %q, want %q", tt.input, got.String(), tt.wantStr)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Float Coercion Tests
// ----------------------------------------------------------------------------

func TestValueFloat(t *testing.T) {
	tests := []struct {
		name   string
		value  Value
		want   float64
		wantOK bool
	}{
		{
			name:   "number passes through",
			value:  Number(42.5),
			want:   42.5,
			wantOK: true,
		},
		{
			name:   "plain numeric text",
			value:  Text("123.45"),
			want:   123.45,
			wantOK: true,
		},
		{
			name:   "currency and thousands separators",
			value:  Text("$1,234.56"),
			want:   1234.56,
			wantOK: true,
		},
		{
			name:   "accounting negative",
			value:  Text("(100)"),
			want:   -100,
			wantOK: true,
		},
		{
			name:   "leading decimal point",
			value:  Text(".99"),
			want:   0.99,
			wantOK: true,
		},
		{
			name:   "scientific notation",
			value:  Text("1e3"),
			want:   1000,
			wantOK: true,
		},
		{
			name:   "non-numeric text fails",
			value:  Text("abc"),
			wantOK: false,
		},
		{
			name:   "infinity spelling rejected",
			value:  Text("Inf"),
			wantOK: false,
		},
		{
			name:   "null fails",
			value:  Null(),
			wantOK: false,
		},
		{
			name:   "timestamp fails",
			value:  Timestamp(time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.value.Float()
			if ok != tt.wantOK {
				t.Fatalf("Float() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Float() = %v, want %v", got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Time Coercion Tests
// ----------------------------------------------------------------------------

func TestValueTime(t *testing.T) {
	tests := []struct {
		name   string
		value  Value
		want   time.Time
		wantOK bool
	}{
		{
			name:   "timestamp passes through",
			value:  Timestamp(time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC)),
			want:   time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "iso datetime",
			value:  Text("2024-02-15 10:00:00"),
			want:   time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "rfc3339",
			value:  Text("2024-02-15T10:00:00Z"),
			want:   time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "date only",
			value:  Text("2024-02-15"),
			want:   time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "us slash date",
			value:  Text("2/15/2024"),
			want:   time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "two-digit year before pivot",
			value:  Text("12/31/99"),
			want:   time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "garbage text fails",
			value:  Text("not-a-date"),
			wantOK: false,
		},
		{
			name:   "number never coerces",
			value:  Number(20240215),
			wantOK: false,
		},
		{
			name:   "null fails",
			value:  Null(),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.value.Time()
			if ok != tt.wantOK {
				t.Fatalf("Time() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("Time() = %v, want %v", got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// String Rendering Tests
// ----------------------------------------------------------------------------

func TestValueString(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{
			name:  "null renders empty",
			value: Null(),
			want:  "",
		},
		{
			name:  "text verbatim",
			value: Text("BADLINE"),
			want:  "BADLINE",
		},
		{
			name:  "integral number without trailing zero",
			value: Number(300.0),
			want:  "300",
		},
		{
			name:  "fractional number",
			value: Number(150.5),
			want:  "150.5",
		},
		{
			name:  "timestamp rfc3339",
			value: Timestamp(time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC)),
			want:  "2024-02-15T10:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Record / Batch Tests
// ----------------------------------------------------------------------------

func TestRecordGet(t *testing.T) {
	r := Record{"line_id": Text("LINE001")}

	if got := r.Get("line_id"); got.String() != "LINE001" {
		t.Errorf("Get(line_id) = %q, want LINE001", got.String())
	}
	if got := r.Get("missing"); !got.IsNull() {
		t.Errorf("Get(missing) = %v, want null", got)
	}
}

func TestBatchHasColumn(t *testing.T) {
	b := &Batch{Columns: []string{"timestamp", "line_id"}}

	if !b.HasColumn("line_id") {
		t.Error("HasColumn(line_id) = false, want true")
	}
	if b.HasColumn("operator_id") {
		t.Error("HasColumn(operator_id) = true, want false")
	}
}

// ----------------------------------------------------------------------------
// Benchmarks
// ----------------------------------------------------------------------------

func BenchmarkInfer(b *testing.B) {
	cells := []string{"300.0", "LINE001", "", "2024-02-15 10:00:00", "$1,234.56"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Infer(cells[i%len(cells)])
	}
}

func BenchmarkFloatText(b *testing.B) {
	v := Text("$1,234.56")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v.Float()
	}
}
