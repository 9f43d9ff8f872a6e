package record

// value.go defines the scalar value model for ingested cell data.
//
// Cells arrive from CSV files in a loosely-typed mix: numeric strings,
// date strings, native-looking numbers, and blanks. Value closes that mess
// into four kinds (Null, Text, Number, Timestamp) with explicit coercions,
// so rule evaluation can treat a failed coercion as a distinct, reportable
// condition instead of a crash or a silent pass:
//   - Multiple date formats (US, EU, ISO, with and without time of day)
//   - Currency symbols and thousand separators in numbers
//   - Accounting-style negatives "(123.45)"
//   - Common CSV artifacts (blanks, stray whitespace)

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindTimestamp
)

// String returns the kind name used in logs and error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Value is an immutable scalar cell value. The zero Value is Null.
type Value struct {
	kind Kind
	text string
	num  float64
	ts   time.Time
}

// Null returns the null Value.
func Null() Value {
	return Value{kind: KindNull}
}

// Text returns a text Value holding s verbatim.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Number returns a numeric Value.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Timestamp returns a time-instant Value.
func Timestamp(t time.Time) Value {
	return Value{kind: KindTimestamp, ts: t}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether v is the null Value.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// String renders the canonical text form of v: the empty string for Null,
// the verbatim text for Text, minimal decimal notation for Number (300.0
// renders as "300"), and RFC 3339 for Timestamp.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindTimestamp:
		return v.ts.Format(time.RFC3339)
	default:
		return ""
	}
}

// numericRegex validates that a string is a plain numeric literal after
// cleanup. Matches integers, decimals, and scientific notation but rejects
// the Inf/NaN spellings strconv would otherwise accept.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Float coerces v to a float64. Number passes through. Text is parsed with
// the forgiving cleanup below. Null and Timestamp never coerce.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindText:
		return parseNumeric(v.text)
	default:
		return 0, false
	}
}

// parseNumeric parses a numeric string after stripping the artifacts CSV
// exports commonly carry: currency symbols, thousands separators, and
// accounting parentheses for negatives.
func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	// Accounting format "(123.45)" means negative
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future are
// assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Timestamp layouts split by shape: layouts carrying a time of day are
// tried first, then date-only layouts, then 2-digit-year layouts with
// pivot adjustment.
var (
	dateTimeLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006-01-02 15:04",
		"1/2/2006 15:04:05",
		"1/2/2006 3:04 PM",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
)

// Time coerces v to a time instant. Timestamp passes through. Text is
// parsed against the supported layouts. Number never coerces; numeric
// cells are not treated as epoch offsets.
func (v Value) Time() (time.Time, bool) {
	switch v.kind {
	case KindTimestamp:
		return v.ts, true
	case KindText:
		return parseTime(v.text)
	default:
		return time.Time{}, false
	}
}

// parseTime parses a date or datetime string against the layout lists.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// Infer builds a Value from a raw CSV cell. Blank or whitespace-only cells
// become Null, cells that parse as a plain number become Number, and
// everything else stays Text. Date strings stay Text; date coercion is the
// concern of the rule that needs an instant.
func Infer(cell string) Value {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return Null()
	}
	if numericRegex.MatchString(trimmed) {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return Number(f)
		}
	}
	return Text(trimmed)
}
