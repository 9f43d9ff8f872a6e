package validate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prodline/mdi/internal/record"
	"github.com/prodline/mdi/internal/schema"
)

// mustRule builds a single compiled rule through the schema constructor so
// evaluator tests exercise the same parameters a loaded config produces.
func mustRule(t *testing.T, kind string, params map[string]string) schema.Rule {
	t.Helper()
	doc := &schema.Document{
		Fields: []schema.FieldDef{{
			Source:   "field",
			DataType: "string",
			Rules:    []schema.RuleDef{{Kind: kind, Params: params}},
		}},
	}
	s, err := schema.New(doc)
	if err != nil {
		t.Fatalf("schema.New() error = %v", err)
	}
	return s.Fields()[0].Rules[0]
}

// fakeProvider counts resolutions and can fail on demand.
type fakeProvider struct {
	sets  map[string]map[string]struct{}
	err   error
	calls int
}

func (p *fakeProvider) ReferenceValues(_ context.Context, table, column string) (map[string]struct{}, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.sets[table+"."+column], nil
}

func asSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// ===== NotNull Evaluator Tests =====

func TestEvalNotNull(t *testing.T) {
	rule := mustRule(t, "not_null", nil)

	tests := []struct {
		name     string
		value    record.Value
		wantFail bool
	}{
		{name: "null fails", value: record.Null(), wantFail: true},
		{name: "whitespace-only fails", value: record.Text("   "), wantFail: true},
		{name: "text passes", value: record.Text("BATCH001"), wantFail: false},
		{name: "zero number passes", value: record.Number(0), wantFail: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluateRule(context.Background(), 0, "batch_number", tt.value, rule, newLookupCache(nil))
			if (got != nil) != tt.wantFail {
				t.Fatalf("evaluateRule() = %v, wantFail %v", got, tt.wantFail)
			}
			if got != nil && got.Kind != KindNotNull {
				t.Errorf("kind = %s, want %s", got.Kind, KindNotNull)
			}
		})
	}
}

// ===== Range Evaluator Tests =====

func TestEvalRange(t *testing.T) {
	bounded := mustRule(t, "range", map[string]string{"min": "0", "max": "250"})
	minOnly := mustRule(t, "range", map[string]string{"min": "0"})
	maxOnly := mustRule(t, "range", map[string]string{"max": "100"})

	tests := []struct {
		name     string
		rule     schema.Rule
		value    record.Value
		wantKind ErrorKind // empty means pass
	}{
		{name: "in range", rule: bounded, value: record.Number(150), wantKind: ""},
		{name: "minimum is inclusive", rule: bounded, value: record.Number(0), wantKind: ""},
		{name: "maximum is inclusive", rule: bounded, value: record.Number(250), wantKind: ""},
		{name: "below minimum", rule: bounded, value: record.Number(-1), wantKind: KindRange},
		{name: "above maximum", rule: bounded, value: record.Number(300), wantKind: KindRange},
		{name: "numeric text in range", rule: bounded, value: record.Text("150.5"), wantKind: ""},
		{name: "non-numeric text", rule: bounded, value: record.Text("abc"), wantKind: KindNumeric},
		{name: "timestamp never coerces", rule: bounded, value: record.Timestamp(time.Now()), wantKind: KindNumeric},
		{name: "one-sided min passes above", rule: minOnly, value: record.Number(99999), wantKind: ""},
		{name: "one-sided min fails below", rule: minOnly, value: record.Number(-0.5), wantKind: KindRange},
		{name: "one-sided max passes below", rule: maxOnly, value: record.Number(-40), wantKind: ""},
		{name: "one-sided max fails above", rule: maxOnly, value: record.Number(101), wantKind: KindRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluateRule(context.Background(), 3, "temperature_c", tt.value, tt.rule, newLookupCache(nil))
			if tt.wantKind == "" {
				if got != nil {
					t.Fatalf("evaluateRule() = %v, want pass", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("evaluateRule() = nil, want %s", tt.wantKind)
			}
			if got.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", got.Kind, tt.wantKind)
			}
			if got.RecordIndex != 3 || got.FieldName != "temperature_c" {
				t.Errorf("attribution = row %d field %s, want row 3 field temperature_c",
					got.RecordIndex, got.FieldName)
			}
		})
	}
}

func TestEvalRangeMessages(t *testing.T) {
	rule := mustRule(t, "range", map[string]string{"min": "0", "max": "250"})

	below := evaluateRule(context.Background(), 0, "temperature_c", record.Number(-5), rule, newLookupCache(nil))
	if below == nil || !strings.Contains(below.Message, "below minimum 0") {
		t.Errorf("below-minimum message = %v, want mention of minimum", below)
	}

	above := evaluateRule(context.Background(), 0, "temperature_c", record.Number(300), rule, newLookupCache(nil))
	if above == nil || !strings.Contains(above.Message, "exceeds maximum 250") {
		t.Errorf("above-maximum message = %v, want mention of maximum", above)
	}

	numeric := evaluateRule(context.Background(), 0, "temperature_c", record.Text("abc"), rule, newLookupCache(nil))
	if numeric == nil || numeric.Message != "temperature_c='abc' is not a valid number" {
		t.Errorf("coercion message = %v, want canonical NUMERIC message", numeric)
	}
}

// ===== Regex Evaluator Tests =====

func TestEvalRegex(t *testing.T) {
	anchored := mustRule(t, "regex", map[string]string{"pattern": `^LINE\d{3}$`})
	unanchored := mustRule(t, "regex", map[string]string{"pattern": `LINE\d{3}`})

	tests := []struct {
		name     string
		rule     schema.Rule
		value    record.Value
		wantFail bool
	}{
		{name: "full match passes", rule: anchored, value: record.Text("LINE001"), wantFail: false},
		{name: "no match fails", rule: anchored, value: record.Text("BADLINE"), wantFail: true},
		{name: "trailing garbage fails anchored pattern", rule: anchored, value: record.Text("LINE001X"), wantFail: true},
		{name: "prefix match passes unanchored pattern", rule: unanchored, value: record.Text("LINE001-spare"), wantFail: false},
		{name: "mid-string match still fails", rule: unanchored, value: record.Text("xxLINE001"), wantFail: true},
		{name: "number is stringified before matching", rule: unanchored, value: record.Number(7), wantFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluateRule(context.Background(), 0, "line_id", tt.value, tt.rule, newLookupCache(nil))
			if (got != nil) != tt.wantFail {
				t.Fatalf("evaluateRule() = %v, wantFail %v", got, tt.wantFail)
			}
			if got != nil && got.Kind != KindRegex {
				t.Errorf("kind = %s, want %s", got.Kind, KindRegex)
			}
		})
	}
}

func TestEvalRegexDescription(t *testing.T) {
	described := mustRule(t, "regex", map[string]string{
		"pattern":     `^LINE\d{3}$`,
		"description": "LINE followed by 3 digits",
	})
	bare := mustRule(t, "regex", map[string]string{"pattern": `^LINE\d{3}$`})

	got := evaluateRule(context.Background(), 0, "line_id", record.Text("BADLINE"), described, newLookupCache(nil))
	if got == nil || !strings.HasSuffix(got.Message, "required format: LINE followed by 3 digits") {
		t.Errorf("described message = %v, want description suffix", got)
	}

	got = evaluateRule(context.Background(), 0, "line_id", record.Text("BADLINE"), bare, newLookupCache(nil))
	if got == nil || !strings.Contains(got.Message, `match pattern ^LINE\d{3}$`) {
		t.Errorf("bare message = %v, want pattern fallback", got)
	}
}

// ===== DateRange Evaluator Tests =====

func TestEvalDateRange(t *testing.T) {
	rule := mustRule(t, "date_range", map[string]string{"min": "2020-01-01", "max": "2030-12-31"})

	tests := []struct {
		name     string
		value    record.Value
		wantKind ErrorKind
	}{
		{name: "within bounds", value: record.Text("2024-02-15 10:00:00"), wantKind: ""},
		{name: "minimum is inclusive", value: record.Text("2020-01-01"), wantKind: ""},
		{name: "before minimum", value: record.Text("2019-12-31"), wantKind: KindDateRange},
		{name: "after maximum", value: record.Text("2031-01-01"), wantKind: KindDateRange},
		{name: "native timestamp within bounds", value: record.Timestamp(time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC)), wantKind: ""},
		{name: "unparseable text", value: record.Text("not-a-date"), wantKind: KindDateFormat},
		{name: "number never coerces", value: record.Number(20240215), wantKind: KindDateFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluateRule(context.Background(), 0, "timestamp", tt.value, rule, newLookupCache(nil))
			if tt.wantKind == "" {
				if got != nil {
					t.Fatalf("evaluateRule() = %v, want pass", got)
				}
				return
			}
			if got == nil || got.Kind != tt.wantKind {
				t.Fatalf("evaluateRule() = %v, want kind %s", got, tt.wantKind)
			}
		})
	}
}

func TestEvalDateRangeMessagesQuoteConfigLiterals(t *testing.T) {
	rule := mustRule(t, "date_range", map[string]string{"min": "2020-01-01", "max": "2030-12-31"})

	got := evaluateRule(context.Background(), 0, "timestamp", record.Text("2019-06-01"), rule, newLookupCache(nil))
	if got == nil || !strings.Contains(got.Message, "date before minimum 2020-01-01") {
		t.Errorf("message = %v, want config literal in message", got)
	}
}

// ===== Lookup Evaluator Tests =====

func TestEvalLookup(t *testing.T) {
	rule := mustRule(t, "lookup", map[string]string{"table": "ProductMaster", "column": "ProductCode"})
	provider := &fakeProvider{
		sets: map[string]map[string]struct{}{
			"ProductMaster.ProductCode": asSet("PROD-A1", "PROD-B2", "PROD-C3", "PROD-D4"),
		},
	}
	cache := newLookupCache(provider)

	if got := evaluateRule(context.Background(), 0, "product_code", record.Text("PROD-A1"), rule, cache); got != nil {
		t.Fatalf("known value = %v, want pass", got)
	}

	got := evaluateRule(context.Background(), 1, "product_code", record.Text("PROD-ZZ"), rule, cache)
	if got == nil || got.Kind != KindLookup {
		t.Fatalf("unknown value = %v, want LOOKUP", got)
	}
	if got.Message != "product_code='PROD-ZZ' not found in ProductMaster" {
		t.Errorf("message = %q, want canonical lookup message", got.Message)
	}
}

func TestEvalLookupCachesPerRun(t *testing.T) {
	rule := mustRule(t, "lookup", map[string]string{"table": "ProductMaster", "column": "ProductCode"})
	provider := &fakeProvider{
		sets: map[string]map[string]struct{}{
			"ProductMaster.ProductCode": asSet("PROD-A1"),
		},
	}
	cache := newLookupCache(provider)

	for i := 0; i < 10; i++ {
		evaluateRule(context.Background(), i, "product_code", record.Text("PROD-A1"), rule, cache)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1 (cached per run)", provider.calls)
	}

	// A new cache (a new run) resolves again.
	evaluateRule(context.Background(), 0, "product_code", record.Text("PROD-A1"), rule, newLookupCache(provider))
	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want 2 after second run", provider.calls)
	}
}

func TestEvalLookupProviderFailure(t *testing.T) {
	rule := mustRule(t, "lookup", map[string]string{"table": "ProductMaster", "column": "ProductCode"})
	provider := &fakeProvider{err: errors.New("connection refused")}
	cache := newLookupCache(provider)

	got := evaluateRule(context.Background(), 0, "product_code", record.Text("PROD-A1"), rule, cache)
	if got == nil || got.Kind != KindLookup {
		t.Fatalf("provider failure = %v, want LOOKUP error", got)
	}
	if !strings.Contains(got.Message, "cannot be verified against ProductMaster") {
		t.Errorf("message = %q, want resolution-failure wording", got.Message)
	}

	// Failure is cached; the provider is not hammered once per record.
	evaluateRule(context.Background(), 1, "product_code", record.Text("PROD-B2"), rule, cache)
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1 (failures cached)", provider.calls)
	}
}

func TestEvalLookupWithoutProvider(t *testing.T) {
	rule := mustRule(t, "lookup", map[string]string{"table": "ProductMaster", "column": "ProductCode"})

	got := evaluateRule(context.Background(), 0, "product_code", record.Text("PROD-A1"), rule, newLookupCache(nil))
	if got == nil || got.Kind != KindLookup {
		t.Fatalf("no provider = %v, want LOOKUP error", got)
	}
}
