package schema

// rule.go defines the per-field validation rule variant. The kind set is
// closed: evaluators switch exhaustively over RuleKind and unknown kinds
// are rejected here, at schema load, never at evaluation time.

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/prodline/mdi/internal/record"
)

// RuleKind identifies one of the fixed validation behaviors.
type RuleKind int

const (
	RuleNotNull RuleKind = iota
	RuleRange
	RuleRegex
	RuleDateRange
	RuleLookup
)

// String returns the config-file tag for the rule kind.
func (k RuleKind) String() string {
	switch k {
	case RuleNotNull:
		return "not_null"
	case RuleRange:
		return "range"
	case RuleRegex:
		return "regex"
	case RuleDateRange:
		return "date_range"
	case RuleLookup:
		return "lookup"
	default:
		return "unknown"
	}
}

// ParseRuleKind maps a config-file tag to its RuleKind.
func ParseRuleKind(s string) (RuleKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "not_null":
		return RuleNotNull, nil
	case "range":
		return RuleRange, nil
	case "regex":
		return RuleRegex, nil
	case "date_range":
		return RuleDateRange, nil
	case "lookup":
		return RuleLookup, nil
	default:
		return RuleNotNull, fmt.Errorf("unknown rule kind %q", s)
	}
}

// Rule is one validation attached to a field. Only the fields matching its
// Kind are populated; everything is resolved and compiled at schema load so
// evaluation never parses parameters.
type Rule struct {
	Kind RuleKind

	// Range bounds, each independently optional, inclusive.
	Min *float64
	Max *float64

	// Regex: compiled with a \A(?:...) wrapper so matching follows the
	// prefix semantics legacy configs were written against (see the
	// validate package doc). RawPattern keeps the config text for
	// messages.
	Pattern     *regexp.Regexp
	RawPattern  string
	Description string

	// DateRange bounds, parsed and verified at load. The raw strings are
	// kept for error messages, which quote the config literal.
	MinDate    *time.Time
	MaxDate    *time.Time
	RawMinDate string
	RawMaxDate string

	// Lookup reference set location.
	Table  string
	Column string
}

// buildRule validates one rule definition against its kind's parameter
// contract and compiles pattern/date parameters.
func buildRule(field string, rd RuleDef) (Rule, error) {
	kind, err := ParseRuleKind(rd.Kind)
	if err != nil {
		return Rule{}, schemaErrorf(field, rd.Kind, "%v", err)
	}

	rule := Rule{Kind: kind}
	switch kind {
	case RuleNotNull:
		// No parameters.

	case RuleRange:
		if rule.Min, err = parseFloatParam(field, rd.Kind, rd.Params, "min"); err != nil {
			return Rule{}, err
		}
		if rule.Max, err = parseFloatParam(field, rd.Kind, rd.Params, "max"); err != nil {
			return Rule{}, err
		}
		if rule.Min != nil && rule.Max != nil && *rule.Min > *rule.Max {
			return Rule{}, schemaErrorf(field, rd.Kind, "min %v exceeds max %v", *rule.Min, *rule.Max)
		}

	case RuleRegex:
		raw, ok := rd.Params["pattern"]
		if !ok || raw == "" {
			return Rule{}, schemaErrorf(field, rd.Kind, "missing pattern parameter")
		}
		compiled, err := regexp.Compile(`\A(?:` + raw + `)`)
		if err != nil {
			return Rule{}, schemaErrorf(field, rd.Kind, "invalid pattern %q: %v", raw, err)
		}
		rule.Pattern = compiled
		rule.RawPattern = raw
		rule.Description = rd.Params["description"]

	case RuleDateRange:
		if rule.MinDate, rule.RawMinDate, err = parseDateParam(field, rd.Kind, rd.Params, "min"); err != nil {
			return Rule{}, err
		}
		if rule.MaxDate, rule.RawMaxDate, err = parseDateParam(field, rd.Kind, rd.Params, "max"); err != nil {
			return Rule{}, err
		}
		if rule.MinDate != nil && rule.MaxDate != nil && rule.MinDate.After(*rule.MaxDate) {
			return Rule{}, schemaErrorf(field, rd.Kind, "min %s after max %s", rule.RawMinDate, rule.RawMaxDate)
		}

	case RuleLookup:
		rule.Table = strings.TrimSpace(rd.Params["table"])
		rule.Column = strings.TrimSpace(rd.Params["column"])
		if rule.Table == "" {
			return Rule{}, schemaErrorf(field, rd.Kind, "missing table parameter")
		}
		if rule.Column == "" {
			return Rule{}, schemaErrorf(field, rd.Kind, "missing column parameter")
		}
	}

	return rule, nil
}

// parseDateParam parses an optional date-literal rule parameter using the
// same layouts cell coercion accepts.
func parseDateParam(field, rule string, params map[string]string, key string) (*time.Time, string, error) {
	raw, ok := params[key]
	if !ok {
		return nil, "", nil
	}
	t, ok := record.Text(raw).Time()
	if !ok {
		return nil, "", schemaErrorf(field, rule, "parameter %s=%q is not a recognized date", key, raw)
	}
	return &t, raw, nil
}
