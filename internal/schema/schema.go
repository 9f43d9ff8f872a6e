// Package schema models the declarative mapping configuration that drives
// validation and loading: per-field rules, dataset-wide rules, and the
// source/target/ETL settings around them.
//
// A Schema is built once from a decoded Document (see Load and the format
// decoders) and is immutable for the lifetime of a validation run.
// Construction is all-or-nothing: any unrecognized rule kind, missing
// required parameter, or unparseable numeric/date parameter fails with a
// *SchemaError and no partial schema is produced.
package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// DataType classifies a mapped field for target-side conversion.
type DataType int

const (
	TypeString DataType = iota
	TypeNumber
	TypeDate
)

// String returns the canonical name for the data type.
func (t DataType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeDate:
		return "date"
	default:
		return "unknown"
	}
}

// ParseDataType normalizes the type names mapping configs use. Legacy
// configs spell numeric types "int" or "decimal" and date types "datetime".
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text", "varchar":
		return TypeString, nil
	case "number", "numeric", "decimal", "float", "int", "integer":
		return TypeNumber, nil
	case "date", "datetime", "timestamp":
		return TypeDate, nil
	default:
		return TypeString, fmt.Errorf("unknown data type %q", s)
	}
}

// FieldRule maps one source column to a target column and carries the
// ordered validation rules attached to it.
type FieldRule struct {
	SourceField string
	TargetField string
	DataType    DataType
	Required    bool
	Rules       []Rule
}

// DatasetRuleKind identifies a batch-level rule. The set is closed.
type DatasetRuleKind int

const (
	// DatasetDuplicateCheck flags every record sharing a key tuple with
	// another record in the same batch.
	DatasetDuplicateCheck DatasetRuleKind = iota
)

// String returns the config-file tag for the dataset rule kind.
func (k DatasetRuleKind) String() string {
	switch k {
	case DatasetDuplicateCheck:
		return "duplicate_check"
	default:
		return "unknown"
	}
}

// DatasetRule is a validation evaluated once over the whole batch.
type DatasetRule struct {
	Kind   DatasetRuleKind
	Fields []string
}

// Source describes the expected input files.
type Source struct {
	Name      string
	FilePath  string // file path or glob the config expects to ingest
	Delimiter rune
	HasHeader bool
	Encoding  string // normalized; empty means UTF-8
}

// Target describes the destination table.
type Target struct {
	Name             string
	ConnectionString string // optional; runtime env config usually wins
	Table            string
}

// ETL carries processing options from the mapping config.
type ETL struct {
	BatchSize     int
	ErrorHandling string // "continue" or "abort"
	LogLevel      string
	ArchiveFiles  bool
}

// Schema is the validated, immutable mapping configuration.
type Schema struct {
	source  Source
	target  Target
	etl     ETL
	fields  []FieldRule
	dataset []DatasetRule
}

// Source returns the input file settings.
func (s *Schema) Source() Source { return s.source }

// Target returns the destination settings.
func (s *Schema) Target() Target { return s.target }

// ETL returns the processing options.
func (s *Schema) ETL() ETL { return s.etl }

// Fields returns the field rules in declaration order.
// The returned slice is shared; callers must not modify it.
func (s *Schema) Fields() []FieldRule { return s.fields }

// DatasetRules returns the batch-level rules in declaration order.
func (s *Schema) DatasetRules() []DatasetRule { return s.dataset }

// SourceFields returns every declared source column name in order.
func (s *Schema) SourceFields() []string {
	cols := make([]string, len(s.fields))
	for i, f := range s.fields {
		cols[i] = f.SourceField
	}
	return cols
}

// SchemaError reports a malformed mapping configuration. Construction
// surfaces the first offending field and rule so config authors can find
// the problem without reading a stack of wrapped errors.
type SchemaError struct {
	Field string // offending field mapping, empty for document-level faults
	Rule  string // offending rule tag, empty when not rule-specific
	Msg   string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	switch {
	case e.Field != "" && e.Rule != "":
		return fmt.Sprintf("invalid mapping config: field %q: %s rule: %s", e.Field, e.Rule, e.Msg)
	case e.Field != "":
		return fmt.Sprintf("invalid mapping config: field %q: %s", e.Field, e.Msg)
	default:
		return fmt.Sprintf("invalid mapping config: %s", e.Msg)
	}
}

func schemaErrorf(field, rule, format string, args ...any) *SchemaError {
	return &SchemaError{Field: field, Rule: rule, Msg: fmt.Sprintf(format, args...)}
}

// supportedEncodings maps the encoding names configs may use to their
// normalized form. Empty input means plain UTF-8.
var supportedEncodings = map[string]string{
	"":             "",
	"utf-8":        "",
	"utf8":         "",
	"windows-1252": "windows-1252",
	"cp1252":       "windows-1252",
	"latin-1":      "latin-1",
	"iso-8859-1":   "latin-1",
}

// New builds an immutable Schema from a decoded Document. It validates
// every field mapping and rule up front; the returned error is always a
// *SchemaError describing the first problem found.
func New(doc *Document) (*Schema, error) {
	if doc == nil {
		return nil, schemaErrorf("", "", "empty document")
	}
	if len(doc.Fields) == 0 {
		return nil, schemaErrorf("", "", "no field mappings declared")
	}

	s := &Schema{
		source: Source{
			Name:      doc.Source.Name,
			FilePath:  doc.Source.FilePath,
			Delimiter: ',',
			HasHeader: true,
		},
		target: Target{
			Name:             doc.Target.Name,
			ConnectionString: doc.Target.ConnectionString,
			Table:            doc.Target.Table,
		},
		etl: ETL{
			BatchSize:     doc.ETL.BatchSize,
			ErrorHandling: doc.ETL.ErrorHandling,
			LogLevel:      doc.ETL.LogLevel,
		},
	}

	if d := strings.TrimSpace(doc.Source.Delimiter); d != "" {
		runes := []rune(d)
		if len(runes) != 1 {
			return nil, schemaErrorf("", "", "delimiter must be a single character, got %q", d)
		}
		s.source.Delimiter = runes[0]
	}
	if doc.Source.HasHeader != nil {
		s.source.HasHeader = *doc.Source.HasHeader
	}
	enc, ok := supportedEncodings[strings.ToLower(strings.TrimSpace(doc.Source.Encoding))]
	if !ok {
		return nil, schemaErrorf("", "", "unsupported source encoding %q", doc.Source.Encoding)
	}
	s.source.Encoding = enc

	if s.etl.BatchSize <= 0 {
		s.etl.BatchSize = 1000
	}
	switch s.etl.ErrorHandling {
	case "":
		s.etl.ErrorHandling = "continue"
	case "continue", "abort":
	default:
		return nil, schemaErrorf("", "", "error_handling must be continue or abort, got %q", s.etl.ErrorHandling)
	}
	if doc.ETL.ArchiveFiles != nil {
		s.etl.ArchiveFiles = *doc.ETL.ArchiveFiles
	}

	seen := make(map[string]bool, len(doc.Fields))
	s.fields = make([]FieldRule, 0, len(doc.Fields))
	for _, fd := range doc.Fields {
		if fd.Source == "" {
			return nil, schemaErrorf("", "", "field mapping with empty source name")
		}
		if seen[fd.Source] {
			return nil, schemaErrorf(fd.Source, "", "duplicate source field")
		}
		seen[fd.Source] = true

		target := fd.Target
		if target == "" {
			target = fd.Source
		}
		dt, err := ParseDataType(fd.DataType)
		if err != nil {
			return nil, schemaErrorf(fd.Source, "", "%v", err)
		}

		fr := FieldRule{
			SourceField: fd.Source,
			TargetField: target,
			DataType:    dt,
			Required:    fd.Required,
			Rules:       make([]Rule, 0, len(fd.Rules)),
		}
		for _, rd := range fd.Rules {
			rule, err := buildRule(fd.Source, rd)
			if err != nil {
				return nil, err
			}
			fr.Rules = append(fr.Rules, rule)
		}
		s.fields = append(s.fields, fr)
	}

	s.dataset = make([]DatasetRule, 0, len(doc.Dataset))
	for _, dd := range doc.Dataset {
		dr, err := buildDatasetRule(dd)
		if err != nil {
			return nil, err
		}
		s.dataset = append(s.dataset, dr)
	}

	return s, nil
}

// buildDatasetRule validates one batch-level rule definition.
func buildDatasetRule(dd DatasetDef) (DatasetRule, error) {
	if dd.Kind != "duplicate_check" {
		return DatasetRule{}, schemaErrorf("", dd.Kind, "unknown dataset rule kind")
	}
	var fields []string
	for _, f := range strings.Split(dd.Params["fields"], ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return DatasetRule{}, schemaErrorf("", dd.Kind, "missing fields parameter")
	}
	return DatasetRule{Kind: DatasetDuplicateCheck, Fields: fields}, nil
}

// parseFloatParam parses an optional numeric rule parameter.
func parseFloatParam(field, rule string, params map[string]string, key string) (*float64, error) {
	raw, ok := params[key]
	if !ok {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, schemaErrorf(field, rule, "parameter %s=%q is not numeric", key, raw)
	}
	return &f, nil
}
