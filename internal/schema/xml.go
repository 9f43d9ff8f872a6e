package schema

// xml.go decodes the XML mapping-config dialect. The element shapes match
// the mapping_config.xml files manufacturing deployments already have:
// SourceSystem/TargetSystem/FieldMappings/GlobalValidations/ETLConfig with
// rule parameters carried as attributes on <Validation>.

import (
	"encoding/xml"
	"strings"
)

func init() {
	RegisterFormat(".xml", decodeXML)
}

type xmlDocument struct {
	Source xmlSource  `xml:"SourceSystem"`
	Target xmlTarget  `xml:"TargetSystem"`
	Fields xmlFields  `xml:"FieldMappings"`
	Global xmlGlobals `xml:"GlobalValidations"`
	ETL    xmlETL     `xml:"ETLConfig"`
}

type xmlSource struct {
	Name      string `xml:"name,attr"`
	FilePath  string `xml:"FilePath"`
	Delimiter string `xml:"Delimiter"`
	HasHeader string `xml:"HasHeader"`
	Encoding  string `xml:"Encoding"`
}

type xmlTarget struct {
	Name             string `xml:"name,attr"`
	ConnectionString string `xml:"ConnectionString"`
	TargetTable      string `xml:"TargetTable"`
}

type xmlFields struct {
	Fields []xmlField `xml:"Field"`
}

type xmlField struct {
	Source      string          `xml:"source,attr"`
	Target      string          `xml:"target,attr"`
	DataType    string          `xml:"dataType,attr"`
	Required    string          `xml:"required,attr"`
	Validations []xmlValidation `xml:"Validation"`
}

type xmlValidation struct {
	Rule  string     `xml:"rule,attr"`
	Attrs []xml.Attr `xml:",any,attr"`
}

type xmlGlobals struct {
	Validations []xmlValidation `xml:"Validation"`
}

type xmlETL struct {
	BatchSize     int    `xml:"BatchSize"`
	ErrorHandling string `xml:"ErrorHandling"`
	LogLevel      string `xml:"LogLevel"`
	ArchiveFiles  string `xml:"ArchiveProcessedFiles"`
}

// decodeXML parses an XML mapping config into the neutral Document.
func decodeXML(data []byte) (*Document, error) {
	var raw xmlDocument
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	doc := &Document{
		Source: SourceDef{
			Name:      raw.Source.Name,
			FilePath:  raw.Source.FilePath,
			Delimiter: raw.Source.Delimiter,
			HasHeader: parseOptionalBool(raw.Source.HasHeader),
			Encoding:  raw.Source.Encoding,
		},
		Target: TargetDef{
			Name:             raw.Target.Name,
			ConnectionString: raw.Target.ConnectionString,
			Table:            raw.Target.TargetTable,
		},
		ETL: ETLDef{
			BatchSize:     raw.ETL.BatchSize,
			ErrorHandling: raw.ETL.ErrorHandling,
			LogLevel:      raw.ETL.LogLevel,
			ArchiveFiles:  parseOptionalBool(raw.ETL.ArchiveFiles),
		},
	}

	for _, f := range raw.Fields.Fields {
		fd := FieldDef{
			Source:   f.Source,
			Target:   f.Target,
			DataType: f.DataType,
			Required: strings.EqualFold(strings.TrimSpace(f.Required), "true"),
		}
		for _, v := range f.Validations {
			fd.Rules = append(fd.Rules, RuleDef{Kind: v.Rule, Params: attrMap(v.Attrs)})
		}
		doc.Fields = append(doc.Fields, fd)
	}

	for _, v := range raw.Global.Validations {
		doc.Dataset = append(doc.Dataset, DatasetDef{Kind: v.Rule, Params: attrMap(v.Attrs)})
	}

	return doc, nil
}

// attrMap collects the non-rule attributes of a <Validation> element.
func attrMap(attrs []xml.Attr) map[string]string {
	params := make(map[string]string, len(attrs))
	for _, a := range attrs {
		params[a.Name.Local] = a.Value
	}
	return params
}

// parseOptionalBool distinguishes an absent boolean element from "false".
func parseOptionalBool(s string) *bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	b := strings.EqualFold(s, "true")
	return &b
}
