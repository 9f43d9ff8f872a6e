package schema

// yaml.go decodes the YAML mapping-config dialect used by newer
// deployments. It carries the same sections as the XML dialect; rule
// parameters are arbitrary scalars (or a list for dataset-rule fields) and
// are normalized to strings before New interprets them.

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

func init() {
	RegisterFormat(".yaml", decodeYAML)
	RegisterFormat(".yml", decodeYAML)
}

type yamlDocument struct {
	Source struct {
		Name      string `yaml:"name"`
		FilePath  string `yaml:"file_path"`
		Delimiter string `yaml:"delimiter"`
		HasHeader *bool  `yaml:"has_header"`
		Encoding  string `yaml:"encoding"`
	} `yaml:"source"`
	Target struct {
		Name             string `yaml:"name"`
		ConnectionString string `yaml:"connection_string"`
		Table            string `yaml:"table"`
	} `yaml:"target"`
	ETL struct {
		BatchSize     int    `yaml:"batch_size"`
		ErrorHandling string `yaml:"error_handling"`
		LogLevel      string `yaml:"log_level"`
		ArchiveFiles  *bool  `yaml:"archive_processed_files"`
	} `yaml:"etl"`
	Fields []struct {
		Source   string           `yaml:"source"`
		Target   string           `yaml:"target"`
		DataType string           `yaml:"type"`
		Required bool             `yaml:"required"`
		Rules    []map[string]any `yaml:"rules"`
	} `yaml:"fields"`
	DatasetRules []map[string]any `yaml:"dataset_rules"`
}

// decodeYAML parses a YAML mapping config into the neutral Document.
func decodeYAML(data []byte) (*Document, error) {
	var raw yamlDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	doc := &Document{
		Source: SourceDef{
			Name:      raw.Source.Name,
			FilePath:  raw.Source.FilePath,
			Delimiter: raw.Source.Delimiter,
			HasHeader: raw.Source.HasHeader,
			Encoding:  raw.Source.Encoding,
		},
		Target: TargetDef{
			Name:             raw.Target.Name,
			ConnectionString: raw.Target.ConnectionString,
			Table:            raw.Target.Table,
		},
		ETL: ETLDef{
			BatchSize:     raw.ETL.BatchSize,
			ErrorHandling: raw.ETL.ErrorHandling,
			LogLevel:      raw.ETL.LogLevel,
			ArchiveFiles:  raw.ETL.ArchiveFiles,
		},
	}

	for _, f := range raw.Fields {
		fd := FieldDef{
			Source:   f.Source,
			Target:   f.Target,
			DataType: f.DataType,
			Required: f.Required,
		}
		for _, r := range f.Rules {
			fd.Rules = append(fd.Rules, ruleDefFromMap(r))
		}
		doc.Fields = append(doc.Fields, fd)
	}

	for _, r := range raw.DatasetRules {
		rd := ruleDefFromMap(r)
		doc.Dataset = append(doc.Dataset, DatasetDef{Kind: rd.Kind, Params: rd.Params})
	}

	return doc, nil
}

// ruleDefFromMap splits a decoded rule mapping into its tag and stringified
// parameters.
func ruleDefFromMap(m map[string]any) RuleDef {
	rd := RuleDef{Params: make(map[string]string, len(m))}
	for k, v := range m {
		if k == "rule" {
			rd.Kind = paramString(v)
			continue
		}
		rd.Params[k] = paramString(v)
	}
	return rd
}

// paramString renders a YAML scalar (or list, for dataset-rule fields) in
// the same textual form the XML dialect carries natively.
func paramString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = paramString(e)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprintf("%v", t)
	}
}
