package schema

// decode.go routes mapping-config files to the decoder registered for
// their extension. Decoders produce a neutral Document so SchemaError
// semantics stay format-agnostic: every format funnels through New.

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Document is the decoded on-disk mapping configuration before semantic
// validation. Field order follows declaration order in the file.
type Document struct {
	Source  SourceDef
	Target  TargetDef
	ETL     ETLDef
	Fields  []FieldDef
	Dataset []DatasetDef
}

// SourceDef mirrors the source-system section of a mapping config.
// Pointer fields distinguish "absent" from a false/zero value.
type SourceDef struct {
	Name      string
	FilePath  string
	Delimiter string
	HasHeader *bool
	Encoding  string
}

// TargetDef mirrors the target-system section.
type TargetDef struct {
	Name             string
	ConnectionString string
	Table            string
}

// ETLDef mirrors the processing-options section.
type ETLDef struct {
	BatchSize     int
	ErrorHandling string
	LogLevel      string
	ArchiveFiles  *bool
}

// FieldDef is one field mapping with its raw rule definitions.
type FieldDef struct {
	Source   string
	Target   string
	DataType string
	Required bool
	Rules    []RuleDef
}

// RuleDef is a rule tag plus its parameters, uninterpreted.
type RuleDef struct {
	Kind   string
	Params map[string]string
}

// DatasetDef is a batch-level rule tag plus its parameters.
type DatasetDef struct {
	Kind   string
	Params map[string]string
}

// Decoder parses raw config bytes into a Document.
type Decoder func(data []byte) (*Document, error)

var (
	decoderMu sync.RWMutex
	decoders  = make(map[string]Decoder)
)

// RegisterFormat registers a decoder for a file extension (".xml", ".yaml").
// It panics if the extension is already registered; formats register from
// init and a duplicate is a programming error.
func RegisterFormat(ext string, dec Decoder) {
	decoderMu.Lock()
	defer decoderMu.Unlock()

	ext = strings.ToLower(ext)
	if _, exists := decoders[ext]; exists {
		panic(fmt.Sprintf("schema: format %q already registered", ext))
	}
	decoders[ext] = dec
}

// Formats returns the registered extensions, sorted.
func Formats() []string {
	decoderMu.RLock()
	defer decoderMu.RUnlock()

	exts := make([]string, 0, len(decoders))
	for ext := range decoders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load reads a mapping-config file, decodes it with the decoder registered
// for its extension, and validates it into a Schema.
func Load(path string) (*Schema, error) {
	ext := strings.ToLower(filepath.Ext(path))

	decoderMu.RLock()
	dec, ok := decoders[ext]
	decoderMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no mapping-config decoder for %q (supported: %s)", ext, strings.Join(Formats(), ", "))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping config: %w", err)
	}

	doc, err := dec(data)
	if err != nil {
		return nil, &SchemaError{Msg: fmt.Sprintf("decode %s: %v", filepath.Base(path), err)}
	}
	return New(doc)
}
