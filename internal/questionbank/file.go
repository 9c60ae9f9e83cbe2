package questionbank

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/interview-engine/internal/schemas"
	"github.com/jonathan/interview-engine/internal/types"
	bankschema "github.com/jonathan/interview-engine/schemas"
	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of a bank file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format by file extension. Anything other than
// .yaml or .yml is read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// FileBank serves a fixed pool loaded from a JSON or YAML document.
type FileBank struct {
	version string
	items   []types.QuestionItem
}

// LoadFile reads, schema-validates and parses the bank at path.
func LoadFile(path string) (*FileBank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to read file", Cause: err}
	}
	bank, err := Parse(data, FormatFromPath(path))
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.Path = path
			return nil, le
		}
		return nil, &LoadError{Path: path, Message: "invalid bank", Cause: err}
	}
	return bank, nil
}

// Parse validates data against the question bank schema, then checks each
// item's calibration and rejects duplicate IDs.
func Parse(data []byte, format Format) (*FileBank, error) {
	var doc Document
	switch format {
	case FormatYAML:
		var generic any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, &LoadError{Path: "(yaml)", Message: "malformed YAML", Cause: err}
		}
		if err := schemas.ValidateDocument(bankschema.QuestionBank, generic); err != nil {
			return nil, &LoadError{Path: "(yaml)", Message: "schema validation failed", Cause: err}
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &LoadError{Path: "(yaml)", Message: "failed to decode questions", Cause: err}
		}
	default:
		if !json.Valid(data) {
			return nil, &LoadError{Path: "(json)", Message: "malformed JSON"}
		}
		if err := schemas.ValidateJSONString(bankschema.QuestionBank, string(data)); err != nil {
			return nil, &LoadError{Path: "(json)", Message: "schema validation failed", Cause: err}
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, &LoadError{Path: "(json)", Message: "failed to decode questions", Cause: err}
		}
	}

	if err := validateItems(doc.Questions); err != nil {
		return nil, &LoadError{Path: "(" + string(format) + ")", Message: "invalid question", Cause: err}
	}
	return NewFileBank(doc.Version, doc.Questions), nil
}

// NewFileBank wraps an already validated item list.
func NewFileBank(version string, items []types.QuestionItem) *FileBank {
	return &FileBank{version: version, items: append([]types.QuestionItem(nil), items...)}
}

func validateItems(items []types.QuestionItem) error {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		if seen[item.ID] {
			return &types.InvalidQuestionError{QuestionID: item.ID, Reason: "duplicate id"}
		}
		seen[item.ID] = true
	}
	return nil
}

// Version returns the document version, if any.
func (b *FileBank) Version() string {
	return b.version
}

// Len returns the number of items in the bank.
func (b *FileBank) Len() int {
	return len(b.items)
}

// Items returns a copy of every item in file order.
func (b *FileBank) Items() []types.QuestionItem {
	return append([]types.QuestionItem(nil), b.items...)
}

// FetchPool implements Bank.
func (b *FileBank) FetchPool(ctx context.Context, q types.PoolQuery) ([]types.QuestionItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var pool []types.QuestionItem
	for _, item := range b.items {
		if q.Matches(item) {
			pool = append(pool, item)
		}
	}
	return pool, nil
}
