package keywords

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/keywords.schema.json
var documentSchema []byte

//go:embed schema/row.schema.json
var rowSchema []byte

const (
	documentSchemaURL = "keywords.schema.json"
	rowSchemaURL      = "row.schema.json"
)

// JSONStore keeps rows as {"keywords": [{"keyword": ..., "value": ...}]}.
// Values may be strings or numbers. Documents are checked against the
// keyword schema on load.
type JSONStore struct {
	path     string
	logger   *slog.Logger
	document *jsonschema.Schema
	row      *jsonschema.Schema
}

func NewJSONStore(path string, logger *slog.Logger) (*JSONStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(rowSchemaURL, bytes.NewReader(rowSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	if err := compiler.AddResource(documentSchemaURL, bytes.NewReader(documentSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	doc, err := compiler.Compile(documentSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	row, err := compiler.Compile(rowSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &JSONStore{path: path, logger: logger, document: doc, row: row}, nil
}

func (s *JSONStore) Location() string { return s.path }
func (s *JSONStore) Close() error     { return nil }

// Load validates the whole document first. When that fails the document
// is reported once and every row that validates on its own is kept.
func (s *JSONStore) Load(_ context.Context) ([]Row, []Warning, error) {
	data, err := readFile(s.path)
	if err != nil || data == nil {
		return nil, nil, err
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, []Warning{{Err: fmt.Errorf("%w: %w", ErrMalformedRow, err)}}, nil
	}

	var warnings []Warning
	if err := s.document.Validate(doc); err != nil {
		s.logger.Warn("keywords.json.schema_mismatch", "path", s.path, "error", err)
		warnings = append(warnings, Warning{Err: fmt.Errorf("%w: document does not match schema: %w", ErrMalformedRow, err)})
	}

	obj, _ := doc.(map[string]any)
	items, _ := obj["keywords"].([]any)
	var rows []Row
	for i, item := range items {
		if err := s.row.Validate(item); err != nil {
			warnings = append(warnings, Warning{Row: i + 1, Err: fmt.Errorf("%w: %w", ErrMalformedRow, err)})
			continue
		}
		m := item.(map[string]any)
		rows = append(rows, Row{Keyword: m["keyword"].(string), Value: scalarString(m["value"])})
	}
	s.logger.Debug("keywords.json.loaded", "path", s.path, "rows", len(rows), "warnings", len(warnings))
	return rows, warnings, nil
}

func (s *JSONStore) Save(_ context.Context, rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	data, err := json.MarshalIndent(struct {
		Keywords []Row `json:"keywords"`
	}{rows}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return writeFile(s.path, append(data, '\n'))
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
