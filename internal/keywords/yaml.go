package keywords

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"
)

// YAMLStore keeps rows as a YAML sequence of {keyword, value} maps.
type YAMLStore struct {
	path   string
	logger *slog.Logger
}

func NewYAMLStore(path string, logger *slog.Logger) *YAMLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &YAMLStore{path: path, logger: logger}
}

func (s *YAMLStore) Location() string { return s.path }
func (s *YAMLStore) Close() error     { return nil }

func (s *YAMLStore) Load(_ context.Context) ([]Row, []Warning, error) {
	data, err := readFile(s.path)
	if err != nil || data == nil {
		return nil, nil, err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, []Warning{{Err: fmt.Errorf("%w: %w", ErrMalformedRow, err)}}, nil
	}
	if len(doc.Content) == 0 {
		return nil, nil, nil
	}
	seq := doc.Content[0]
	if seq.Kind != yaml.SequenceNode {
		return nil, []Warning{{Err: fmt.Errorf("%w: expected a list of keywords at line %d", ErrMalformedRow, seq.Line)}}, nil
	}

	var (
		rows     []Row
		warnings []Warning
	)
	for i, item := range seq.Content {
		var r Row
		if err := item.Decode(&r); err != nil {
			warnings = append(warnings, Warning{Row: i + 1, Err: fmt.Errorf("%w: %w", ErrMalformedRow, err)})
			continue
		}
		rows = append(rows, r)
	}
	s.logger.Debug("keywords.yaml.loaded", "path", s.path, "rows", len(rows), "warnings", len(warnings))
	return rows, warnings, nil
}

func (s *YAMLStore) Save(_ context.Context, rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	data, err := yaml.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return writeFile(s.path, data)
}
