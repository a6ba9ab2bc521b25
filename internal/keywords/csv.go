package keywords

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// CSVStore keeps rows as headerless "keyword,value" records.
type CSVStore struct {
	path   string
	logger *slog.Logger
}

func NewCSVStore(path string, logger *slog.Logger) *CSVStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVStore{path: path, logger: logger}
}

func (s *CSVStore) Location() string { return s.path }
func (s *CSVStore) Close() error     { return nil }

func (s *CSVStore) Load(_ context.Context) ([]Row, []Warning, error) {
	data, err := readFile(s.path)
	if err != nil || data == nil {
		return nil, nil, err
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	var (
		rows     []Row
		warnings []Warning
	)
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// the reader cannot resync after a syntax error
			warnings = append(warnings, Warning{Row: line, Err: fmt.Errorf("%w: %w", ErrMalformedRow, err)})
			break
		}
		if len(rec) != 2 {
			warnings = append(warnings, Warning{Row: line, Err: fmt.Errorf("%w: expected 2 fields, got %d", ErrMalformedRow, len(rec))})
			continue
		}
		rows = append(rows, Row{Keyword: rec[0], Value: rec[1]})
	}
	s.logger.Debug("keywords.csv.loaded", "path", s.path, "rows", len(rows), "warnings", len(warnings))
	return rows, warnings, nil
}

func (s *CSVStore) Save(_ context.Context, rows []Row) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, r := range rows {
		if err := w.Write([]string{r.Keyword, r.Value}); err != nil {
			return fmt.Errorf("encode csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	if err := writeFile(s.path, buf.Bytes()); err != nil {
		return err
	}
	s.logger.Debug("keywords.csv.saved", "path", s.path, "rows", len(rows))
	return nil
}
