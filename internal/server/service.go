package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/keyword-estimator/constants"
	"github.com/joseph-ayodele/keyword-estimator/internal/common"
	"github.com/joseph-ayodele/keyword-estimator/internal/export"
	"github.com/joseph-ayodele/keyword-estimator/internal/extract"
	"github.com/joseph-ayodele/keyword-estimator/internal/keywords"
	"github.com/joseph-ayodele/keyword-estimator/internal/session"
	"github.com/joseph-ayodele/keyword-estimator/internal/valuation"
)

// Service is the transport-independent core shared by the gRPC and HTTP
// surfaces. Every calculation runs in a fresh session.
type Service struct {
	pipeline     *extract.Pipeline
	exporter     *export.Service
	logger       *slog.Logger
	documentRoot string
}

type Option func(*Service)

// WithDocumentRoot restricts document paths to files below dir. Relative
// paths are resolved against it.
func WithDocumentRoot(dir string) Option {
	return func(s *Service) { s.documentRoot = dir }
}

func NewService(pipeline *extract.Pipeline, exporter *export.Service, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if exporter == nil {
		exporter = export.NewService(logger)
	}
	s := &Service{pipeline: pipeline, exporter: exporter, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Valuation is the outcome of valuing one document.
type Valuation struct {
	RunID    string
	Outcome  constants.Outcome
	Results  valuation.ResultSet
	Warnings []string
	Err      error
}

// ParseKeywords converts a keyword object such as {"apple": 10} into a
// spec. Values may be integers or integer strings. Keys are taken in
// sorted order since objects carry none.
func ParseKeywords(raw map[string]any) (keywords.Spec, []keywords.Warning) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]keywords.Row, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, keywords.Row{Keyword: k, Value: scalar(raw[k])})
	}
	return keywords.ParseRows(rows)
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if math.Trunc(t) != t || math.IsInf(t, 0) {
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
		return strconv.FormatFloat(t, 'f', 0, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case nil:
		return ""
	default:
		// booleans, lists and objects are reported as invalid values
		return fmt.Sprintf("%v", t)
	}
}

func warningStrings(ws []keywords.Warning) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Error())
	}
	return out
}

// Count values spec against text directly.
func (s *Service) Count(_ context.Context, text string, spec keywords.Spec) valuation.ResultSet {
	rs := valuation.Calculate(text, spec)
	s.logger.Debug("server.count.ok", "keywords", len(spec), "grand_total", rs.GrandTotal)
	return rs
}

// Export values spec against text and renders the result as XLSX.
func (s *Service) Export(ctx context.Context, text string, spec keywords.Spec) ([]byte, error) {
	return s.exporter.ResultsXLSX(ctx, valuation.Calculate(text, spec))
}

// Valuate extracts the document at path and values spec against it.
// Invalid requests return an error wrapping common.ErrInvalidInput;
// extraction outcomes are reported in the Valuation.
func (s *Service) Valuate(ctx context.Context, path string, spec keywords.Spec, onProgress extract.ProgressFunc) (Valuation, error) {
	resolved, err := s.ResolvePath(path)
	if err != nil {
		return Valuation{}, err
	}

	sess := session.New(s.pipeline, s.logger)
	sess.SetDocument(resolved)
	sess.SetKeywords(spec)
	out, err := sess.Calculate(ctx, onProgress)
	switch {
	case errors.Is(err, session.ErrNoKeywords), errors.Is(err, session.ErrNoDocument):
		return Valuation{}, common.NewAppError("INVALID_REQUEST", err.Error(), common.ErrInvalidInput)
	case err != nil:
		return Valuation{}, err
	}

	v := Valuation{
		RunID:    out.Extraction.RunID,
		Outcome:  out.Extraction.Outcome,
		Results:  out.Results,
		Warnings: append([]string(nil), out.Extraction.Warnings...),
		Err:      out.Extraction.Err,
	}
	if out.Warning != nil {
		v.Warnings = append(v.Warnings, out.Warning.Error())
	}
	return v, nil
}

// ResolvePath checks a requested document path against the document root.
func (s *Service) ResolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", common.NewAppError("INVALID_REQUEST", "document_path is required", common.ErrInvalidInput)
	}
	if !constants.IsPDF(path) {
		return "", common.NewAppError("INVALID_REQUEST", "document_path must be a PDF", common.ErrInvalidInput)
	}
	if s.documentRoot == "" {
		return path, nil
	}

	root, err := filepath.Abs(s.documentRoot)
	if err != nil {
		return "", fmt.Errorf("document root: %w", err)
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, full)
	}
	full = filepath.Clean(full)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", common.NewAppError("INVALID_REQUEST", "document_path is outside the document root", common.ErrInvalidInput)
	}
	return full, nil
}
