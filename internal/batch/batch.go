// Package batch values every PDF of a directory tree, either once or as
// files appear.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/keyword-estimator/constants"
	"github.com/joseph-ayodele/keyword-estimator/internal/export"
	"github.com/joseph-ayodele/keyword-estimator/internal/extract"
	"github.com/joseph-ayodele/keyword-estimator/internal/keywords"
	"github.com/joseph-ayodele/keyword-estimator/internal/session"
	"github.com/joseph-ayodele/keyword-estimator/internal/valuation"
)

type FileResult struct {
	Path       string
	Outcome    constants.Outcome
	Results    valuation.ResultSet
	Warnings   []string
	ExportPath string
	Err        error
}

type Stats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
	Cancelled uint32
}

func (s *Stats) add(r FileResult) {
	switch r.Outcome {
	case constants.OutcomeText:
		s.Succeeded++
	case constants.OutcomeCancelled:
		s.Cancelled++
	default:
		s.Failed++
	}
}

// Processor values single documents against a fixed keyword set. Every
// document gets its own session.
type Processor struct {
	pipeline  *extract.Pipeline
	spec      keywords.Spec
	logger    *slog.Logger
	exporter  *export.Service
	exportDir string
	now       func() time.Time
}

type Option func(*Processor)

// WithExport writes an XLSX file per successful document into dir.
func WithExport(dir string, svc *export.Service) Option {
	return func(p *Processor) {
		p.exportDir = dir
		p.exporter = svc
	}
}

// WithClock overrides the time used for export file names.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

func NewProcessor(pipeline *extract.Pipeline, spec keywords.Spec, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		pipeline: pipeline,
		spec:     spec.Clone(),
		logger:   logger,
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	if p.exportDir != "" && p.exporter == nil {
		p.exporter = export.NewService(logger)
	}
	return p
}

// ProcessFile runs one calculation for path. Failures are reported in the
// result, never returned.
func (p *Processor) ProcessFile(ctx context.Context, path string) FileResult {
	return p.processFile(ctx, "", path)
}

func (p *Processor) processFile(ctx context.Context, root, path string) FileResult {
	start := time.Now()
	res := FileResult{Path: path}

	s := session.New(p.pipeline, p.logger)
	s.SetDocument(path)
	s.SetKeywords(p.spec)
	out, err := s.Calculate(ctx, nil)
	if err != nil {
		res.Outcome = constants.OutcomeFailed
		res.Err = err
		p.logger.Error("batch.file.failed", "path", path, "error", err)
		return res
	}

	ext := out.Extraction
	res.Outcome = ext.Outcome
	res.Warnings = append(res.Warnings, ext.Warnings...)
	switch {
	case ext.Failed():
		res.Err = ext.Err
	case ext.Cancelled():
	case out.Warning != nil:
		res.Warnings = append(res.Warnings, out.Warning.Error())
	default:
		res.Results = out.Results
	}

	if out.HasResults && p.exportDir != "" {
		dest := filepath.Join(p.exportDir, export.DefaultFilename(flatName(root, path), p.now()))
		if err := p.exporter.WriteFile(ctx, out.Results, dest); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("export failed: %v", err))
		} else {
			res.ExportPath = dest
		}
	}

	p.logger.Info("batch.file.done",
		"path", path,
		"outcome", res.Outcome,
		"grand_total", res.Results.GrandTotal,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res
}

// flatName turns a path under the batch root into a single file name so
// documents with the same name in different folders do not collide.
func flatName(root, path string) string {
	name := filepath.Base(path)
	if root != "" {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			name = rel
		}
	}
	return strings.ReplaceAll(filepath.ToSlash(name), "/", "_")
}
