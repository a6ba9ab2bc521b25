// Package session ties one document and one keyword set to the extraction
// pipeline. A session allows a single run at a time.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/keyword-estimator/internal/extract"
	"github.com/joseph-ayodele/keyword-estimator/internal/keywords"
	"github.com/joseph-ayodele/keyword-estimator/internal/valuation"
)

var (
	ErrNoDocument    = errors.New("no document selected")
	ErrNoKeywords    = errors.New("no keywords defined")
	ErrRunInProgress = errors.New("a calculation is already running")
	// ErrNoTextFound is reported when recognition produced only whitespace.
	// No results are produced in that case.
	ErrNoTextFound = errors.New("no text found in document")
)

// Outcome is what one Calculate call produced.
type Outcome struct {
	Extraction extract.Result
	Results    valuation.ResultSet
	HasResults bool
	// Warning is ErrNoTextFound or nil.
	Warning error
}

type Session struct {
	id       string
	pipeline *extract.Pipeline
	logger   *slog.Logger

	mu       sync.Mutex
	document string
	spec     keywords.Spec
	run      *extract.Run
	text     string
	results  valuation.ResultSet
	computed bool
}

func New(pipeline *extract.Pipeline, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Session{id: id, pipeline: pipeline, logger: logger.With("session_id", id)}
}

func (s *Session) ID() string { return s.id }

// SetDocument selects the document for the next run and clears results
// computed for the previous one.
func (s *Session) SetDocument(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if path != s.document {
		s.text = ""
		s.results = valuation.ResultSet{}
		s.computed = false
	}
	s.document = path
}

func (s *Session) Document() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document
}

// SetKeywords stores a copy of spec; later changes by the caller do not
// affect it.
func (s *Session) SetKeywords(spec keywords.Spec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spec = spec.Clone()
}

func (s *Session) Keywords() keywords.Spec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec.Clone()
}

// Calculate extracts the document text and values the keywords against it.
// It blocks until the run ends; progress is forwarded to onProgress on the
// calling goroutine. Use Cancel from another goroutine, or cancel ctx, to
// stop the run.
func (s *Session) Calculate(ctx context.Context, onProgress extract.ProgressFunc) (Outcome, error) {
	s.mu.Lock()
	switch {
	case s.run != nil:
		s.mu.Unlock()
		return Outcome{}, ErrRunInProgress
	case s.document == "":
		s.mu.Unlock()
		return Outcome{}, ErrNoDocument
	case len(s.spec) == 0:
		s.mu.Unlock()
		return Outcome{}, ErrNoKeywords
	}
	path := s.document
	spec := s.spec.Clone()
	run := extract.Start(ctx, s.pipeline, path)
	s.run = run
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.run = nil
		s.mu.Unlock()
	}()

	s.logger.Info("session.calculate.start", "run_id", run.ID(), "path", path, "keywords", len(spec))
	for ev := range run.Events() {
		if onProgress != nil {
			onProgress(ev)
		}
	}
	res := run.Wait()

	out := Outcome{Extraction: res}
	if !res.OK() {
		s.logger.Info("session.calculate.stopped", "run_id", run.ID(), "outcome", res.Outcome, "reason", res.Reason())
		return out, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = res.Text
	if strings.TrimSpace(res.Text) == "" {
		s.results = valuation.ResultSet{}
		s.computed = false
		out.Warning = ErrNoTextFound
		s.logger.Warn("session.calculate.no_text", "run_id", run.ID())
		return out, nil
	}
	s.results = valuation.Calculate(res.Text, spec)
	s.computed = true
	out.Results = s.results
	out.HasResults = true
	s.logger.Info("session.calculate.done", "run_id", run.ID(),
		"records", s.results.Len(), "grand_total", s.results.GrandTotal)
	return out, nil
}

// Cancel asks the active run to stop. It never blocks and is a no-op when
// nothing is running.
func (s *Session) Cancel() {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()
	if run != nil {
		run.Cancel()
	}
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run != nil
}

// Results returns the last computed result set.
func (s *Session) Results() (valuation.ResultSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results, s.computed
}

// Text returns the text of the last successful extraction.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}
