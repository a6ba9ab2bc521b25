package extract

import (
	"errors"
	"time"

	"github.com/joseph-ayodele/keyword-estimator/constants"
)

// Failure taxonomy of an extraction run. A failed Result's Err matches one
// of these with errors.Is.
var (
	ErrOpenDocument       = errors.New("document could not be opened")
	ErrEmptyDocument      = errors.New("no pages found in document")
	ErrRenderFailure      = errors.New("page rendering failed")
	ErrRecognitionFailure = errors.New("text recognition failed")
)

// AppError codes carried by failed results.
const (
	CodeOpenFailure        = "OPEN_FAILURE"
	CodeEmptyDocument      = "EMPTY_DOCUMENT"
	CodeRenderFailure      = "RENDER_FAILURE"
	CodeRecognitionFailure = "RECOGNITION_FAILURE"
	CodeInternal           = "INTERNAL"
)

// Stage names the step a progress event belongs to.
type Stage string

const (
	StageOpen      Stage = "open"
	StageReady     Stage = "ready"
	StageRender    Stage = "render"
	StageRecognize Stage = "recognize"
	StageDone      Stage = "done"
)

// ProgressEvent reports run progress. Percent never decreases within a run.
type ProgressEvent struct {
	Percent int
	Message string
	Stage   Stage
	Page    int // 0 outside the page loop
	Pages   int // 0 until the page count is known
}

// ProgressFunc receives progress events on the worker goroutine.
type ProgressFunc func(ProgressEvent)

// Result is the terminal outcome of one extraction run.
type Result struct {
	Outcome      constants.Outcome
	Text         string // only set when Outcome is OutcomeText
	Err          error  // only set when Outcome is OutcomeFailed
	Pages        int
	SkippedPages []int
	Warnings     []string
	RunID        string
	Duration     time.Duration
}

func (r Result) OK() bool        { return r.Outcome == constants.OutcomeText }
func (r Result) Cancelled() bool { return r.Outcome == constants.OutcomeCancelled }
func (r Result) Failed() bool    { return r.Outcome == constants.OutcomeFailed }

// Reason is a human-readable description of a non-text outcome.
func (r Result) Reason() string {
	switch r.Outcome {
	case constants.OutcomeCancelled:
		return "extraction cancelled"
	case constants.OutcomeFailed:
		if r.Err != nil {
			return r.Err.Error()
		}
		return "extraction failed"
	default:
		return ""
	}
}

// Percent maps a stage of a run over pages pages onto 0..100: 5% for
// opening, then an even share per page split at the recognition start.
func Percent(stage Stage, page, pages int) int {
	switch stage {
	case StageOpen:
		return 0
	case StageReady:
		return 5
	case StageRender:
		if pages <= 0 {
			return 5
		}
		return 5 + 90*(page-1)/pages
	case StageRecognize:
		if pages <= 0 {
			return 5
		}
		return 5 + 90*page/pages
	default:
		return 100
	}
}
