package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/keyword-estimator/constants"
	"github.com/joseph-ayodele/keyword-estimator/internal/common"
	"github.com/joseph-ayodele/keyword-estimator/internal/ocr"
)

// Pipeline renders and recognizes every page of a document in order.
type Pipeline struct {
	opener     ocr.Opener
	recognizer ocr.Recognizer
	logger     *slog.Logger
}

func NewPipeline(opener ocr.Opener, recognizer ocr.Recognizer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{opener: opener, recognizer: recognizer, logger: logger}
}

// Extract runs one extraction synchronously. Cancelling ctx stops the run at
// the next page step; the result is then Cancelled. Extract never panics.
func (p *Pipeline) Extract(ctx context.Context, path string, onProgress ProgressFunc) (res Result) {
	start := time.Now()
	runID := common.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = common.WithRunID(ctx, runID)
	}
	logger := p.logger.With("run_id", runID)
	emit := func(ev ProgressEvent) {
		if onProgress != nil {
			onProgress(ev)
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("extract.run.panic", "panic", rec)
			res = failed(CodeInternal, "extraction aborted", fmt.Errorf("%w: %v", common.ErrInternal, rec))
		}
		res.RunID = runID
		res.Duration = time.Since(start)
		logger.Info("extract.run.done",
			"outcome", res.Outcome,
			"status", res.Outcome.Status(),
			"pages", res.Pages,
			"skipped", len(res.SkippedPages),
			"text_bytes", len(res.Text),
			"duration_ms", res.Duration.Milliseconds(),
			"error", res.Err,
		)
	}()

	logger.Info("extract.run.start", "path", path, "status", constants.RunStatusRunning)
	if ctx.Err() != nil {
		return cancelled(0)
	}

	emit(ProgressEvent{Percent: Percent(StageOpen, 0, 0), Stage: StageOpen, Message: "Opening PDF and counting pages..."})
	doc, err := p.opener.Open(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return cancelled(0)
		}
		return failed(CodeOpenFailure, "open "+path, fmt.Errorf("%w: %w", ErrOpenDocument, err))
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			logger.Warn("extract.document.close_failed", "error", cerr)
		}
	}()

	pages := doc.PageCount()
	if pages <= 0 {
		return failed(CodeEmptyDocument, "No pages found in PDF", ErrEmptyDocument)
	}
	emit(ProgressEvent{
		Percent: Percent(StageReady, 0, pages),
		Stage:   StageReady,
		Pages:   pages,
		Message: fmt.Sprintf("Found %d page(s). Starting conversion...", pages),
	})

	var (
		text     strings.Builder
		skipped  []int
		warnings []string
	)
	// partial text is dropped from non-text outcomes
	abandon := func(page int) {
		logger.Debug("extract.run.partial_discarded", "page", page, "text_bytes", text.Len())
	}

	for page := 1; page <= pages; page++ {
		if ctx.Err() != nil {
			abandon(page)
			return cancelled(pages)
		}

		emit(ProgressEvent{
			Percent: Percent(StageRender, page, pages),
			Stage:   StageRender,
			Page:    page,
			Pages:   pages,
			Message: fmt.Sprintf("Converting page %d of %d to image...", page, pages),
		})
		img, err := doc.Render(ctx, page)
		if err != nil {
			abandon(page)
			if ctx.Err() != nil {
				return cancelled(pages)
			}
			return failed(CodeRenderFailure, fmt.Sprintf("page %d of %d", page, pages), fmt.Errorf("%w: %w", ErrRenderFailure, err))
		}
		if img == nil {
			logger.Warn("extract.page.no_image", "page", page)
			skipped = append(skipped, page)
			warnings = append(warnings, fmt.Sprintf("page %d produced no image and was skipped", page))
			continue
		}
		if ctx.Err() != nil {
			abandon(page)
			return cancelled(pages)
		}

		emit(ProgressEvent{
			Percent: Percent(StageRecognize, page, pages),
			Stage:   StageRecognize,
			Page:    page,
			Pages:   pages,
			Message: fmt.Sprintf("Extracting text from page %d of %d...", page, pages),
		})
		pageText, err := p.recognizer.Recognize(ctx, img)
		if err != nil {
			abandon(page)
			if ctx.Err() != nil {
				return cancelled(pages)
			}
			return failed(CodeRecognitionFailure, fmt.Sprintf("page %d of %d", page, pages), fmt.Errorf("%w: %w", ErrRecognitionFailure, err))
		}
		logger.Debug("extract.page.ok", "page", page, "text_bytes", len(pageText))
		text.WriteString(pageText)
		text.WriteString("\n")
	}

	emit(ProgressEvent{Percent: Percent(StageDone, pages, pages), Stage: StageDone, Pages: pages, Message: "OCR complete!"})
	return Result{
		Outcome:      constants.OutcomeText,
		Text:         text.String(),
		Pages:        pages,
		SkippedPages: skipped,
		Warnings:     warnings,
	}
}

func failed(code, message string, cause error) Result {
	return Result{Outcome: constants.OutcomeFailed, Err: common.NewAppError(code, message, cause)}
}

func cancelled(pages int) Result {
	return Result{Outcome: constants.OutcomeCancelled, Pages: pages}
}
