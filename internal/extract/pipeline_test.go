package extract

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/keyword-estimator/constants"
	"github.com/joseph-ayodele/keyword-estimator/internal/common"
	"github.com/joseph-ayodele/keyword-estimator/internal/ocr/ocrtest"
)

// recorder collects progress events; it is safe to use from a worker.
type recorder struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *recorder) record(ev ProgressEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) percents() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Percent
	}
	return out
}

func newPipeline(fake *ocrtest.Fake) *Pipeline {
	return NewPipeline(fake, fake, nil)
}

func TestPercent(t *testing.T) {
	tests := []struct {
		stage Stage
		page  int
		pages int
		want  int
	}{
		{StageOpen, 0, 0, 0},
		{StageReady, 0, 3, 5},
		{StageRender, 1, 3, 5},
		{StageRecognize, 1, 3, 35},
		{StageRender, 2, 3, 35},
		{StageRecognize, 3, 3, 95},
		{StageRender, 1, 7, 5},
		{StageRecognize, 1, 7, 17},
		{StageRecognize, 7, 7, 95},
		{StageDone, 7, 7, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.stage, tt.page, tt.pages), "%s %d/%d", tt.stage, tt.page, tt.pages)
	}
}

func TestExtractSuccess(t *testing.T) {
	fake := &ocrtest.Fake{Docs: map[string][]ocrtest.Page{
		"a.pdf": ocrtest.Text("Apple pie", "banana split"),
	}}
	rec := &recorder{}

	res := newPipeline(fake).Extract(context.Background(), "a.pdf", rec.record)

	require.True(t, res.OK(), res.Reason())
	assert.Equal(t, "Apple pie\nbanana split\n", res.Text)
	assert.Equal(t, 2, res.Pages)
	assert.NoError(t, res.Err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []int{0, 5, 5, 50, 50, 95, 100}, rec.percents())

	opened, closed, rendered, recognized := fake.Counts()
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, closed)
	assert.Equal(t, 2, rendered)
	assert.Equal(t, 2, recognized)
}

func TestExtractProgressMonotonic(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 7, 13, 90, 91, 200} {
		pages := make([]string, n)
		fake := &ocrtest.Fake{Docs: map[string][]ocrtest.Page{"doc.pdf": ocrtest.Text(pages...)}}
		rec := &recorder{}

		res := newPipeline(fake).Extract(context.Background(), "doc.pdf", rec.record)
		require.True(t, res.OK())

		got := rec.percents()
		require.NotEmpty(t, got)
		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, got[i], got[i-1], "pages=%d event=%d", n, i)
		}
		assert.Equal(t, 100, got[len(got)-1], "pages=%d", n)
	}
}

func TestExtractSkipsPagesWithoutImage(t *testing.T) {
	fake := &ocrtest.Fake{Docs: map[string][]ocrtest.Page{
		"scan.pdf": {{Text: "first"}, {Skip: true}, {Text: "third"}},
	}}
	rec := &recorder{}

	res := newPipeline(fake).Extract(context.Background(), "scan.pdf", rec.record)

	require.True(t, res.OK(), res.Reason())
	assert.Equal(t, "first\nthird\n", res.Text)
	assert.Equal(t, []int{2}, res.SkippedPages)
	assert.Len(t, res.Warnings, 1)

	_, _, _, recognized := fake.Counts()
	assert.Equal(t, 2, recognized)
	for _, ev := range rec.events {
		if ev.Stage == StageRecognize {
			assert.NotEqual(t, 2, ev.Page)
		}
	}
}

func TestExtractFailures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name     string
		fake     *ocrtest.Fake
		sentinel error
		code     string
	}{
		{
			name:     "open",
			fake:     &ocrtest.Fake{OpenErr: boom},
			sentinel: ErrOpenDocument,
			code:     CodeOpenFailure,
		},
		{
			name:     "empty document",
			fake:     &ocrtest.Fake{Docs: map[string][]ocrtest.Page{"doc.pdf": nil}},
			sentinel: ErrEmptyDocument,
			code:     CodeEmptyDocument,
		},
		{
			name:     "render",
			fake:     &ocrtest.Fake{Docs: map[string][]ocrtest.Page{"doc.pdf": {{Text: "ok"}, {RenderErr: boom}, {Text: "never"}}}},
			sentinel: ErrRenderFailure,
			code:     CodeRenderFailure,
		},
		{
			name:     "recognize",
			fake:     &ocrtest.Fake{Docs: map[string][]ocrtest.Page{"doc.pdf": {{Text: "ok"}, {Text: "x", RecognizeErr: boom}}}},
			sentinel: ErrRecognitionFailure,
			code:     CodeRecognitionFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newPipeline(tt.fake).Extract(context.Background(), "doc.pdf", nil)

			require.True(t, res.Failed())
			assert.Empty(t, res.Text, "partial text must be discarded")
			assert.ErrorIs(t, res.Err, tt.sentinel)
			assert.Equal(t, tt.code, common.CodeOf(res.Err))
			assert.Equal(t, constants.RunStatusFailed, res.Outcome.Status())
			if tt.sentinel != ErrEmptyDocument {
				assert.ErrorIs(t, res.Err, boom)
			}
		})
	}
}

func TestExtractFailureClosesDocument(t *testing.T) {
	fake := &ocrtest.Fake{Docs: map[string][]ocrtest.Page{
		"doc.pdf": {{RenderErr: errors.New("bad page")}},
	}}
	res := newPipeline(fake).Extract(context.Background(), "doc.pdf", nil)
	require.True(t, res.Failed())

	opened, closed, _, _ := fake.Counts()
	assert.Equal(t, opened, closed)
}

func TestExtractCancelledBeforeFirstPage(t *testing.T) {
	fake := &ocrtest.Fake{Docs: map[string][]ocrtest.Page{"doc.pdf": ocrtest.Text("a", "b")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newPipeline(fake).Extract(ctx, "doc.pdf", nil)

	assert.True(t, res.Cancelled())
	assert.Empty(t, res.Text)
	assert.NoError(t, res.Err)
	_, _, _, recognized := fake.Counts()
	assert.Zero(t, recognized)
}

func TestExtractCancelledMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fake := &ocrtest.Fake{
		Docs: map[string][]ocrtest.Page{"doc.pdf": ocrtest.Text("p1", "p2", "p3", "p4", "p5")},
		OnRender: func(page int) {
			if page == 2 {
				cancel()
			}
		},
	}
	rec := &recorder{}

	res := newPipeline(fake).Extract(ctx, "doc.pdf", rec.record)

	require.True(t, res.Cancelled())
	assert.Empty(t, res.Text)
	_, closed, rendered, recognized := fake.Counts()
	assert.Equal(t, 1, closed)
	assert.Equal(t, 2, rendered)
	assert.Equal(t, 1, recognized)
	for _, ev := range rec.events {
		assert.LessOrEqual(t, ev.Page, 2)
		assert.NotEqual(t, 100, ev.Percent)
	}
}

func TestExtractRecoversPanic(t *testing.T) {
	fake := &ocrtest.Fake{
		Docs:  map[string][]ocrtest.Page{"doc.pdf": ocrtest.Text("a")},
		Panic: "recognizer exploded",
	}

	res := newPipeline(fake).Extract(context.Background(), "doc.pdf", nil)

	require.True(t, res.Failed())
	assert.ErrorIs(t, res.Err, common.ErrInternal)
	assert.Equal(t, CodeInternal, common.CodeOf(res.Err))
	_, closed, _, _ := fake.Counts()
	assert.Equal(t, 1, closed)
}

func TestExtractRunsAreIndependent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := &ocrtest.Fake{
		Docs: map[string][]ocrtest.Page{"doc.pdf": ocrtest.Text("one", "two")},
		OnRender: func(page int) {
			if page == 1 {
				cancel()
			}
		},
	}
	p := newPipeline(fake)
	require.True(t, p.Extract(ctx, "doc.pdf", nil).Cancelled())

	fake.OnRender = nil
	res := p.Extract(context.Background(), "doc.pdf", nil)
	require.True(t, res.OK())
	assert.Equal(t, "one\ntwo\n", res.Text)
}

func TestStartDeliversEventsThenResult(t *testing.T) {
	fake := &ocrtest.Fake{Docs: map[string][]ocrtest.Page{"doc.pdf": ocrtest.Text("x", "y", "z")}}
	run := Start(context.Background(), newPipeline(fake), "doc.pdf")
	require.NotEmpty(t, run.ID())

	var last ProgressEvent
	for ev := range run.Events() {
		assert.GreaterOrEqual(t, ev.Percent, last.Percent)
		last = ev
	}
	select {
	case <-run.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}

	res := run.Wait()
	require.True(t, res.OK())
	assert.Equal(t, run.ID(), res.RunID)
	assert.Equal(t, 100, last.Percent)
	assert.Equal(t, res, run.Wait(), "Wait is repeatable")
	got, ok := run.Result()
	assert.True(t, ok)
	assert.Equal(t, res, got)
}

func TestStartCancel(t *testing.T) {
	release := make(chan struct{})
	fake := &ocrtest.Fake{
		Docs: map[string][]ocrtest.Page{"doc.pdf": ocrtest.Text("a", "b", "c")},
		OnRecognize: func(page int) {
			if page == 1 {
				<-release
			}
		},
	}
	run := Start(context.Background(), newPipeline(fake), "doc.pdf")
	_, ok := run.Result()
	assert.False(t, ok, "no result while page 1 is held")

	run.Cancel()
	run.Cancel()
	close(release)

	res := run.Wait()
	assert.True(t, res.Cancelled())
	_, _, _, recognized := fake.Counts()
	assert.LessOrEqual(t, recognized, 1)
}

func TestStartDropsOldestEventsWhenConsumerIsSlow(t *testing.T) {
	pages := make([]string, EventBuffer*2)
	fake := &ocrtest.Fake{Docs: map[string][]ocrtest.Page{"doc.pdf": ocrtest.Text(pages...)}}
	run := Start(context.Background(), newPipeline(fake), "doc.pdf")

	res := run.Wait()
	require.True(t, res.OK())

	var got []ProgressEvent
	for ev := range run.Events() {
		got = append(got, ev)
	}
	require.Len(t, got, EventBuffer)
	assert.Equal(t, 100, got[len(got)-1].Percent)
}
