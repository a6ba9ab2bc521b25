package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/keyword-estimator/internal/extract"
	"github.com/joseph-ayodele/keyword-estimator/internal/keywords"
	"github.com/joseph-ayodele/keyword-estimator/internal/valuation"
)

func TestRenderResults(t *testing.T) {
	rs := valuation.Calculate("Apple pie, banana split, apple tart", keywords.Spec{
		{Keyword: "banana", Value: -5},
		{Keyword: "apple", Value: 10},
	})
	var buf bytes.Buffer
	RenderResults(&buf, rs)

	out := buf.String()
	assert.Contains(t, out, "Keyword")
	assert.Contains(t, out, "Subtotal")
	assert.Contains(t, out, "GRAND TOTAL")
	assert.Contains(t, out, "15")
	assert.Less(t, strings.Index(out, "apple"), strings.Index(out, "banana"))
}

func TestUIWithoutColor(t *testing.T) {
	var out, errOut bytes.Buffer
	ui := &UI{Out: &out, Err: &errOut, NoColor: true}

	ui.Success("saved %d keywords", 3)
	ui.Warn("skipped %q", "value")
	ui.Error("failed")

	assert.Equal(t, "✓ saved 3 keywords\n", out.String())
	assert.Equal(t, "⚠ skipped \"value\"\n✗ failed\n", errOut.String())
}

func TestProgressReporter(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf)
	p.Update(extract.ProgressEvent{Percent: 5, Message: "Found 2 page(s). Starting conversion..."})
	p.Update(extract.ProgressEvent{Percent: 100, Message: "OCR complete!"})
	assert.NotEmpty(t, buf.String())
	p.Stop()
}
