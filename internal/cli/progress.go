package cli

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/joseph-ayodele/keyword-estimator/internal/extract"
)

// ProgressReporter draws extraction progress as a 0..100 bar.
type ProgressReporter struct {
	bar *progressbar.ProgressBar
}

func NewProgressReporter(w io.Writer) *ProgressReporter {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Starting..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &ProgressReporter{bar: bar}
}

// Update is an extract.ProgressFunc.
func (p *ProgressReporter) Update(ev extract.ProgressEvent) {
	p.bar.Describe(ev.Message)
	_ = p.bar.Set(ev.Percent)
}

// Stop leaves the bar where it is, for runs that end before 100%.
func (p *ProgressReporter) Stop() {
	_ = p.bar.Exit()
}
