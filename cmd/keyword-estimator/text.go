package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/keyword-estimator/internal/cli"
	"github.com/joseph-ayodele/keyword-estimator/internal/extract"
	"github.com/joseph-ayodele/keyword-estimator/internal/ocr"
)

func newTextCmd(a *app) *cobra.Command {
	var (
		full      bool
		normalize bool
	)
	cmd := &cobra.Command{
		Use:   "text <pdf>",
		Short: "Print the recognized text of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if err := checkDocument(path); err != nil {
				a.ui.Error("%v", err)
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pipeline, err := a.pipeline()
			if err != nil {
				a.ui.Error("%v", err)
				return err
			}
			bar := cli.NewProgressReporter(a.stderr)
			run := extract.Start(ctx, pipeline, path)
			for ev := range run.Events() {
				bar.Update(ev)
			}
			res := run.Wait()
			for _, w := range res.Warnings {
				a.ui.Warn("%s", w)
			}
			switch {
			case res.Cancelled():
				bar.Stop()
				a.ui.Warn("Extraction cancelled")
				return errCancelled
			case res.Failed():
				bar.Stop()
				a.ui.Error("Failed to process PDF: %v", res.Err)
				return res.Err
			}

			text := res.Text
			if normalize {
				text = ocr.Normalize(text)
			}
			if !full {
				text = ocr.Preview(text, a.cfg.Export.PreviewChars)
			}
			fmt.Fprintln(a.stdout, text)
			a.ui.Info("%d page(s), %d char(s) in %s", res.Pages, len(res.Text), res.Duration.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "print the whole text instead of a preview")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "collapse whitespace in the output")
	return cmd
}
