package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/keyword-estimator/constants"
	"github.com/joseph-ayodele/keyword-estimator/internal/cli"
	"github.com/joseph-ayodele/keyword-estimator/internal/export"
	"github.com/joseph-ayodele/keyword-estimator/internal/ocr"
	"github.com/joseph-ayodele/keyword-estimator/internal/session"
)

const autoExport = "auto"

func newCalculateCmd(a *app) *cobra.Command {
	var (
		kw       keywordSource
		exportTo string
		noSave   bool
		preview  bool
	)
	cmd := &cobra.Command{
		Use:   "calculate <pdf>",
		Short: "Extract a PDF and value its keywords",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.calculate(ctx, args[0], &kw, exportTo, noSave, preview)
		},
	}
	kw.bind(cmd)
	cmd.Flags().StringVarP(&exportTo, "export", "o", "", "write results to an XLSX file (default name when given without a value)")
	cmd.Flags().Lookup("export").NoOptDefVal = autoExport
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not save the keyword set back to the store")
	cmd.Flags().BoolVar(&preview, "preview", false, "print the recognized text")
	return cmd
}

func (a *app) calculate(ctx context.Context, path string, kw *keywordSource, exportTo string, noSave, preview bool) error {
	if err := checkDocument(path); err != nil {
		a.ui.Error("%v", err)
		return err
	}

	store, table, spec, err := kw.load(ctx, a)
	if err != nil {
		a.ui.Error("%v", err)
		return err
	}
	defer store.Close()
	if len(spec) == 0 {
		a.ui.Error("no keywords defined: add some with --kw keyword=value or 'keywords set'")
		return session.ErrNoKeywords
	}
	if !noSave {
		if err := store.Save(ctx, table); err != nil {
			a.ui.Warn("could not save keywords to %s: %v", store.Location(), err)
		}
	}

	pipeline, err := a.pipeline()
	if err != nil {
		a.ui.Error("%v", err)
		return err
	}
	s := session.New(pipeline, a.logger)
	s.SetDocument(path)
	s.SetKeywords(spec)

	bar := cli.NewProgressReporter(a.stderr)
	out, err := s.Calculate(ctx, bar.Update)
	if err != nil {
		bar.Stop()
		a.ui.Error("%v", err)
		return err
	}

	res := out.Extraction
	for _, w := range res.Warnings {
		a.ui.Warn("%s", w)
	}
	switch {
	case res.Cancelled():
		bar.Stop()
		a.ui.Warn("Calculation cancelled")
		return errCancelled
	case res.Failed():
		bar.Stop()
		a.ui.Error("Failed to process PDF: %v", res.Err)
		return res.Err
	}

	if preview {
		fmt.Fprintln(a.stdout, ocr.Preview(s.Text(), a.cfg.Export.PreviewChars))
	}
	if errors.Is(out.Warning, session.ErrNoTextFound) {
		a.ui.Warn("No text found in the PDF")
		return nil
	}

	cli.RenderResults(a.stdout, out.Results)
	a.ui.Success("Found %d keyword(s). %s: %d", out.Results.Len(), constants.GrandTotalLabel, out.Results.GrandTotal)

	if exportTo == "" {
		return nil
	}
	dest := exportTo
	if dest == autoExport {
		dest = filepath.Join(a.cfg.Export.Dir, export.DefaultFilename(path, time.Now()))
	}
	if err := export.NewService(a.logger).WriteFile(ctx, out.Results, dest); err != nil {
		a.ui.Error("Failed to export results: %v", err)
		return err
	}
	a.ui.Success("Results exported to %s", dest)
	return nil
}

func checkDocument(path string) error {
	if !constants.IsPDF(path) {
		return fmt.Errorf("%s: not a PDF file", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s: is a directory", path)
	}
	return nil
}
