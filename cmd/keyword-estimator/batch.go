package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/keyword-estimator/constants"
	"github.com/joseph-ayodele/keyword-estimator/internal/batch"
	"github.com/joseph-ayodele/keyword-estimator/internal/export"
	"github.com/joseph-ayodele/keyword-estimator/internal/session"
)

type batchOptions struct {
	kw         keywordSource
	outDir     string
	workers    int
	skipHidden bool
	watch      bool
	debounce   time.Duration
}

func newBatchCmd(a *app) *cobra.Command {
	var opts batchOptions
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Value every PDF under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if opts.watch {
				return a.watch(ctx, args[0], &opts)
			}
			return a.batch(ctx, args[0], &opts)
		},
	}
	opts.kw.bind(cmd)
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "directory for per-document XLSX exports (none when empty)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "concurrent documents (defaults to batch.workers)")
	cmd.Flags().BoolVar(&opts.skipHidden, "skip-hidden", true, "ignore dot files and dot directories")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "keep running and value PDFs as they appear")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 2*time.Second, "quiet period before a changed file is valued (--watch)")
	return cmd
}

func (a *app) processor(ctx context.Context, opts *batchOptions) (*batch.Processor, error) {
	store, _, spec, err := opts.kw.load(ctx, a)
	if err != nil {
		return nil, err
	}
	_ = store.Close()
	if len(spec) == 0 {
		return nil, session.ErrNoKeywords
	}
	pipeline, err := a.pipeline()
	if err != nil {
		return nil, err
	}
	var popts []batch.Option
	if opts.outDir != "" {
		popts = append(popts, batch.WithExport(opts.outDir, export.NewService(a.logger)))
	}
	return batch.NewProcessor(pipeline, spec, a.logger, popts...), nil
}

func (a *app) batch(ctx context.Context, root string, opts *batchOptions) error {
	proc, err := a.processor(ctx, opts)
	if err != nil {
		a.ui.Error("%v", err)
		return err
	}
	workers := opts.workers
	if workers <= 0 {
		workers = a.cfg.Batch.Workers
	}

	results, stats, err := proc.ProcessDirectory(ctx, root, workers, opts.skipHidden)
	for _, r := range results {
		a.report(r)
	}
	a.ui.Info("scanned %d, matched %d, succeeded %d, failed %d, cancelled %d",
		stats.Scanned, stats.Matched, stats.Succeeded, stats.Failed, stats.Cancelled)
	switch {
	case errors.Is(err, context.Canceled):
		a.ui.Warn("Batch cancelled")
		return errCancelled
	case err != nil:
		a.ui.Error("%v", err)
		return err
	case stats.Failed > 0:
		return errors.New("some documents failed")
	}
	return nil
}

func (a *app) watch(ctx context.Context, root string, opts *batchOptions) error {
	proc, err := a.processor(ctx, opts)
	if err != nil {
		a.ui.Error("%v", err)
		return err
	}
	workers := opts.workers
	if workers <= 0 {
		workers = a.cfg.Batch.Workers
	}

	files, errs, err := batch.Watch(ctx, batch.WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		SkipHidden:  opts.skipHidden,
		Debounce:    opts.debounce,
	}, a.logger)
	if err != nil {
		a.ui.Error("%v", err)
		return err
	}

	q := batch.NewQueue(proc, a.logger, batch.WithWorkers(workers), batch.WithResultHandler(a.report))
	a.ui.Info("watching %s (Ctrl+C to stop)", root)
	for files != nil || errs != nil {
		select {
		case path, ok := <-files:
			if !ok {
				files = nil
				continue
			}
			if err := q.Enqueue(ctx, path); err != nil && !errors.Is(err, context.Canceled) {
				a.ui.Warn("%s: %v", path, err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.ui.Warn("watch: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)
	a.ui.Info("stopped watching %s", root)
	return nil
}

func (a *app) report(r batch.FileResult) {
	for _, w := range r.Warnings {
		a.ui.Warn("%s: %s", r.Path, w)
	}
	switch r.Outcome {
	case constants.OutcomeText:
		msg := "%s: %d keyword(s), " + constants.GrandTotalLabel + " %d"
		args := []any{r.Path, r.Results.Len(), r.Results.GrandTotal}
		if r.ExportPath != "" {
			msg += " -> %s"
			args = append(args, r.ExportPath)
		}
		a.ui.Success(msg, args...)
	case constants.OutcomeCancelled:
		a.ui.Warn("%s: cancelled", r.Path)
	default:
		a.ui.Error("%s: %v", r.Path, r.Err)
	}
}
