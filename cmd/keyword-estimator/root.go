package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/keyword-estimator/internal/cli"
	"github.com/joseph-ayodele/keyword-estimator/internal/common"
	"github.com/joseph-ayodele/keyword-estimator/internal/extract"
	"github.com/joseph-ayodele/keyword-estimator/internal/keywords"
	"github.com/joseph-ayodele/keyword-estimator/internal/ocr"
)

var errCancelled = errors.New("cancelled")

// app carries what every subcommand needs once the root has loaded config.
type app struct {
	cfgFile  string
	logLevel string
	noColor  bool

	cfg    *common.Config
	logger *slog.Logger
	ui     *cli.UI
	stdout io.Writer
	stderr io.Writer

	// backend builds the renderer and recognizer; ocr.NewBackend unless set.
	backend func(ocr.Config, *slog.Logger) (ocr.Opener, ocr.Recognizer, error)
}

func newRootCmd() *cobra.Command {
	return (&app{backend: ocr.NewBackend}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	a.stdout, a.stderr = os.Stdout, os.Stderr
	if a.backend == nil {
		a.backend = ocr.NewBackend
	}

	root := &cobra.Command{
		Use:   "keyword-estimator",
		Short: "Value keyword occurrences in scanned PDF documents",
		Long: `keyword-estimator recognizes the text of a scanned PDF page by page,
counts case-insensitive occurrences of your keywords and multiplies each count
by the keyword's value to produce subtotals and a grand total.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newCalculateCmd(a),
		newBatchCmd(a),
		newTextCmd(a),
		newKeywordsCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	a.stdout = cmd.OutOrStdout()
	a.stderr = cmd.ErrOrStderr()
	a.ui = &cli.UI{Out: a.stdout, Err: a.stderr, NoColor: a.noColor}

	cfg, err := common.LoadConfigFile(a.cfgFile)
	if err != nil {
		a.ui.Error("%v", err)
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		a.ui.Error("%v", err)
		return err
	}
	a.cfg = cfg
	a.logger = common.NewLogger(cfg.Log.Level, cfg.Log.Format, a.stderr)
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) pipeline() (*extract.Pipeline, error) {
	opener, recognizer, err := a.backend(ocr.FromConfig(a.cfg.OCR), a.logger)
	if err != nil {
		return nil, err
	}
	return extract.NewPipeline(opener, recognizer, a.logger), nil
}

// keywordSource is shared by commands that take a keyword set.
type keywordSource struct {
	store       string
	assignments []string
}

func (k *keywordSource) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&k.store, "keywords", "k", "", "keyword store (.csv, .yaml, .json, .db or postgres:// DSN)")
	cmd.Flags().StringArrayVar(&k.assignments, "kw", nil, "keyword=value, repeatable; overrides the store")
}

func (k *keywordSource) location(a *app) string {
	if k.store != "" {
		return k.store
	}
	return a.cfg.Keywords.Store
}

// load opens the store, applies --kw assignments and reports every skipped
// entry as a warning. The table holds the stored rows, unparsed ones
// included, with the assignments applied; save it rather than the spec.
// The store is returned open; the caller closes it.
func (k *keywordSource) load(ctx context.Context, a *app) (keywords.Store, keywords.Table, keywords.Spec, error) {
	store, err := keywords.OpenStore(ctx, k.location(a), a.logger)
	if err != nil {
		return nil, nil, nil, err
	}
	table, spec, warnings, err := keywords.LoadTable(ctx, store)
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, common.WrapError(err, "load keywords from "+store.Location())
	}
	for _, w := range warnings {
		a.ui.Warn("%s: %v", store.Location(), w)
	}
	for _, as := range k.assignments {
		e, err := keywords.ParseAssignment(as)
		if err != nil {
			a.ui.Warn("skipping --kw %v", err)
			continue
		}
		spec = spec.Set(e)
		table = table.Set(e)
	}
	return store, table, spec, nil
}
