package main

import (
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/keyword-estimator/internal/keywords"
)

func newKeywordsCmd(a *app) *cobra.Command {
	var store string
	cmd := &cobra.Command{
		Use:     "keywords",
		Aliases: []string{"kw"},
		Short:   "Manage the saved keyword set",
	}
	cmd.PersistentFlags().StringVarP(&store, "keywords", "k", "", "keyword store (.csv, .yaml, .json, .db or postgres:// DSN)")

	location := func() string {
		if store != "" {
			return store
		}
		return a.cfg.Keywords.Store
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show the saved keywords",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withTable(cmd.Context(), location(), false, func(table keywords.Table) (keywords.Table, error) {
					spec, _ := table.Spec()
					if len(spec) == 0 {
						a.ui.Info("no keywords defined")
						return table, nil
					}
					t := tablewriter.NewWriter(a.stdout)
					t.SetHeader([]string{"Keyword", "Value"})
					t.SetAutoFormatHeaders(false)
					t.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
					for _, e := range spec {
						t.Append([]string{e.Keyword, fmt.Sprint(e.Value)})
					}
					t.Render()
					return table, nil
				})
			},
		},
		&cobra.Command{
			Use:   "set <keyword=value>...",
			Short: "Add keywords or change their values",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withTable(cmd.Context(), location(), true, func(table keywords.Table) (keywords.Table, error) {
					for _, as := range args {
						e, err := keywords.ParseAssignment(as)
						if err != nil {
							return nil, err
						}
						table = table.Set(e)
						a.ui.Success("%s = %d", e.Keyword, e.Value)
					}
					return table, nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove <keyword>...",
			Short: "Remove keywords",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withTable(cmd.Context(), location(), true, func(table keywords.Table) (keywords.Table, error) {
					for _, k := range args {
						var ok bool
						if table, ok = table.Remove(k); ok {
							a.ui.Success("removed %s", k)
						} else {
							a.ui.Warn("%s is not defined", k)
						}
					}
					return table, nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every keyword",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withTable(cmd.Context(), location(), true, func(table keywords.Table) (keywords.Table, error) {
					a.ui.Success("cleared %d row(s)", len(table))
					return keywords.Table{}, nil
				})
			},
		},
		&cobra.Command{
			Use:   "import <source>",
			Short: "Copy keywords from another store, overriding existing values",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				src, err := keywords.OpenStore(ctx, args[0], a.logger)
				if err != nil {
					a.ui.Error("%v", err)
					return err
				}
				defer src.Close()
				imported, warnings, err := keywords.LoadSpec(ctx, src)
				if err != nil {
					a.ui.Error("%v", err)
					return err
				}
				for _, w := range warnings {
					a.ui.Warn("%s: %v", src.Location(), w)
				}
				return a.withTable(ctx, location(), true, func(table keywords.Table) (keywords.Table, error) {
					for _, e := range imported {
						table = table.Set(e)
					}
					a.ui.Success("imported %d keyword(s) from %s", len(imported), src.Location())
					return table, nil
				})
			},
		},
	)
	return cmd
}

// withTable loads the stored rows at location, passes them to fn and, when
// save is set, writes back what fn returns. Rows that do not parse are
// reported and kept.
func (a *app) withTable(ctx context.Context, location string, save bool, fn func(keywords.Table) (keywords.Table, error)) error {
	store, err := keywords.OpenStore(ctx, location, a.logger)
	if err != nil {
		a.ui.Error("%v", err)
		return err
	}
	defer store.Close()

	table, _, warnings, err := keywords.LoadTable(ctx, store)
	if err != nil {
		a.ui.Error("%v", err)
		return err
	}
	for _, w := range warnings {
		a.ui.Warn("%s: %v", store.Location(), w)
	}
	next, err := fn(table)
	if err != nil {
		a.ui.Error("%v", err)
		return err
	}
	if !save {
		return nil
	}
	if err := store.Save(ctx, next); err != nil {
		a.ui.Error("save %s: %v", store.Location(), err)
		return err
	}
	return nil
}
