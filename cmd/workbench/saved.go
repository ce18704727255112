package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"soql-workbench/internal/model"
	"soql-workbench/internal/workspace"
)

func newSavedCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "saved",
		Aliases: []string{"s"},
		Short:   "Manage saved queries",
	}
	cmd.AddCommand(
		newSavedListCmd(a),
		newSavedSaveCmd(a),
		newSavedShowCmd(a),
		newSavedEditCmd(a),
		newSavedDeleteCmd(a),
		newSavedRunCmd(a),
	)
	return cmd
}

// resolveSaved accepts a saved query id or name.
func (a *app) resolveSaved(ctx context.Context, ref string) (*model.SavedQuery, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if q, err := a.library.Get(ctx, id); err == nil {
			return q, nil
		}
	}
	q, err := a.library.FindByName(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, ref)
	}
	return q, nil
}

func newSavedListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			queries, err := a.library.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(queries) == 0 {
				fmt.Fprintln(a.out, "No saved queries")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCREATED\tAUTO EXPORT\tQUERY")
			for _, q := range queries {
				auto := "-"
				if q.Export != nil && q.Export.AutoExport {
					auto = "yes"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", q.ID, q.Name, humanize.Time(q.CreatedAt), auto, cellText(q.Query))
			}
			return tw.Flush()
		},
	}
}

type exportFlags struct {
	filename   string
	path       string
	autoExport bool
}

func (f *exportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.filename, "export-file", "", "file name for exports of this query")
	cmd.Flags().StringVar(&f.path, "export-path", "", "directory for exports of this query")
	cmd.Flags().BoolVar(&f.autoExport, "auto-export", false, "export every time the query runs")
}

func (f *exportFlags) config(cmd *cobra.Command) *model.ExportConfig {
	fl := cmd.Flags()
	if !fl.Changed("export-file") && !fl.Changed("export-path") && !fl.Changed("auto-export") {
		return nil
	}
	return &model.ExportConfig{Filename: f.filename, Path: f.path, AutoExport: f.autoExport}
}

func newSavedSaveCmd(a *app) *cobra.Command {
	var (
		export      exportFlags
		description string
		replace     bool
	)
	cmd := &cobra.Command{
		Use:   "save <name> <soql>",
		Short: "Save a query under a unique name",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, soql := args[0], strings.Join(args[1:], " ")

			if replace {
				if _, err := a.library.FindByName(ctx, name); err == nil {
					q, err := a.library.Replace(ctx, name, soql)
					if err != nil {
						return err
					}
					fmt.Fprintf(a.out, "Replaced %q (id %d)\n", q.Name, q.ID)
					return nil
				}
			}

			q, err := a.library.Save(ctx, name, soql, export.config(cmd))
			if err != nil {
				return err
			}
			if description != "" {
				if q, err = a.library.Update(ctx, q.ID, workspace.QueryPatch{Description: &description}); err != nil {
					return err
				}
			}
			fmt.Fprintf(a.out, "Saved %q (id %d)\n", q.Name, q.ID)
			return nil
		},
	}
	export.register(cmd)
	cmd.Flags().StringVarP(&description, "description", "d", "", "description")
	cmd.Flags().BoolVar(&replace, "replace", false, "overwrite the query text when the name exists")
	return cmd
}

func newSavedShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show a saved query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.resolveSaved(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "ID:          %d\n", q.ID)
			fmt.Fprintf(a.out, "Name:        %s\n", q.Name)
			if q.Description != "" {
				fmt.Fprintf(a.out, "Description: %s\n", q.Description)
			}
			fmt.Fprintf(a.out, "Created:     %s\n", q.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			if q.UpdatedAt != nil {
				fmt.Fprintf(a.out, "Updated:     %s\n", q.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
			}
			if q.Export != nil {
				fmt.Fprintf(a.out, "Export:      file=%q path=%q auto=%t\n", q.Export.Filename, q.Export.Path, q.Export.AutoExport)
			}
			fmt.Fprintf(a.out, "\n%s\n", q.Query)
			return nil
		},
	}
}

func newSavedEditCmd(a *app) *cobra.Command {
	var (
		export      exportFlags
		name        string
		query       string
		description string
		noExport    bool
	)
	cmd := &cobra.Command{
		Use:   "edit <id|name>",
		Short: "Edit a saved query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q, err := a.resolveSaved(ctx, args[0])
			if err != nil {
				return err
			}

			patch := workspace.QueryPatch{Export: export.config(cmd), ClearExport: noExport}
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("query") {
				patch.Query = &query
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}

			updated, err := a.library.Update(ctx, q.ID, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated %q (id %d)\n", updated.Name, updated.ID)
			return nil
		},
	}
	export.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&query, "query", "", "new query text")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().BoolVar(&noExport, "no-export", false, "remove the export configuration")
	return cmd
}

func newSavedDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|name>",
		Short: "Delete a saved query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.resolveSaved(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.library.Delete(cmd.Context(), q.ID); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %q\n", q.Name)
			return nil
		},
	}
}

func newSavedRunCmd(a *app) *cobra.Command {
	var opts queryOptions
	cmd := &cobra.Command{
		Use:   "run <id|name>",
		Short: "Run a saved query, exporting it when auto export is on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q, err := a.resolveSaved(ctx, args[0])
			if err != nil {
				return err
			}
			var limit *int
			if cmd.Flags().Changed("limit") {
				limit = &opts.limit
			}

			rs, err := a.runQuery(ctx, q.Query, limit)
			if err != nil {
				return err
			}
			if err := a.showResults(q.Query, rs, opts); err != nil {
				return err
			}
			if q.Export != nil && q.Export.AutoExport && opts.export == "" {
				return a.exportResults(q.Query, rs.Records, rs.Columns, q.Export.Path, q.Export.Filename)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.limit, "limit", "l", 10000, "maximum records to fetch, 0 for unlimited (server default when unset)")
	cmd.Flags().IntVar(&opts.rows, "rows", 20, "rows to print, 0 prints all")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "print field statistics")
	cmd.Flags().StringVar(&opts.export, "export", "", "export results to this file instead of the saved export setup")
	return cmd
}
