package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"soql-workbench/internal/client"
	"soql-workbench/internal/model"
	"soql-workbench/internal/pipeline"
	"soql-workbench/internal/store"
)

// maxCellWidth truncates wide values in table output.
const maxCellWidth = 40

type queryOptions struct {
	limit  int
	rows   int
	stats  bool
	export string
	save   string
	asJSON bool
}

func newQueryCmd(a *app) *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <soql>",
		Short: "Run a query and fetch all of its pages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			soql := strings.Join(args, " ")
			var limit *int
			if cmd.Flags().Changed("limit") {
				limit = &opts.limit
			}

			rs, err := a.runQuery(cmd.Context(), soql, limit)
			if err != nil {
				return err
			}
			if err := a.showResults(soql, rs, opts); err != nil {
				return err
			}

			if opts.save != "" {
				saved, err := a.library.Save(cmd.Context(), opts.save, soql, nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Saved as %q (id %d)\n", saved.Name, saved.ID)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.limit, "limit", "l", 10000, "maximum records to fetch, 0 for unlimited (server default when unset)")
	cmd.Flags().IntVar(&opts.rows, "rows", 20, "rows to print, 0 prints all")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "print field statistics")
	cmd.Flags().StringVar(&opts.export, "export", "", "export results to a .csv or .json file")
	cmd.Flags().StringVar(&opts.save, "save", "", "save the query under this name")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the result set as JSON")
	return cmd
}

// runQuery executes soql on the server and caches the result locally.
func (a *app) runQuery(ctx context.Context, soql string, limit *int) (*model.ResultSet, error) {
	rs, err := a.api.Query(ctx, soql, limit)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && !client.IsUnauthenticated(err) {
			return nil, errors.New(client.QueryHint(apiErr.Message))
		}
		return nil, apiError(err)
	}
	if err := a.cache.Store(ctx, soql, rs); err != nil {
		a.logger.Warn("failed to cache results", zap.Error(err))
	}
	return rs, nil
}

func (a *app) showResults(soql string, rs *model.ResultSet, opts queryOptions) error {
	if opts.asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(rs)
	}

	printRecords(a.out, rs.Records, rs.Columns, opts.rows)
	fmt.Fprintln(a.out, summaryLine(rs))

	if opts.stats {
		printStatistics(a.out, pipeline.ComputeStatistics(rs.Records), rs.Columns)
	}
	if opts.export != "" {
		return a.exportResults(soql, rs.Records, rs.Columns, filepath.Dir(opts.export), filepath.Base(opts.export))
	}
	return nil
}

// exportResults writes records below the configured export directory; an
// empty fileName picks the dated default.
func (a *app) exportResults(soql string, records []model.Record, columns []string, dir, fileName string) error {
	result := a.exports.Export(pipeline.ExportRequest{
		Query:    soql,
		Records:  records,
		Columns:  columns,
		Dir:      dir,
		FileName: fileName,
	})
	if !result.Success {
		return fmt.Errorf("export failed: %s", result.Error)
	}
	fmt.Fprintf(a.out, "Exported %s records to %s (%s)\n",
		humanize.Comma(int64(result.RecordCount)), result.Path, humanize.Bytes(uint64(result.Bytes)))
	return nil
}

func summaryLine(rs *model.ResultSet) string {
	limit := "unlimited"
	if !rs.Unlimited {
		limit = "limit " + humanize.Comma(int64(rs.RecordLimit))
	}
	line := fmt.Sprintf("Fetched %s of %s records (%s)",
		humanize.Comma(int64(rs.FetchedCount)), humanize.Comma(int64(rs.TotalAvailable)), limit)
	if !rs.Done || rs.FetchedCount < rs.TotalAvailable {
		line += ", more records are available"
	}
	return line
}

func newInspectCmd(a *app) *cobra.Command {
	var opts queryOptions
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show statistics of the last fetched results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cached, err := a.cache.Load(cmd.Context())
			if errors.Is(err, store.ErrNotFound) {
				return errors.New("no cached results, run a query first")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Query: %s\nFetched %s records %s\n\n",
				cached.Query, humanize.Comma(int64(cached.FetchedCount)), humanize.Time(cached.CachedAt))
			printStatistics(a.out, pipeline.ComputeStatistics(cached.Records), cached.Columns)

			if opts.export != "" {
				return a.exportResults(cached.Query, cached.Records, cached.Columns, filepath.Dir(opts.export), filepath.Base(opts.export))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.export, "export", "", "export the cached results to a .csv or .json file")
	return cmd
}

func newObjectsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "objects",
		Short: "List queryable objects",
		RunE: func(cmd *cobra.Command, args []string) error {
			objects, err := a.api.Objects(cmd.Context())
			if err != nil {
				return apiError(err)
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tLABEL")
			for _, o := range objects {
				fmt.Fprintf(tw, "%s\t%s\n", o.Name, o.Label)
			}
			return tw.Flush()
		},
	}
}

func newDescribeCmd(a *app) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "describe <object>",
		Short: "Show the fields of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			describe, err := a.api.Describe(cmd.Context(), args[0])
			if err != nil {
				return apiError(err)
			}
			if raw {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(describe)
			}

			fields, _ := describe["fields"].([]interface{})
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tTYPE\tLABEL")
			for _, f := range fields {
				field, ok := f.(map[string]interface{})
				if !ok {
					continue
				}
				fmt.Fprintf(tw, "%v\t%v\t%v\n", field["name"], field["type"], field["label"])
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&raw, "json", false, "print the full describe result")
	return cmd
}

// ------------------- Output -------------------

// printRecords writes up to rows records as a table; rows 0 prints all, < 0 none.
func printRecords(w io.Writer, records []model.Record, columns []string, rows int) {
	if rows < 0 || len(columns) == 0 {
		return
	}
	if rows == 0 || rows > len(records) {
		rows = len(records)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	cells := make([]string, len(columns))
	for _, rec := range records[:rows] {
		for i, col := range columns {
			cells[i] = cellText(rec[col])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
	if rows < len(records) {
		fmt.Fprintf(w, "... %s more rows\n", humanize.Comma(int64(len(records)-rows)))
	}
}

func cellText(v interface{}) string {
	var s string
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		s = val
	case map[string]interface{}, []interface{}:
		b, _ := json.Marshal(val)
		s = string(b)
	default:
		s = fmt.Sprint(val)
	}
	s = strings.NewReplacer("\t", " ", "\n", " ").Replace(s)
	if len(s) > maxCellWidth {
		s = s[:maxCellWidth-3] + "..."
	}
	return s
}

func printStatistics(w io.Writer, stats map[string]*model.FieldStatistic, columns []string) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No data to profile")
		return
	}

	// columns first, then any remaining fields by name
	order := make([]string, 0, len(stats))
	seen := make(map[string]bool, len(stats))
	for _, c := range columns {
		if _, ok := stats[c]; ok {
			order = append(order, c)
			seen[c] = true
		}
	}
	var rest []string
	for field := range stats {
		if !seen[field] {
			rest = append(rest, field)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tTYPE\tNULLS\tNULL %\tDETAILS")
	for _, field := range order {
		s := stats[field]
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s%%\t%s\n", s.Field, s.Type, s.NullCount, s.NullPercentage, statDetails(s))
	}
	tw.Flush()
}

func statDetails(s *model.FieldStatistic) string {
	switch {
	case s.Min != nil && s.Max != nil:
		return fmt.Sprintf("min %s  max %s  mean %s  median %s",
			humanize.Ftoa(*s.Min), humanize.Ftoa(*s.Max), s.Mean, s.Median)
	case s.UniqueCount != nil:
		parts := make([]string, 0, len(s.TopValues))
		for _, tv := range s.TopValues {
			parts = append(parts, fmt.Sprintf("%s (%d)", cellText(tv.Value), tv.Count))
		}
		details := fmt.Sprintf("unique %d  duplicates %d", *s.UniqueCount, *s.DuplicateCount)
		if len(parts) > 0 {
			details += "  top: " + strings.Join(parts, ", ")
		}
		return details
	}
	return ""
}
