package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/ObservedObserver/fast-pivot/api"
	"github.com/ObservedObserver/fast-pivot/internal/crosstab"
	"github.com/ObservedObserver/fast-pivot/internal/logger"
	"github.com/ObservedObserver/fast-pivot/internal/pivot"
	"github.com/ohler55/ojg/oj"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

type matrixOptions struct {
	viewPath    string
	rows        []string
	columns     []string
	measures    []string
	filters     []string
	sort        []string
	vis         string
	expandAll   bool
	rowDepth    int
	columnDepth int
	subtotals   bool
	output      string
	engine      engineOptions
}

func newMatrixCmd(g *globalOptions) *cobra.Command {
	o := &matrixOptions{}
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Render a pivot matrix",
		Long: `Builds the row and column trees of a view, expands them and prints
the matrix of aggregated cells. Flags override the values of --view.`,
		Example: `  fastpivot matrix -d sales.csv --rows region --columns year --measures sales:sum --expand-all
  fastpivot matrix -d sales.json --view view.hcl --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatrix(cmd, g, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.viewPath, "view", "", "View file (.hcl or .json)")
	f.StringSliceVar(&o.rows, "rows", nil, "Row dimensions, outermost first")
	f.StringSliceVar(&o.columns, "columns", nil, "Column dimensions, outermost first")
	f.StringSliceVar(&o.measures, "measures", nil, "Measures as id[:sum|count|mean]")
	f.StringArrayVar(&o.filters, "filter", nil, "Filter as id=value|value (repeatable)")
	f.StringArrayVar(&o.sort, "sort", nil, "Dimension order as id=asc|desc|numeric|numeric_desc (repeatable)")
	f.StringVar(&o.vis, "vis", "", "Cell kind: number, bar, line or scatter")
	f.BoolVar(&o.expandAll, "expand-all", false, "Expand every node of both axes")
	f.IntVar(&o.rowDepth, "row-depth", 0, "Expand the row tree to this depth")
	f.IntVar(&o.columnDepth, "column-depth", 0, "Expand the column tree to this depth")
	f.BoolVar(&o.subtotals, "subtotals", false, "Add a line for every expanded node")
	f.StringVarP(&o.output, "output", "o", "table", "Output format: table or json")
	o.engine.register(cmd)
	return cmd
}

// view merges the view file with the flags that were set.
func (o *matrixOptions) view(cmd *cobra.Command) (*api.View, error) {
	v := &api.View{}
	if o.viewPath != "" {
		loaded, err := api.LoadView(o.viewPath)
		if err != nil {
			return nil, err
		}
		v = loaded
	}

	f := cmd.Flags()
	if f.Changed("rows") {
		v.Rows = o.rows
	}
	if f.Changed("columns") {
		v.Columns = o.columns
	}
	if f.Changed("measures") {
		specs, err := api.ParseMeasures(o.measures)
		if err != nil {
			return nil, err
		}
		v.Measures = specs
	}
	if f.Changed("filter") {
		v.Filters = nil
		for _, s := range o.filters {
			spec, err := api.ParseFilter(s)
			if err != nil {
				return nil, err
			}
			v.Filters = append(v.Filters, spec)
		}
	}
	if err := applySort(v, o.sort); err != nil {
		return nil, err
	}
	if f.Changed("vis") {
		v.Vis = o.vis
	}
	if f.Changed("expand-all") {
		v.ExpandAll = o.expandAll
	}
	if f.Changed("row-depth") {
		v.RowDepth = o.rowDepth
	}
	if f.Changed("column-depth") {
		v.ColumnDepth = o.columnDepth
	}
	if f.Changed("subtotals") {
		v.Subtotals = o.subtotals
	}
	return v, nil
}

// applySort adds "id=order" items to the view's sort map.
func applySort(v *api.View, items []string) error {
	for _, item := range items {
		id, order, ok := strings.Cut(item, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return fmt.Errorf("sort %q: want id=order", item)
		}
		if _, err := api.Comparator(order); err != nil {
			return fmt.Errorf("sort %s: %w", id, err)
		}
		if v.Sort == nil {
			v.Sort = map[string]string{}
		}
		v.Sort[id] = order
	}
	return nil
}

func runMatrix(cmd *cobra.Command, g *globalOptions, o *matrixOptions) error {
	ctx := cmd.Context()
	log := logger.Get(ctx)

	fileView, err := o.view(cmd)
	if err != nil {
		return err
	}
	view, err := fileView.Build()
	if err != nil {
		return err
	}
	ds, err := g.loadDataset(ctx)
	if err != nil {
		return err
	}

	engine, closeFn, err := o.engine.open(ctx, ds, view.Measures)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("close backend")
		}
	}()

	res, err := engine.Pivot(ctx, view)
	if err != nil {
		return err
	}
	st := engine.Cache().Stats()
	log.Info().
		Uint64("hits", st.Hits).
		Uint64("misses", st.Misses).
		Uint64("computes", st.Computes).
		Uint64("failures", st.Failures).
		Uint64("evictions", st.Evictions).
		Msg("cube cache")

	switch o.output {
	case "table", "":
		renderTable(cmd.OutOrStdout(), res)
		return nil
	case "json":
		_, err := fmt.Fprintln(cmd.OutOrStdout(), oj.JSON(resultJSON(res), &oj.Options{Indent: 2, Sort: true}))
		return err
	}
	return fmt.Errorf("unknown output %q", o.output)
}

// pathLabel joins a value path; the empty path is the grand total.
func pathLabel(path []any) string {
	if len(path) == 0 {
		return "Total"
	}
	parts := make([]string, len(path))
	for i, v := range path {
		parts[i] = cast.ToString(v)
	}
	return strings.Join(parts, " / ")
}

func measureValues(rec pivot.Record, measures []pivot.Measure) string {
	parts := make([]string, len(measures))
	for i, m := range measures {
		parts[i] = cast.ToString(rec[m.ID])
	}
	return strings.Join(parts, ", ")
}

// cellText renders one cell. Number cells print their measures; list cells
// print one "facet: measures" entry per record.
func cellText(res *crosstab.Result, i, j int) string {
	measures := res.Routing.ViewMeasures
	if !res.Matrix.Vis.IsList() {
		rec := res.Matrix.Record(i, j)
		if rec == nil {
			return ""
		}
		return measureValues(rec, measures)
	}
	entries := make([]string, 0, len(res.Matrix.List(i, j)))
	for _, rec := range res.Matrix.List(i, j) {
		facet := make([]any, len(res.Routing.Facets))
		for k, f := range res.Routing.Facets {
			facet[k] = rec[f.ID]
		}
		entries = append(entries, pathLabel(facet)+": "+measureValues(rec, measures))
	}
	return strings.Join(entries, "; ")
}

func renderTable(w io.Writer, res *crosstab.Result) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)

	corner := strings.Join(pivot.FieldIDs(res.Routing.NestRows), " / ")
	if corner == "" {
		corner = "-"
	}
	header := []string{corner}
	for _, p := range res.ColumnPaths {
		header = append(header, pathLabel(p))
	}
	table.SetHeader(header)

	for i, p := range res.RowPaths {
		line := []string{pathLabel(p)}
		for j := range res.ColumnPaths {
			line = append(line, cellText(res, i, j))
		}
		table.Append(line)
	}
	table.Render()
}

func pathsJSON(paths [][]any) []any {
	out := make([]any, len(paths))
	for i, p := range paths {
		out[i] = append([]any{}, p...)
	}
	return out
}

func strs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func resultJSON(res *crosstab.Result) map[string]any {
	cells := make([]any, res.Matrix.Rows())
	for i := range cells {
		line := make([]any, res.Matrix.Cols())
		for j := range line {
			list := res.Matrix.List(i, j)
			recs := make([]any, len(list))
			for k, rec := range list {
				recs[k] = map[string]any(rec)
			}
			line[j] = recs
		}
		cells[i] = line
	}
	return map[string]any{
		"vis":      string(res.Matrix.Vis),
		"rows":     strs(pivot.FieldIDs(res.Routing.NestRows)),
		"columns":  strs(pivot.FieldIDs(res.Routing.NestColumns)),
		"facets":   strs(pivot.FieldIDs(res.Routing.Facets)),
		"measures": strs(pivot.MeasureIDs(res.Routing.ViewMeasures)),
		"rowPaths": pathsJSON(res.RowPaths),
		"colPaths": pathsJSON(res.ColumnPaths),
		"cells":    cells,
	}
}
