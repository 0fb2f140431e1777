package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/ObservedObserver/fast-pivot/api"
	"github.com/ObservedObserver/fast-pivot/internal/logger"
	"github.com/ObservedObserver/fast-pivot/internal/nest"
	"github.com/ObservedObserver/fast-pivot/internal/pivot"
	"github.com/spf13/cobra"
)

type treeOptions struct {
	fields    []string
	filters   []string
	sort      []string
	expandAll bool
	depth     int
	highlight string
	engine    engineOptions
}

func newTreeCmd(g *globalOptions) *cobra.Command {
	o := &treeOptions{}
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the NestTree of a list of dimensions",
		Example: `  fastpivot tree -d sales.csv --fields region,year --expand-all
  fastpivot tree -d sales.csv --fields region,year --depth 1 --highlight east/2020`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(cmd, g, o)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&o.fields, "fields", nil, "Dimensions, outermost first")
	f.StringArrayVar(&o.filters, "filter", nil, "Filter as id=value|value (repeatable)")
	f.StringArrayVar(&o.sort, "sort", nil, "Dimension order as id=asc|desc|numeric|numeric_desc (repeatable)")
	f.BoolVar(&o.expandAll, "expand-all", false, "Expand every node")
	f.IntVar(&o.depth, "depth", 1, "Expand the tree to this depth")
	f.StringVar(&o.highlight, "highlight", "", "Slash-separated value path to highlight")
	o.engine.register(cmd)
	return cmd
}

func runTree(cmd *cobra.Command, g *globalOptions, o *treeOptions) error {
	ctx := cmd.Context()
	if len(o.fields) == 0 {
		return fmt.Errorf("--fields is required")
	}

	v := &api.View{Rows: o.fields}
	if err := applySort(v, o.sort); err != nil {
		return err
	}
	fields, err := v.Fields(v.Rows)
	if err != nil {
		return err
	}
	var filters []pivot.Filter
	for _, s := range o.filters {
		spec, err := api.ParseFilter(s)
		if err != nil {
			return err
		}
		values := make([]any, len(spec.Values))
		for i, val := range spec.Values {
			values[i] = val
		}
		filters = append(filters, pivot.Filter{ID: spec.ID, Values: values})
	}

	ds, err := g.loadDataset(ctx)
	if err != nil {
		return err
	}
	engine, closeFn, err := o.engine.open(ctx, ds, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Get(ctx).Warn().Err(err).Msg("close backend")
		}
	}()

	tree, err := engine.CuboidNestTree(ctx, fields, filters)
	if err != nil {
		return err
	}
	if o.expandAll {
		tree = nest.ExpandAll(tree)
	} else {
		tree = nest.ExpandToDepth(tree, o.depth)
	}
	if o.highlight != "" {
		var path []any
		for _, s := range strings.Split(o.highlight, "/") {
			path = append(path, s)
		}
		tree = nest.Highlight(tree, path)
	}

	printTree(cmd.OutOrStdout(), tree, 0)
	return nil
}

// printTree writes one line per visible node: ▾ expanded, ▸ collapsed with
// children, · leaf. Highlighted nodes end with *.
func printTree(w io.Writer, t *nest.Tree, depth int) {
	marker := "·"
	switch {
	case t.HasChildren() && t.Expanded:
		marker = "▾"
	case t.HasChildren():
		marker = "▸"
	}
	line := strings.Repeat("  ", depth) + marker + " " + t.ID
	if t.Highlighted {
		line += " *"
	}
	fmt.Fprintln(w, line)
	if !t.Expanded {
		return
	}
	for _, c := range t.Children {
		printTree(w, c, depth+1)
	}
}
