package crosstab

import (
	"context"
	"fmt"

	"github.com/ObservedObserver/fast-pivot/internal/nest"
	"github.com/ObservedObserver/fast-pivot/internal/pivot"
)

// View is a complete pivot configuration.
type View struct {
	Vis      pivot.VisType
	Rows     []pivot.Field
	Columns  []pivot.Field
	Measures []pivot.Measure
	Filters  []pivot.Filter

	// ExpandAll opens every node of both axis trees. Otherwise each tree is
	// opened down to RowDepth / ColumnDepth; zero leaves only the grand total.
	ExpandAll   bool
	RowDepth    int
	ColumnDepth int
	// Subtotals adds a matrix line for every expanded node, not only leaves.
	Subtotals bool
}

// Result is a rendered pivot: routing, both axis trees, the value paths of
// their visible lines and the matrix of cells.
type Result struct {
	Routing     Routing
	RowTree     *nest.Tree
	ColumnTree  *nest.Tree
	RowPaths    [][]any
	ColumnPaths [][]any
	Matrix      *Matrix
}

// Pivot routes the view's fields, builds and expands both axis trees, and
// requests the matrix for the visible lines. A matrix with failing cells is
// returned together with the error.
func (e *Engine) Pivot(ctx context.Context, v View) (*Result, error) {
	r := DeriveAxisRouting(v.Vis, v.Rows, v.Columns, v.Measures)
	res := &Result{Routing: r}

	var err error
	res.RowTree, err = e.axis(ctx, r.NestRows, v.Filters, v.ExpandAll, v.RowDepth)
	if err != nil {
		return nil, fmt.Errorf("row tree: %w", err)
	}
	res.ColumnTree, err = e.axis(ctx, r.NestColumns, v.Filters, v.ExpandAll, v.ColumnDepth)
	if err != nil {
		return nil, fmt.Errorf("column tree: %w", err)
	}
	res.RowPaths = nest.VisitPaths(res.RowTree, v.Subtotals)
	res.ColumnPaths = nest.VisitPaths(res.ColumnTree, v.Subtotals)

	res.Matrix, err = e.RequestCrossMatrix(ctx, v.Vis,
		res.RowPaths, res.ColumnPaths,
		r.NestRows, r.NestColumns,
		r.FacetMeasures, r.Facets)
	if err != nil {
		return res, fmt.Errorf("cross matrix: %w", err)
	}
	return res, nil
}

func (e *Engine) axis(ctx context.Context, fields []pivot.Field, filters []pivot.Filter, all bool, depth int) (*nest.Tree, error) {
	t, err := e.CuboidNestTree(ctx, fields, filters)
	if err != nil {
		return nil, err
	}
	if all {
		return nest.ExpandAll(t), nil
	}
	return nest.ExpandToDepth(t, depth), nil
}
