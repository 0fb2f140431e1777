package crosstab

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ObservedObserver/fast-pivot/internal/pivot"
	"golang.org/x/sync/errgroup"
)

// Matrix is a row-major grid of cells. For list kinds (bar, line, scatter)
// a cell holds every record of its subset; for number it holds at most the
// first one, and is nil when the subset is empty.
type Matrix struct {
	Vis   pivot.VisType
	Cells [][]pivot.DataSource
}

func newMatrix(vis pivot.VisType, rows, cols int) *Matrix {
	m := &Matrix{Vis: vis, Cells: make([][]pivot.DataSource, rows)}
	for i := range m.Cells {
		m.Cells[i] = make([]pivot.DataSource, cols)
	}
	return m
}

// Rows returns the number of matrix rows.
func (m *Matrix) Rows() int { return len(m.Cells) }

// Cols returns the number of matrix columns.
func (m *Matrix) Cols() int {
	if len(m.Cells) == 0 {
		return 0
	}
	return len(m.Cells[0])
}

// Record returns the single record of a number cell, or nil.
func (m *Matrix) Record(i, j int) pivot.Record {
	cell := m.List(i, j)
	if len(cell) == 0 {
		return nil
	}
	return cell[0]
}

// List returns the records of cell (i, j). Out-of-range cells are empty.
func (m *Matrix) List(i, j int) pivot.DataSource {
	if i < 0 || i >= len(m.Cells) || j < 0 || j >= len(m.Cells[i]) {
		return nil
	}
	return m.Cells[i][j]
}

// CellPath binds a row value path to rows, a column value path to cols and
// appends one wildcard step per facet field.
func CellPath(rowPath, colPath []any, rows, cols, facets []pivot.Field) pivot.QueryPath {
	path := append(pivot.Bind(rows, rowPath), pivot.Bind(cols, colPath)...)
	for _, f := range facets {
		path = append(path, pivot.PathStep{Dim: f.ID, Value: pivot.Wildcard})
	}
	return path
}

func shape(vis pivot.VisType, result pivot.DataSource) pivot.DataSource {
	if vis.IsList() {
		return result
	}
	if len(result) == 0 {
		return nil
	}
	return result[:1:1]
}

// RequestCrossMatrix fills one cell per (row path, column path) pair with
// the cached query of the bound path. Cells are fetched concurrently; a
// failing cell is left empty while the others are filled, and the joined
// cell errors are returned together with the partial matrix.
func (e *Engine) RequestCrossMatrix(
	ctx context.Context,
	vis pivot.VisType,
	rowPaths, colPaths [][]any,
	rows, cols []pivot.Field,
	measures []pivot.Measure,
	facets []pivot.Field,
) (*Matrix, error) {
	m := newMatrix(vis, len(rowPaths), len(colPaths))
	ids := pivot.MeasureIDs(measures)

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, rp := range rowPaths {
		for j, cp := range colPaths {
			i, j := i, j
			path := CellPath(rp, cp, rows, cols, facets)
			g.Go(func() error {
				result, err := e.CacheQuery(ctx, path, ids)
				if err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("cell (%d, %d): %w", i, j, err))
					mu.Unlock()
					return nil
				}
				m.Cells[i][j] = shape(vis, result)
				return nil
			})
		}
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return m, err
	}
	return m, errors.Join(errs...)
}
