package crosstab

import (
	"fmt"

	"github.com/ObservedObserver/fast-pivot/internal/lattice"
	"github.com/ObservedObserver/fast-pivot/internal/pivot"
)

// LocalCrossMatrix computes a cross matrix straight from ds without the
// cuboid cache. Number cells hold the aggregate of the cell subset (a zero
// row when the subset is empty); list cells hold the subset grouped by the
// first facet field, or its single aggregate when there is no facet.
func LocalCrossMatrix(
	vis pivot.VisType,
	ds pivot.DataSource,
	rowPaths, colPaths [][]any,
	rows, cols []pivot.Field,
	measures []pivot.Measure,
	facets []pivot.Field,
) (*Matrix, error) {
	idx := lattice.Build(ds, append(pivot.FieldIDs(rows), pivot.FieldIDs(cols)...))
	m := newMatrix(vis, len(rowPaths), len(colPaths))
	for i, rp := range rowPaths {
		for j, cp := range colPaths {
			path := append(pivot.Bind(rows, rp), pivot.Bind(cols, cp)...)
			subset := lattice.Rows(ds, idx.Match(path))

			var cell pivot.DataSource
			var err error
			if vis.IsList() && len(facets) > 0 {
				cell, err = pivot.AggregateOnGroupBy(subset, facets[0].ID, measures)
			} else {
				var rec pivot.Record
				rec, err = pivot.AggregateAll(subset, measures)
				cell = pivot.DataSource{rec}
			}
			if err != nil {
				return nil, fmt.Errorf("cell (%d, %d): %w", i, j, err)
			}
			m.Cells[i][j] = cell
		}
	}
	return m, nil
}
