package crosstab

import (
	"context"
	"slices"

	"github.com/ObservedObserver/fast-pivot/internal/lattice"
	"github.com/ObservedObserver/fast-pivot/internal/nest"
	"github.com/ObservedObserver/fast-pivot/internal/pivot"
)

// CuboidNestTree builds the sorted axis tree of fields from the raw cuboid
// of exactly those dimensions. Each filter whose id is one of the fields
// keeps only records whose value is among its allowed values; other filters
// are ignored.
func (e *Engine) CuboidNestTree(ctx context.Context, fields []pivot.Field, filters []pivot.Filter) (*nest.Tree, error) {
	ids := pivot.FieldIDs(fields)
	cb, err := e.cache.Get(ctx, e.order(ids), nil)
	if err != nil {
		return nil, err
	}
	rows := cb.Records()

	var applicable []pivot.Filter
	for _, f := range filters {
		if slices.Contains(ids, f.ID) {
			applicable = append(applicable, f)
		}
	}
	if len(applicable) > 0 {
		idx := lattice.Build(rows, ids)
		rows = lattice.Rows(rows, idx.Select(applicable))
	}
	return nest.Sort(nest.Build(rows, ids), fields), nil
}
