package cuboid

import (
	"github.com/ObservedObserver/fast-pivot/internal/pivot"
)

// Aggregate groups ds by the full dims tuple and reduces every group with
// measures, producing an aggregated cuboid. Groups appear in the raw
// cuboid's child order; each row carries the first-seen raw dimension values
// of its group. An aggregator error aborts the build.
func Aggregate(dims []string, ds pivot.DataSource, measures []pivot.Measure) (*Cuboid, error) {
	raw := NewRaw(dims, ds)
	var rows pivot.DataSource
	var err error
	raw.eachLeaf(raw.root, 0, func(n *node) bool {
		if n.rows.IsEmpty() {
			return true
		}
		subset := make(pivot.DataSource, 0, n.rows.GetCardinality())
		it := n.rows.Iterator()
		for it.HasNext() {
			subset = append(subset, ds[it.Next()])
		}
		var rec pivot.Record
		rec, err = pivot.AggregateAll(subset, measures)
		if err != nil {
			return false
		}
		for _, dim := range dims {
			rec[dim] = subset[0][dim]
		}
		rows = append(rows, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	return NewAggregated(dims, pivot.MeasureIDs(measures), rows), nil
}

func (c *Cuboid) eachLeaf(n *node, depth int, fn func(*node) bool) bool {
	if depth == len(c.dims) {
		return fn(n)
	}
	for pair := n.children.Oldest(); pair != nil; pair = pair.Next() {
		if !c.eachLeaf(pair.Value, depth+1, fn) {
			return false
		}
	}
	return true
}
