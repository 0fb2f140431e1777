// Package cuboid implements the materialized aggregation of a dataset over
// one ordered dimension subset, and the resolution of query paths against it.
package cuboid

import (
	"slices"

	"github.com/ObservedObserver/fast-pivot/internal/pivot"
	"github.com/RoaringBitmap/roaring"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Cuboid is an immutable tree keyed by dimension value per level. Each
// deepest-level node holds the bitmap of row indexes of its tuple; rows are
// the raw records of a raw cuboid or the pre-aggregated records of an
// aggregated one (one per distinct dimension tuple).
type Cuboid struct {
	dims       []string
	measures   []string
	rows       pivot.DataSource
	aggregated bool
	root       *node
}

type node struct {
	rows     *roaring.Bitmap
	children *orderedmap.OrderedMap[string, *node]
}

func newNode() *node {
	return &node{
		rows:     roaring.New(),
		children: orderedmap.New[string, *node](),
	}
}

// NewRaw indexes the raw records of ds over dims.
func NewRaw(dims []string, ds pivot.DataSource) *Cuboid {
	return build(dims, nil, ds, false)
}

// NewAggregated indexes pre-aggregated rows over dims. Each row carries its
// dimension values and one value per measure id.
func NewAggregated(dims, measures []string, rows pivot.DataSource) *Cuboid {
	return build(dims, measures, rows, true)
}

func build(dims, measures []string, rows pivot.DataSource, aggregated bool) *Cuboid {
	c := &Cuboid{
		dims:       slices.Clone(dims),
		measures:   slices.Clone(measures),
		rows:       rows,
		aggregated: aggregated,
		root:       newNode(),
	}
	for i, rec := range rows {
		n := c.root
		for _, dim := range c.dims {
			k := pivot.Key(rec[dim])
			child, ok := n.children.Get(k)
			if !ok {
				child = newNode()
				n.children.Set(k, child)
			}
			n = child
		}
		n.rows.Add(uint32(i))
	}
	return c
}

// Dims returns the cuboid's dimension key, in level order.
func (c *Cuboid) Dims() []string { return slices.Clone(c.dims) }

// Measures returns the measure ids held by an aggregated cuboid.
func (c *Cuboid) Measures() []string { return slices.Clone(c.measures) }

// Aggregated reports whether rows are pre-aggregated.
func (c *Cuboid) Aggregated() bool { return c.aggregated }

// Len returns the number of rows.
func (c *Cuboid) Len() int { return len(c.rows) }

// Records returns every row in storage order. The slice is shared.
func (c *Cuboid) Records() pivot.DataSource { return c.rows }

// Resolve walks path level by level: a step matches one child by canonical
// key, or every child when it is a wildcard. Steps are positional (step i
// addresses level i). A path shorter than the key is padded with wildcards,
// so resolution always ends on the deepest level: an aggregated cuboid
// answers with one pre-aggregated row per reached tuple, never with a
// rollup of a shorter prefix. Rows are concatenated in child iteration
// order; within a node they keep their storage order. An empty path
// addresses the whole cuboid. A path that matches nothing yields an empty
// result.
func (c *Cuboid) Resolve(path pivot.QueryPath) pivot.DataSource {
	full := make(pivot.QueryPath, len(c.dims))
	for i, dim := range c.dims {
		if i < len(path) {
			full[i] = path[i]
			continue
		}
		full[i] = pivot.PathStep{Dim: dim, Value: pivot.Wildcard}
	}
	var out pivot.DataSource
	for _, n := range c.reach(c.root, full) {
		it := n.rows.Iterator()
		for it.HasNext() {
			out = append(out, c.rows[it.Next()])
		}
	}
	return out
}

func (c *Cuboid) reach(n *node, path pivot.QueryPath) []*node {
	if len(path) == 0 {
		return []*node{n}
	}
	step := path[0]
	if !step.IsWildcard() {
		child, ok := n.children.Get(pivot.Key(step.Value))
		if !ok {
			return nil
		}
		return c.reach(child, path[1:])
	}
	var out []*node
	for pair := n.children.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, c.reach(pair.Value, path[1:])...)
	}
	return out
}

// Project re-binds a caller's path onto order: each dimension takes the
// caller's first step for it, or a wildcard when the caller left it out.
// Caller steps naming dimensions outside order are dropped.
func Project(path pivot.QueryPath, order []string) pivot.QueryPath {
	out := make(pivot.QueryPath, len(order))
	for i, dim := range order {
		step, ok := path.Lookup(dim)
		if !ok {
			step = pivot.PathStep{Dim: dim, Value: pivot.Wildcard}
		}
		out[i] = step
	}
	return out
}

// Query projects path onto the cuboid's level order (order, or the cuboid's
// own key when order is nil) and resolves it. A dimension missing from the
// caller's path acts as a wildcard.
func Query(c *Cuboid, path pivot.QueryPath, order []string) pivot.DataSource {
	if order == nil {
		order = c.dims
	}
	return c.Resolve(Project(path, order))
}
