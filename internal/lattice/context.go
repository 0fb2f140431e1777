// Package lattice indexes a dataset as a binary incidence table: one
// attribute per distinct (field, value) pair, stored column-major as roaring
// bitmaps of row indexes. Branch filters and exact cell lookups are answered
// with bitmap unions and intersections instead of record scans.
package lattice

import (
	"github.com/ObservedObserver/fast-pivot/internal/pivot"
	"github.com/RoaringBitmap/roaring"
)

// Attribute is a named binary property of a row, e.g. "region=west".
type Attribute struct {
	Name  string
	Field string
	Key   string // canonical value key
}

type attrKey struct {
	field string
	key   string
}

// Context is the incidence table of a dataset over a set of fields.
// Column-major storage: each attribute has a bitmap of the rows that have it.
type Context struct {
	ObjectCount int
	Fields      []string // indexed fields, de-duplicated
	Attributes  []Attribute
	indexed     map[string]struct{}
	columns     []*roaring.Bitmap
	attrIndex   map[attrKey]int
}

// Build indexes ds over fields. A row missing a field gets the attribute of
// the empty key, so filters written against nil still match it.
func Build(ds pivot.DataSource, fields []string) *Context {
	ctx := &Context{
		ObjectCount: len(ds),
		indexed:     make(map[string]struct{}, len(fields)),
		attrIndex:   make(map[attrKey]int),
	}
	for _, f := range fields {
		if _, ok := ctx.indexed[f]; !ok {
			ctx.indexed[f] = struct{}{}
			ctx.Fields = append(ctx.Fields, f)
		}
	}
	for i, rec := range ds {
		for _, f := range ctx.Fields {
			v := rec[f]
			k := pivot.Key(v)
			j, ok := ctx.attrIndex[attrKey{f, k}]
			if !ok {
				j = len(ctx.Attributes)
				ctx.Attributes = append(ctx.Attributes, Attribute{Name: AttrName(f, v), Field: f, Key: k})
				ctx.columns = append(ctx.columns, roaring.New())
				ctx.attrIndex[attrKey{f, k}] = j
			}
			ctx.columns[j].Add(uint32(i))
		}
	}
	return ctx
}

// AttrName renders the attribute name of field=value.
func AttrName(field string, v any) string {
	return field + "=" + pivot.Key(v)
}

// Index returns the attribute index of field=value.
func (ctx *Context) Index(field string, v any) (int, bool) {
	j, ok := ctx.attrIndex[attrKey{field, pivot.Key(v)}]
	return j, ok
}

// All returns the bitmap of every row.
func (ctx *Context) All() *roaring.Bitmap {
	all := roaring.New()
	all.AddRange(0, uint64(ctx.ObjectCount))
	return all
}

// AttrDeriv computes B': the rows that have ALL attributes in B.
func (ctx *Context) AttrDeriv(attrs *roaring.Bitmap) *roaring.Bitmap {
	if attrs.IsEmpty() {
		return ctx.All()
	}
	var result *roaring.Bitmap
	iter := attrs.Iterator()
	for iter.HasNext() {
		j := iter.Next()
		if int(j) >= len(ctx.columns) {
			return roaring.New()
		}
		if result == nil {
			result = ctx.columns[j].Clone()
		} else {
			result.And(ctx.columns[j])
		}
	}
	return result
}

// Match returns the rows whose value equals the step value for every
// non-wildcard step of path. Wildcard steps match everything; a step on a
// field outside the context, or on an unseen value, matches nothing.
func (ctx *Context) Match(path pivot.QueryPath) *roaring.Bitmap {
	attrs := roaring.New()
	for _, step := range path {
		if step.IsWildcard() {
			continue
		}
		j, ok := ctx.Index(step.Dim, step.Value)
		if !ok {
			return roaring.New()
		}
		attrs.Add(uint32(j))
	}
	return ctx.AttrDeriv(attrs)
}

// Select returns the rows kept by filters: for every filter the row's value
// must be one of the allowed values. Filters on fields outside the context
// are skipped. No applicable filter keeps every row.
func (ctx *Context) Select(filters []pivot.Filter) *roaring.Bitmap {
	result := ctx.All()
	for _, f := range filters {
		if _, ok := ctx.indexed[f.ID]; !ok {
			continue
		}
		allowed := roaring.New()
		for _, v := range f.Values {
			if j, ok := ctx.Index(f.ID, v); ok {
				allowed.Or(ctx.columns[j])
			}
		}
		result.And(allowed)
	}
	return result
}

// Rows materializes the records of ds at the indexes in bm, ascending.
func Rows(ds pivot.DataSource, bm *roaring.Bitmap) pivot.DataSource {
	out := make(pivot.DataSource, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, ds[it.Next()])
	}
	return out
}
