// Package pivot holds the data model shared by the cube packages: records,
// fields, measures, query paths and the aggregators that reduce a record
// subset into a single row.
package pivot

// Record is one dataset row: field id → scalar (string, integer or float).
type Record map[string]any

// DataSource is an ordered sequence of records.
type DataSource []Record

// Field is a dimension used for grouping. Cmp, when set, orders the
// dimension's values inside a NestTree level.
type Field struct {
	ID  string
	Cmp func(a, b any) int
}

// Measure is a numeric field reduced by an Aggregator. A nil Aggregator
// means Sum.
type Measure struct {
	ID         string
	Aggregator Aggregator
}

// Filter keeps records whose value for ID is one of Values.
type Filter struct {
	ID     string
	Values []any
}

// Wildcard matches every value of a dimension in a QueryPath.
const Wildcard = "*"

// PathStep binds one dimension to a value, or to Wildcard.
type PathStep struct {
	Dim   string
	Value any
}

// IsWildcard reports whether the step fans out over all values.
func (s PathStep) IsWildcard() bool {
	v, ok := s.Value.(string)
	return ok && v == Wildcard
}

// QueryPath addresses a subset of a cuboid.
type QueryPath []PathStep

// Dims returns the dimension ids of the path in path order.
func (p QueryPath) Dims() []string {
	dims := make([]string, len(p))
	for i, s := range p {
		dims[i] = s.Dim
	}
	return dims
}

// Lookup returns the first step bound to dim.
func (p QueryPath) Lookup(dim string) (PathStep, bool) {
	for _, s := range p {
		if s.Dim == dim {
			return s, true
		}
	}
	return PathStep{}, false
}

// Bind zips values with the leading fields into path steps. Values beyond
// the number of fields are dropped.
func Bind(fields []Field, values []any) QueryPath {
	n := min(len(fields), len(values))
	path := make(QueryPath, 0, n)
	for i := 0; i < n; i++ {
		path = append(path, PathStep{Dim: fields[i].ID, Value: values[i]})
	}
	return path
}

// VisType selects how a cross-matrix cell is rendered.
type VisType string

const (
	VisNumber  VisType = "number"
	VisBar     VisType = "bar"
	VisLine    VisType = "line"
	VisScatter VisType = "scatter"
)

// IsList reports whether a cell of this kind holds a record list rather
// than a single record.
func (v VisType) IsList() bool {
	switch v {
	case VisBar, VisLine, VisScatter:
		return true
	}
	return false
}

// FieldIDs returns the ids of fields, in order.
func FieldIDs(fields []Field) []string {
	ids := make([]string, len(fields))
	for i, f := range fields {
		ids[i] = f.ID
	}
	return ids
}

// MeasureIDs returns the ids of measures, in order.
func MeasureIDs(measures []Measure) []string {
	ids := make([]string, len(measures))
	for i, m := range measures {
		ids[i] = m.ID
	}
	return ids
}
