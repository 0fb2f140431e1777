// Package api defines the file form of pivot views.
package api

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ObservedObserver/fast-pivot/internal/crosstab"
	"github.com/ObservedObserver/fast-pivot/internal/pivot"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

// View is the file form of a pivot configuration. It decodes from JSON
// (.json) or HCL (.hcl):
//
//	vis        = "bar"
//	rows       = ["region"]
//	columns    = ["year", "product"]
//	expand_all = true
//	sort       = { year = "numeric_desc" }
//
//	measure "sales" {
//	  aggregator = "sum"
//	}
//
//	filter "region" {
//	  values = ["east", "west"]
//	}
type View struct {
	// Vis is the cell kind: number, bar, line or scatter.
	Vis string `json:"vis,omitempty" hcl:"vis,optional"`
	// Rows and Columns list dimension ids, outermost first.
	Rows    []string `json:"rows,omitempty" hcl:"rows,optional"`
	Columns []string `json:"columns,omitempty" hcl:"columns,optional"`
	// Sort maps a dimension id to its order: asc, desc, numeric or numeric_desc.
	Sort map[string]string `json:"sort,omitempty" hcl:"sort,optional"`

	Measures []MeasureSpec `json:"measures,omitempty" hcl:"measure,block"`
	Filters  []FilterSpec  `json:"filters,omitempty" hcl:"filter,block"`

	ExpandAll   bool `json:"expand_all,omitempty" hcl:"expand_all,optional"`
	RowDepth    int  `json:"row_depth,omitempty" hcl:"row_depth,optional"`
	ColumnDepth int  `json:"column_depth,omitempty" hcl:"column_depth,optional"`
	Subtotals   bool `json:"subtotals,omitempty" hcl:"subtotals,optional"`
}

// MeasureSpec names a measure and its built-in aggregator.
type MeasureSpec struct {
	ID         string `json:"id" hcl:"id,label"`
	Aggregator string `json:"aggregator,omitempty" hcl:"aggregator,optional"`
}

// FilterSpec keeps the records whose value for ID is one of Values.
type FilterSpec struct {
	ID     string   `json:"id" hcl:"id,label"`
	Values []string `json:"values" hcl:"values"`
}

// LoadView reads a view file, choosing the syntax by extension.
func LoadView(path string) (*View, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read view %s: %w", path, err)
	}
	return ParseView(filepath.Base(path), src)
}

// ParseView decodes src; filename selects the syntax (.hcl, otherwise JSON).
func ParseView(filename string, src []byte) (*View, error) {
	var v View
	if strings.EqualFold(filepath.Ext(filename), ".hcl") {
		if err := hclsimple.Decode(filename, src, nil, &v); err != nil {
			return nil, fmt.Errorf("decode hcl view: %w", err)
		}
		return &v, nil
	}
	if err := json.Unmarshal(src, &v); err != nil {
		return nil, fmt.Errorf("decode json view: %w", err)
	}
	return &v, nil
}

// Fields resolves dimension ids into fields carrying the configured order.
func (v *View) Fields(ids []string) ([]pivot.Field, error) {
	fields := make([]pivot.Field, len(ids))
	for i, id := range ids {
		cmp, err := Comparator(v.Sort[id])
		if err != nil {
			return nil, fmt.Errorf("sort %s: %w", id, err)
		}
		fields[i] = pivot.Field{ID: id, Cmp: cmp}
	}
	return fields, nil
}

// Comparator returns the value order named by s. "" and "asc" return nil,
// which NestTree sorting treats as lexicographic.
func Comparator(s string) (func(a, b any) int, error) {
	switch strings.ToLower(s) {
	case "", "asc":
		return nil, nil
	case "desc":
		return func(a, b any) int { return strings.Compare(pivot.Key(b), pivot.Key(a)) }, nil
	case "numeric":
		return numeric, nil
	case "numeric_desc":
		return func(a, b any) int { return numeric(b, a) }, nil
	}
	return nil, fmt.Errorf("unknown order %q", s)
}

// numeric orders numbers before non-numbers, numbers by value and the rest
// lexicographically.
func numeric(a, b any) int {
	fa, aok := pivot.Number(a)
	fb, bok := pivot.Number(b)
	switch {
	case aok && bok:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case aok:
		return -1
	case bok:
		return 1
	}
	return strings.Compare(pivot.Key(a), pivot.Key(b))
}

// Build converts the file form into an engine view.
func (v *View) Build() (crosstab.View, error) {
	vis := pivot.VisType(strings.ToLower(v.Vis))
	if vis == "" {
		vis = pivot.VisNumber
	}
	rows, err := v.Fields(v.Rows)
	if err != nil {
		return crosstab.View{}, err
	}
	cols, err := v.Fields(v.Columns)
	if err != nil {
		return crosstab.View{}, err
	}

	measures := make([]pivot.Measure, len(v.Measures))
	for i, m := range v.Measures {
		agg, err := pivot.AggregatorByName(m.Aggregator)
		if err != nil {
			return crosstab.View{}, fmt.Errorf("measure %s: %w", m.ID, err)
		}
		measures[i] = pivot.Measure{ID: m.ID, Aggregator: agg}
	}

	filters := make([]pivot.Filter, len(v.Filters))
	for i, f := range v.Filters {
		values := make([]any, len(f.Values))
		for j, s := range f.Values {
			values[j] = s
		}
		filters[i] = pivot.Filter{ID: f.ID, Values: values}
	}

	return crosstab.View{
		Vis:         vis,
		Rows:        rows,
		Columns:     cols,
		Measures:    measures,
		Filters:     filters,
		ExpandAll:   v.ExpandAll,
		RowDepth:    v.RowDepth,
		ColumnDepth: v.ColumnDepth,
		Subtotals:   v.Subtotals,
	}, nil
}

// ParseMeasures parses "id[:aggregator]" items, e.g. "sales:mean".
func ParseMeasures(items []string) ([]MeasureSpec, error) {
	out := make([]MeasureSpec, 0, len(items))
	for _, item := range items {
		id, agg, _ := strings.Cut(strings.TrimSpace(item), ":")
		if id == "" {
			return nil, fmt.Errorf("empty measure in %q", item)
		}
		if _, err := pivot.AggregatorByName(agg); err != nil {
			return nil, fmt.Errorf("measure %s: %w", id, err)
		}
		out = append(out, MeasureSpec{ID: id, Aggregator: agg})
	}
	return out, nil
}

// ParseFilter parses "id=v1|v2|..." into a filter spec.
func ParseFilter(s string) (FilterSpec, error) {
	id, values, ok := strings.Cut(s, "=")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return FilterSpec{}, fmt.Errorf("filter %q: want id=value|value", s)
	}
	return FilterSpec{ID: id, Values: strings.Split(values, "|")}, nil
}
