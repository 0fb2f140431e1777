package ingest

import (
	"fmt"
	"slices"

	"github.com/ObservedObserver/fast-pivot/internal/pivot"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// DefaultSelector addresses the elements of a top-level array.
const DefaultSelector = "$[*]"

// ParseJSON parses a JSON document and selects its records with a JSONPath
// selector (DefaultSelector when empty).
func ParseJSON(data []byte, selector string) (pivot.DataSource, error) {
	root, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if selector == "" {
		if _, ok := root.(map[string]any); ok {
			return pivot.DataSource{Flatten(root)}, nil
		}
		selector = DefaultSelector
	}
	return Select(root, selector)
}

// Select evaluates a JSONPath selector against root. Every object match
// becomes one flattened record; a matched array of objects contributes each
// element; a scalar match becomes {"value": v}.
func Select(root any, selector string) (pivot.DataSource, error) {
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}

	var ds pivot.DataSource
	for _, r := range x.Get(root) {
		switch v := r.(type) {
		case map[string]any:
			ds = append(ds, Flatten(v))
		case []any:
			for _, e := range v {
				ds = append(ds, Flatten(e))
			}
		default:
			ds = append(ds, pivot.Record{"value": v})
		}
	}
	return ds, nil
}

// Flatten turns nested objects into dot-separated field ids, e.g.
// {"geo": {"city": "Oslo"}} becomes {"geo.city": "Oslo"}. Arrays and
// scalars are leaves. A non-object value becomes {"value": v}.
func Flatten(v any) pivot.Record {
	m, ok := v.(map[string]any)
	if !ok {
		return pivot.Record{"value": v}
	}
	rec := make(pivot.Record, len(m))
	walkPaths(m, "", rec)
	return rec
}

func walkPaths(v any, prefix string, out pivot.Record) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 0 && prefix != "" {
			out[prefix] = nil
			return
		}
		var keys []string
		for k := range val {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			walkPaths(val[k], p, out)
		}
	default:
		// Scalar or array: record the path.
		if prefix != "" {
			out[prefix] = val
		}
	}
}

// FieldPaths returns the sorted, unique field ids found across ds.
func FieldPaths(ds pivot.DataSource) []string {
	seen := make(map[string]struct{})
	for _, rec := range ds {
		for k := range rec {
			seen[k] = struct{}{}
		}
	}
	var keys []string
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
