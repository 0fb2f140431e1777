package pivot

import (
	"errors"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrAggregate wraps failures raised by a custom aggregator.
var ErrAggregate = errors.New("aggregate")

// ErrUnknownAggregator is returned by AggregatorByName.
var ErrUnknownAggregator = errors.New("unknown aggregator")

// Aggregator reduces a record subset to a partial record holding one value
// per requested field id. The set of implementations is closed: Sum, Count,
// Mean and Custom.
type Aggregator interface {
	Name() string
	Aggregate(ds DataSource, ids []string) (Record, error)
}

type sumAggregator struct{}

type countAggregator struct{}

type meanAggregator struct{}

var (
	// Sum adds the numeric values of each field. Non-numeric values are skipped.
	Sum Aggregator = sumAggregator{}
	// Count counts the records of the subset.
	Count Aggregator = countAggregator{}
	// Mean averages the numeric values of each field; nil when there are none.
	Mean Aggregator = meanAggregator{}
)

func (sumAggregator) Name() string { return "sum" }

func (sumAggregator) Aggregate(ds DataSource, ids []string) (Record, error) {
	out := make(Record, len(ids))
	for _, id := range ids {
		var total float64
		for _, rec := range ds {
			if f, ok := Number(rec[id]); ok {
				total += f
			}
		}
		out[id] = total
	}
	return out, nil
}

func (countAggregator) Name() string { return "count" }

func (countAggregator) Aggregate(ds DataSource, ids []string) (Record, error) {
	out := make(Record, len(ids))
	for _, id := range ids {
		out[id] = float64(len(ds))
	}
	return out, nil
}

func (meanAggregator) Name() string { return "mean" }

func (meanAggregator) Aggregate(ds DataSource, ids []string) (Record, error) {
	out := make(Record, len(ids))
	for _, id := range ids {
		var total float64
		n := 0
		for _, rec := range ds {
			if f, ok := Number(rec[id]); ok {
				total += f
				n++
			}
		}
		if n == 0 {
			out[id] = nil
			continue
		}
		out[id] = total / float64(n)
	}
	return out, nil
}

// Custom is a named, caller-supplied aggregator. Errors returned by Fn are
// wrapped with ErrAggregate.
type Custom struct {
	Label string
	Fn    func(ds DataSource, ids []string) (Record, error)
}

// Name implements Aggregator.
func (c Custom) Name() string { return c.Label }

// Aggregate implements Aggregator.
func (c Custom) Aggregate(ds DataSource, ids []string) (Record, error) {
	if c.Fn == nil {
		return nil, fmt.Errorf("%w: %s: no function", ErrAggregate, c.Label)
	}
	rec, err := c.Fn(ds, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAggregate, c.Label, err)
	}
	return rec, nil
}

// AggregatorByName resolves the built-in aggregators. The empty name is Sum.
func AggregatorByName(name string) (Aggregator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sum":
		return Sum, nil
	case "count":
		return Count, nil
	case "mean", "avg", "average":
		return Mean, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAggregator, name)
}

func (m Measure) aggregator() Aggregator {
	if m.Aggregator == nil {
		return Sum
	}
	return m.Aggregator
}

// AggregateAll reduces the whole subset to one record with one value per
// measure id.
func AggregateAll(ds DataSource, measures []Measure) (Record, error) {
	out := make(Record, len(measures))
	for _, m := range measures {
		part, err := m.aggregator().Aggregate(ds, []string{m.ID})
		if err != nil {
			return nil, err
		}
		out[m.ID] = part[m.ID]
	}
	return out, nil
}

// AggregateOnGroupBy groups ds by the single dimension field and aggregates
// each group. Groups keep first-seen order; each output record holds the
// field's first-seen raw value and one value per measure.
func AggregateOnGroupBy(ds DataSource, field string, measures []Measure) (DataSource, error) {
	type group struct {
		value any
		rows  DataSource
	}
	groups := orderedmap.New[string, *group]()
	for _, rec := range ds {
		v := rec[field]
		k := Key(v)
		g, ok := groups.Get(k)
		if !ok {
			g = &group{value: v}
			groups.Set(k, g)
		}
		g.rows = append(g.rows, rec)
	}

	out := make(DataSource, 0, groups.Len())
	for pair := groups.Oldest(); pair != nil; pair = pair.Next() {
		rec, err := AggregateAll(pair.Value.rows, measures)
		if err != nil {
			return nil, err
		}
		rec[field] = pair.Value.value
		out = append(out, rec)
	}
	return out, nil
}
