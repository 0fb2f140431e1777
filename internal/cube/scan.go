package cube

import (
	"context"

	"github.com/ObservedObserver/fast-pivot/internal/cuboid"
	"github.com/ObservedObserver/fast-pivot/internal/pivot"
)

// Scan returns a ComputeFunc that builds cuboids from the in-memory dataset
// ds. Requested measure ids resolve against measures; an id with no
// declaration is summed.
func Scan(ds pivot.DataSource, measures []pivot.Measure) ComputeFunc {
	byID := make(map[string]pivot.Measure, len(measures))
	for _, m := range measures {
		byID[m.ID] = m
	}
	return func(ctx context.Context, key []string, ids []string) (*cuboid.Cuboid, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return cuboid.NewRaw(key, ds), nil
		}
		ms := make([]pivot.Measure, len(ids))
		for i, id := range ids {
			m, ok := byID[id]
			if !ok {
				m = pivot.Measure{ID: id}
			}
			ms[i] = m
		}
		return cuboid.Aggregate(key, ds, ms)
	}
}
