package cmd

import (
	"context"
	"fmt"

	"github.com/ObservedObserver/fast-pivot/internal/crosstab"
	"github.com/ObservedObserver/fast-pivot/internal/cube"
	"github.com/ObservedObserver/fast-pivot/internal/logger"
	"github.com/ObservedObserver/fast-pivot/internal/pivot"
	"github.com/ObservedObserver/fast-pivot/internal/store"
	"github.com/spf13/cobra"
)

// engineOptions select and size the cuboid backend.
type engineOptions struct {
	backend     string
	dbPath      string
	cacheSize   int
	concurrency int
}

func (o *engineOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.backend, "backend", "scan", "Cuboid backend: scan (in memory) or sqlite")
	f.StringVar(&o.dbPath, "db", ":memory:", "SQLite database for the sqlite backend")
	f.IntVar(&o.cacheSize, "cache-size", cube.DefaultCapacity, "Maximum number of cached cuboids")
	f.IntVar(&o.concurrency, "concurrency", 0, "Matrix cells fetched at once (default: GOMAXPROCS)")
}

// open builds an engine over ds. The returned close func releases the
// backend.
func (o *engineOptions) open(ctx context.Context, ds pivot.DataSource, measures []pivot.Measure) (*crosstab.Engine, func() error, error) {
	closeFn := func() error { return nil }

	var compute cube.ComputeFunc
	switch o.backend {
	case "scan", "":
		compute = cube.Scan(ds, measures)
	case "sqlite":
		st, err := store.Open(o.dbPath)
		if err != nil {
			return nil, nil, err
		}
		n, err := st.Len(ctx)
		if err != nil {
			_ = st.Close()
			return nil, nil, err
		}
		if n > 0 {
			_ = st.Close()
			return nil, nil, fmt.Errorf("database %s already holds %d records", o.dbPath, n)
		}
		if err := st.Load(ctx, ds); err != nil {
			_ = st.Close()
			return nil, nil, err
		}
		compute = st.Compute(measures)
		closeFn = st.Close
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", o.backend)
	}

	e, err := crosstab.New(compute,
		crosstab.WithCacheCapacity(o.cacheSize),
		crosstab.WithConcurrency(o.concurrency),
	)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	logger.Get(ctx).Debug().Str("backend", o.backend).Int("cache_size", o.cacheSize).Msg("engine ready")
	return e, closeFn, nil
}
