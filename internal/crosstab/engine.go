// Package crosstab assembles pivot views on top of the cuboid cache: axis
// trees built from raw cuboids, and row × column matrices of aggregated
// cells fetched from aggregated cuboids.
package crosstab

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/ObservedObserver/fast-pivot/internal/cube"
	"github.com/ObservedObserver/fast-pivot/internal/cuboid"
	"github.com/ObservedObserver/fast-pivot/internal/pivot"
)

// Engine is safe for concurrent use; all state lives in the shared cache.
type Engine struct {
	cache       *cube.Cache
	cmp         func(a, b string) int
	capacity    int
	concurrency int
}

// Option configures an Engine.
type Option func(*Engine)

// WithDimensionOrder sets the order dimension ids take inside a cuboid key.
// The default is lexicographic.
func WithDimensionOrder(cmp func(a, b string) int) Option {
	return func(e *Engine) {
		if cmp != nil {
			e.cmp = cmp
		}
	}
}

// WithCacheCapacity bounds the number of cached cuboids.
func WithCacheCapacity(n int) Option {
	return func(e *Engine) { e.capacity = n }
}

// WithConcurrency bounds the number of matrix cells fetched at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// New creates an engine whose cuboids come from compute.
func New(compute cube.ComputeFunc, opts ...Option) (*Engine, error) {
	e := &Engine{
		cmp:         strings.Compare,
		capacity:    cube.DefaultCapacity,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	c, err := cube.New(compute, cube.WithCapacity(e.capacity))
	if err != nil {
		return nil, fmt.Errorf("create cube cache: %w", err)
	}
	e.cache = c
	return e, nil
}

// Cache exposes the engine's cuboid cache.
func (e *Engine) Cache() *cube.Cache { return e.cache }

// order returns ids sorted by the dimension order.
func (e *Engine) order(ids []string) []string {
	out := slices.Clone(ids)
	slices.SortStableFunc(out, e.cmp)
	return out
}

// CacheQuery answers path with the cuboid keyed by exactly the path's
// dimensions, carrying measures.
func (e *Engine) CacheQuery(ctx context.Context, path pivot.QueryPath, measures []string) (pivot.DataSource, error) {
	sorted := slices.Clone(path)
	slices.SortStableFunc(sorted, func(a, b pivot.PathStep) int { return e.cmp(a.Dim, b.Dim) })
	cb, err := e.cache.Get(ctx, sorted.Dims(), measures)
	if err != nil {
		return nil, err
	}
	return cuboid.Query(cb, sorted, nil), nil
}
