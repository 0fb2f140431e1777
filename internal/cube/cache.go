// Package cube caches cuboids by dimension set. Each cuboid is computed at
// most once per key by an injected ComputeFunc, concurrent requests for the
// same key share one computation, and finished cuboids live in a bounded LRU.
package cube

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ObservedObserver/fast-pivot/internal/cuboid"
	"github.com/ObservedObserver/fast-pivot/internal/logger"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// ErrCompute wraps every failure returned by a ComputeFunc.
var ErrCompute = errors.New("compute cuboid")

// DefaultCapacity is the number of cuboids kept when no capacity is given.
const DefaultCapacity = 128

// ComputeFunc materializes the cuboid for a canonical dimension key. With no
// measures it returns the raw cuboid; otherwise one aggregated row per
// distinct tuple carrying every listed measure.
type ComputeFunc func(ctx context.Context, key []string, measures []string) (*cuboid.Cuboid, error)

// Stats counts cache activity since creation.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Computes  uint64
	Failures  uint64
	Evictions uint64
}

// Cache is safe for concurrent use.
type Cache struct {
	compute  ComputeFunc
	capacity int
	entries  *lru.Cache[string, *cuboid.Cuboid]
	flight   singleflight.Group

	hits      atomic.Uint64
	misses    atomic.Uint64
	computes  atomic.Uint64
	failures  atomic.Uint64
	evictions atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithCapacity bounds the number of cached cuboids.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// New creates a cache backed by compute.
func New(compute ComputeFunc, opts ...Option) (*Cache, error) {
	if compute == nil {
		return nil, errors.New("cube: nil compute function")
	}
	c := &Cache{compute: compute, capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(c)
	}
	entries, err := lru.NewWithEvict(c.capacity, func(string, *cuboid.Cuboid) {
		c.evictions.Add(1)
	})
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	c.entries = entries
	return c, nil
}

// Key returns the canonical key of a dimension set and its measures: both
// sorted and de-duplicated, so any permutation addresses the same entry.
func Key(dims, measures []string) string {
	d := canonical(dims)
	m := canonical(measures)
	return strings.Join(d, "\x1f") + "\x1e" + strings.Join(m, "\x1f")
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func canonical(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// Get returns the cuboid for dims and measures, computing it on a miss. The
// first caller's dims order (duplicates removed) becomes the cuboid's level
// order; later permutations hit the same entry.
//
// Concurrent misses on one key share a single computation. The computation
// runs detached from any caller's cancellation: a caller whose ctx ends stops
// waiting and gets ctx.Err(), while the others still receive the result.
// Failures reach every current waiter and are not cached.
func (c *Cache) Get(ctx context.Context, dims, measures []string) (*cuboid.Cuboid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := Key(dims, measures)
	if cb, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		return cb, nil
	}
	c.misses.Add(1)

	detached := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (any, error) {
		// Double-check inside the flight: a previous flight may have just
		// stored the entry.
		if cb, ok := c.entries.Peek(key); ok {
			return cb, nil
		}
		return c.load(detached, key, uniq(dims), canonical(measures))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		cb, ok := res.Val.(*cuboid.Cuboid)
		if !ok {
			return nil, fmt.Errorf("unexpected type from flight %q: got %T", key, res.Val)
		}
		return cb, nil
	}
}

func (c *Cache) load(ctx context.Context, key string, dims, measures []string) (*cuboid.Cuboid, error) {
	log := logger.Get(ctx)
	c.computes.Add(1)
	start := time.Now()
	log.Debug().Strs("dims", dims).Strs("measures", measures).Msg("computing cuboid")

	cb, err := c.compute(ctx, dims, measures)
	if err == nil && cb == nil {
		err = errors.New("nil cuboid")
	}
	if err != nil {
		c.failures.Add(1)
		log.Warn().Err(err).Strs("dims", dims).Msg("cuboid computation failed")
		return nil, fmt.Errorf("%w %v: %w", ErrCompute, dims, err)
	}

	if c.entries.Add(key, cb) {
		log.Debug().Int("capacity", c.capacity).Msg("evicted least recently used cuboid")
	}
	log.Debug().
		Strs("dims", dims).
		Int("rows", cb.Len()).
		Dur("took", time.Since(start)).
		Msg("cuboid ready")
	return cb, nil
}

// Contains reports whether the cuboid for dims and measures is cached,
// without touching recency.
func (c *Cache) Contains(dims, measures []string) bool {
	return c.entries.Contains(Key(dims, measures))
}

// Len returns the number of cached cuboids.
func (c *Cache) Len() int { return c.entries.Len() }

// Purge drops every cached cuboid. Computations in flight still complete and
// store their result.
func (c *Cache) Purge() { c.entries.Purge() }

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Computes:  c.computes.Load(),
		Failures:  c.failures.Load(),
		Evictions: c.evictions.Load(),
	}
}
