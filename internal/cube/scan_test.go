package cube

import (
	"context"
	"testing"

	"github.com/ObservedObserver/fast-pivot/internal/cuboid"
	"github.com/ObservedObserver/fast-pivot/internal/pivot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan_RawWithoutMeasures(t *testing.T) {
	compute := Scan(sales(), nil)
	cb, err := compute(context.Background(), []string{"region"}, nil)
	require.NoError(t, err)

	assert.False(t, cb.Aggregated())
	assert.Equal(t, 4, cb.Len())
}

func TestScan_AggregatesDeclaredMeasures(t *testing.T) {
	compute := Scan(sales(), []pivot.Measure{{ID: "sales", Aggregator: pivot.Mean}})
	cb, err := compute(context.Background(), []string{"region"}, []string{"sales"})
	require.NoError(t, err)

	require.True(t, cb.Aggregated())
	got := cuboid.Query(cb, pivot.QueryPath{{Dim: "region", Value: "west"}}, nil)
	assert.Equal(t, pivot.DataSource{{"region": "west", "sales": 30.0}}, got)
}

func TestScan_UndeclaredMeasureIsSummed(t *testing.T) {
	compute := Scan(sales(), nil)
	cb, err := compute(context.Background(), nil, []string{"sales"})
	require.NoError(t, err)
	assert.Equal(t, pivot.DataSource{{"sales": 100.0}}, cb.Records())
}

func TestScan_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Scan(sales(), nil)(ctx, []string{"region"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScan_ThroughCache(t *testing.T) {
	c, err := New(Scan(sales(), []pivot.Measure{{ID: "sales"}}))
	require.NoError(t, err)

	cb, err := c.Get(context.Background(), []string{"year", "region"}, []string{"sales"})
	require.NoError(t, err)
	assert.Equal(t, []string{"year", "region"}, cb.Dims())
	assert.Equal(t, 4, cb.Len())
}
