package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ObservedObserver/fast-pivot/internal/crosstab"
	"github.com/ObservedObserver/fast-pivot/internal/cube"
	"github.com/ObservedObserver/fast-pivot/internal/cuboid"
	"github.com/ObservedObserver/fast-pivot/internal/pivot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sales() pivot.DataSource {
	return pivot.DataSource{
		{"region": "east", "year": 2020, "product": "a", "sales": 10},
		{"region": "east", "year": 2021, "product": "b", "sales": 20},
		{"region": "west", "year": 2020, "product": "a", "sales": 30.5},
		{"region": "west", "year": 2022, "product": "b", "sales": 40},
		{"region": "east", "year": 2020, "product": "b", "sales": 5},
	}
}

func openLoaded(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "pivot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Load(context.Background(), sales()))
	return s
}

func TestLoadRecords(t *testing.T) {
	s := openLoaded(t)
	ctx := context.Background()

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	ds, err := s.Records(ctx)
	require.NoError(t, err)
	require.Len(t, ds, 5)
	assert.Equal(t, "east", ds[0]["region"])
	assert.Equal(t, "2020", pivot.Key(ds[0]["year"]))
	assert.Equal(t, 30.5, ds[2]["sales"])
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Load(context.Background(), sales()[:2]))
	n, err := s.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCompute_Raw(t *testing.T) {
	s := openLoaded(t)
	cb, err := s.Compute(nil)(context.Background(), []string{"region"}, nil)
	require.NoError(t, err)

	assert.False(t, cb.Aggregated())
	got := cuboid.Query(cb, pivot.QueryPath{{Dim: "region", Value: "east"}}, nil)
	assert.Len(t, got, 3)
}

func TestCompute_GroupBy(t *testing.T) {
	s := openLoaded(t)
	compute := s.Compute([]pivot.Measure{
		{ID: "sales"},
		{ID: "n", Aggregator: pivot.Count},
		{ID: "avg", Aggregator: pivot.Mean},
	})

	cb, err := compute(context.Background(), []string{"region", "year"}, []string{"sales"})
	require.NoError(t, err)
	require.True(t, cb.Aggregated())
	require.Equal(t, 4, cb.Len())

	recs := cb.Records()
	// First-seen group order.
	assert.Equal(t, "east", recs[0]["region"])
	assert.Equal(t, "2020", pivot.Key(recs[0]["year"]))
	assert.Equal(t, 15.0, recs[0]["sales"])
	assert.Equal(t, "2021", pivot.Key(recs[1]["year"]))
	assert.Equal(t, "west", recs[2]["region"])
	assert.Equal(t, 30.5, recs[2]["sales"])

	got := cuboid.Query(cb, pivot.QueryPath{{Dim: "region", Value: "west"}, {Dim: "year", Value: 2022}}, nil)
	require.Len(t, got, 1)
	assert.Equal(t, 40.0, got[0]["sales"])
}

func TestCompute_Aggregators(t *testing.T) {
	s := openLoaded(t)
	compute := s.Compute([]pivot.Measure{
		{ID: "sales", Aggregator: pivot.Mean},
		{ID: "product", Aggregator: pivot.Count},
	})

	cb, err := compute(context.Background(), []string{"region"}, []string{"sales", "product"})
	require.NoError(t, err)

	east := cuboid.Query(cb, pivot.QueryPath{{Dim: "region", Value: "east"}}, nil)
	require.Len(t, east, 1)
	assert.InDelta(t, 35.0/3, east[0]["sales"], 1e-9)
	assert.Equal(t, 3.0, east[0]["product"])
}

func TestCompute_GrandTotal(t *testing.T) {
	s := openLoaded(t)
	cb, err := s.Compute(nil)(context.Background(), nil, []string{"sales"})
	require.NoError(t, err)
	assert.Equal(t, pivot.DataSource{{"sales": 105.5}}, cb.Records())
}

func TestCompute_EmptyTable(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	cb, err := s.Compute(nil)(context.Background(), nil, []string{"sales"})
	require.NoError(t, err)
	assert.Equal(t, 0, cb.Len())
	assert.Empty(t, cb.Resolve(nil))
}

func TestCompute_MeanOfNothingIsNil(t *testing.T) {
	s := openLoaded(t)
	cb, err := s.Compute([]pivot.Measure{{ID: "missing", Aggregator: pivot.Mean}})(
		context.Background(), []string{"region"}, []string{"missing"})
	require.NoError(t, err)
	for _, rec := range cb.Records() {
		assert.Nil(t, rec["missing"])
	}
}

func TestCompute_CustomAggregatorUnsupported(t *testing.T) {
	s := openLoaded(t)
	custom := pivot.Custom{Label: "median", Fn: func(pivot.DataSource, []string) (pivot.Record, error) {
		return pivot.Record{}, nil
	}}
	_, err := s.Compute([]pivot.Measure{{ID: "sales", Aggregator: custom}})(
		context.Background(), []string{"region"}, []string{"sales"})
	assert.ErrorIs(t, err, ErrUnsupportedAggregator)
}

func TestBuildQuery(t *testing.T) {
	q, args, err := buildQuery([]string{"region"}, []pivot.Measure{{ID: "sales"}, {ID: "n", Aggregator: pivot.Count}})
	require.NoError(t, err)

	assert.Equal(t,
		"WITH x AS (SELECT id, json_type(record, ?) AS t0, json_extract(record, ?) AS v0, json_extract(record, ?) AS m0 FROM records)"+
			" SELECT g.*, r.record FROM (SELECT MIN(id) AS first, COUNT(*) AS n, TOTAL(m0) AS a0, COUNT(*) AS a1"+
			" FROM x GROUP BY "+keyExpr(0)+") AS g LEFT JOIN records AS r ON r.id = g.first ORDER BY g.first", q)
	assert.Equal(t, []any{`$."region"`, `$."region"`, `$."sales"`}, args)
}

func TestBuildQuery_NoDims(t *testing.T) {
	q, args, err := buildQuery(nil, []pivot.Measure{{ID: "sales", Aggregator: pivot.Mean}})
	require.NoError(t, err)
	assert.NotContains(t, q, "GROUP BY")
	assert.Contains(t, q, "AVG(m0) AS a0")
	assert.Equal(t, []any{`$."sales"`}, args)
}

func TestJSONPath_Quotes(t *testing.T) {
	assert.Equal(t, `$."a\"b"`, jsonPath(`a"b`))
}

func TestCompute_MatchesLocalScan(t *testing.T) {
	s := openLoaded(t)
	measures := []pivot.Measure{{ID: "sales"}}
	rows := []pivot.Field{{ID: "region"}}
	cols := []pivot.Field{{ID: "year"}}
	rowPaths := [][]any{{"east"}, {"west"}}
	colPaths := [][]any{{2020}, {2021}, {2022}}

	sqlEngine, err := crosstab.New(s.Compute(measures))
	require.NoError(t, err)
	scanEngine, err := crosstab.New(cube.Scan(sales(), measures))
	require.NoError(t, err)

	ctx := context.Background()
	fromSQL, err := sqlEngine.RequestCrossMatrix(ctx, pivot.VisNumber, rowPaths, colPaths, rows, cols, measures, nil)
	require.NoError(t, err)
	fromScan, err := scanEngine.RequestCrossMatrix(ctx, pivot.VisNumber, rowPaths, colPaths, rows, cols, measures, nil)
	require.NoError(t, err)

	for i := range rowPaths {
		for j := range colPaths {
			a, b := fromSQL.Record(i, j), fromScan.Record(i, j)
			if b == nil {
				assert.Nil(t, a, "cell (%d, %d)", i, j)
				continue
			}
			require.NotNil(t, a, "cell (%d, %d)", i, j)
			assert.Equal(t, b["sales"], a["sales"], "cell (%d, %d)", i, j)
		}
	}
}

func TestCompute_KeysMatchCanonicalKey(t *testing.T) {
	ds := pivot.DataSource{
		{"ok": true, "tag": "x", "sales": 1},
		{"ok": false, "sales": 2},
		{"ok": true, "tag": "", "sales": 3},
		{"ok": true, "tag": nil, "sales": 4},
		{"ok": false, "tag": 2.0, "sales": 5},
		{"ok": false, "tag": 2, "sales": 6},
	}
	s, err := Open(filepath.Join(t.TempDir(), "keys.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	require.NoError(t, s.Load(context.Background(), ds))

	measures := []pivot.Measure{{ID: "sales"}}
	view := crosstab.View{
		Vis:       pivot.VisNumber,
		Rows:      []pivot.Field{{ID: "ok"}},
		Columns:   []pivot.Field{{ID: "tag"}},
		Measures:  measures,
		ExpandAll: true,
	}

	sqlEngine, err := crosstab.New(s.Compute(measures))
	require.NoError(t, err)
	scanEngine, err := crosstab.New(cube.Scan(ds, measures))
	require.NoError(t, err)

	ctx := context.Background()
	fromSQL, err := sqlEngine.Pivot(ctx, view)
	require.NoError(t, err)
	fromScan, err := scanEngine.Pivot(ctx, view)
	require.NoError(t, err)

	// Rows: false, true. Columns: "" (missing, "" and null), "2", "x".
	require.Len(t, fromSQL.RowPaths, 2)
	require.Len(t, fromSQL.ColumnPaths, 3)
	sales := func(r *crosstab.Result, i, j int) any {
		rec := r.Matrix.Record(i, j)
		if rec == nil {
			return nil
		}
		return rec["sales"]
	}
	want := [][]any{
		{2.0, 11.0, nil},
		{7.0, nil, 1.0},
	}
	for i := range want {
		for j := range want[i] {
			assert.Equal(t, want[i][j], sales(fromScan, i, j), "scan cell (%d, %d)", i, j)
			assert.Equal(t, want[i][j], sales(fromSQL, i, j), "sql cell (%d, %d)", i, j)
		}
	}
}

func TestCompute_ReportsFirstRecordValues(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "first.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	require.NoError(t, s.Load(context.Background(), pivot.DataSource{
		{"ok": true, "sales": 1},
		{"ok": true, "sales": 2},
	}))

	cb, err := s.Compute(nil)(context.Background(), []string{"ok", "tag"}, []string{"sales"})
	require.NoError(t, err)
	assert.Equal(t, pivot.DataSource{{"ok": true, "tag": nil, "sales": 3.0}}, cb.Records())
}
