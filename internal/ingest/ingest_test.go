package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ObservedObserver/fast-pivot/internal/pivot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `
{
  "items": [
    {"region": "east", "year": 2020, "sales": 10.5, "geo": {"city": "Oslo", "zip": "0150"}},
    {"region": "west", "year": 2021, "sales": 20, "tags": ["a", "b"]}
  ],
  "meta": {"version": "1.0"}
}
`

func TestParseJSON_Selector(t *testing.T) {
	t.Run("select list of objects", func(t *testing.T) {
		ds, err := ParseJSON([]byte(doc), "$.items[*]")
		require.NoError(t, err)
		require.Len(t, ds, 2)

		assert.Equal(t, pivot.Record{
			"region": "east", "year": int64(2020), "sales": 10.5,
			"geo.city": "Oslo", "geo.zip": "0150",
		}, ds[0])
		assert.Equal(t, []any{"a", "b"}, ds[1]["tags"])
	})

	t.Run("matched array is spread", func(t *testing.T) {
		ds, err := ParseJSON([]byte(doc), "$.items")
		require.NoError(t, err)
		assert.Len(t, ds, 2)
	})

	t.Run("select single object", func(t *testing.T) {
		ds, err := ParseJSON([]byte(doc), "$.meta")
		require.NoError(t, err)
		assert.Equal(t, pivot.DataSource{{"version": "1.0"}}, ds)
	})

	t.Run("select primitive", func(t *testing.T) {
		ds, err := ParseJSON([]byte(doc), "$.meta.version")
		require.NoError(t, err)
		assert.Equal(t, pivot.DataSource{{"value": "1.0"}}, ds)
	})

	t.Run("invalid selector", func(t *testing.T) {
		_, err := ParseJSON([]byte(doc), "$[")
		assert.Error(t, err)
	})
}

func TestParseJSON_DefaultSelector(t *testing.T) {
	ds, err := ParseJSON([]byte(`[{"a": 1}, {"a": 2}]`), "")
	require.NoError(t, err)
	assert.Equal(t, pivot.DataSource{{"a": int64(1)}, {"a": int64(2)}}, ds)

	ds, err = ParseJSON([]byte(`{"a": {"b": 1}}`), "")
	require.NoError(t, err)
	assert.Equal(t, pivot.DataSource{{"a.b": int64(1)}}, ds)

	_, err = ParseJSON([]byte(`{"a": `), "")
	assert.Error(t, err)
}

func TestFlatten(t *testing.T) {
	assert.Equal(t, pivot.Record{"a.b.c": 1, "a.d": nil, "e": "x"}, Flatten(map[string]any{
		"a": map[string]any{"b": map[string]any{"c": 1}, "d": map[string]any{}},
		"e": "x",
	}))
	assert.Equal(t, pivot.Record{"value": 3}, Flatten(3))
}

func TestFieldPaths(t *testing.T) {
	ds := pivot.DataSource{{"b": 1, "a": 2}, {"c": 3, "a": 4}}
	assert.Equal(t, []string{"a", "b", "c"}, FieldPaths(ds))
}

func TestParseCSV(t *testing.T) {
	in := "region, year,sales,zip,note\n" +
		"east,2020,10.5,0150,NaN\n" +
		"west,2021,-3,,plain\n" +
		"north,2022\n"
	ds, err := ParseCSV(strings.NewReader(in), ',')
	require.NoError(t, err)
	require.Len(t, ds, 3)

	assert.Equal(t, pivot.Record{
		"region": "east", "year": int64(2020), "sales": 10.5, "zip": "0150", "note": "NaN",
	}, ds[0])
	assert.Equal(t, int64(-3), ds[1]["sales"])
	assert.Nil(t, ds[1]["zip"])
	assert.Nil(t, ds[2]["sales"])
	assert.Contains(t, ds[2], "note")
}

func TestParseCSV_Empty(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""), ',')
	assert.ErrorIs(t, err, ErrNoHeader)

	ds, err := ParseCSV(strings.NewReader("a,b\n"), ',')
	require.NoError(t, err)
	assert.Empty(t, ds)
}

func TestLoad_ByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "sales.json")
	csvPath := filepath.Join(dir, "sales.csv")
	tsvPath := filepath.Join(dir, "sales.tsv")
	require.NoError(t, os.WriteFile(jsonPath, []byte(doc), 0o644))
	require.NoError(t, os.WriteFile(csvPath, []byte("a,b\n1,x\n"), 0o644))
	require.NoError(t, os.WriteFile(tsvPath, []byte("a\tb\n1\tx\n"), 0o644))

	ds, err := Load(jsonPath, Options{Selector: "$.items[*]"})
	require.NoError(t, err)
	assert.Len(t, ds, 2)

	for _, p := range []string{csvPath, tsvPath} {
		ds, err = Load(p, Options{})
		require.NoError(t, err)
		assert.Equal(t, pivot.DataSource{{"a": int64(1), "b": "x"}}, ds)
	}

	_, err = Load(csvPath, Options{Format: "xml"})
	assert.Error(t, err)
	_, err = Load(filepath.Join(dir, "missing.json"), Options{})
	assert.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, DetectFormat("x.CSV"))
	assert.Equal(t, FormatTSV, DetectFormat("x.tsv"))
	assert.Equal(t, FormatJSON, DetectFormat("x.json"))
	assert.Equal(t, FormatJSON, DetectFormat("x"))
}
