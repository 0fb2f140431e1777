package pivot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey_NumericAndStringAgree(t *testing.T) {
	assert.Equal(t, "3", Key(3))
	assert.Equal(t, "3", Key(3.0))
	assert.Equal(t, "3", Key(int64(3)))
	assert.Equal(t, "3", Key("3"))
	assert.Equal(t, "2.5", Key(2.5))
	assert.Equal(t, "", Key(nil))
	assert.True(t, Equal(2020, "2020"))
	assert.False(t, Equal("a", "b"))
}

func TestPathEqual(t *testing.T) {
	assert.True(t, PathEqual([]any{"a", 1}, []any{"a", "1"}))
	assert.False(t, PathEqual([]any{"a"}, []any{"a", 1}))
	assert.False(t, PathEqual([]any{"a", 2}, []any{"a", 1}))
	assert.True(t, PathEqual(nil, []any{}))
}

func TestNumber(t *testing.T) {
	f, ok := Number("4.5")
	assert.True(t, ok)
	assert.Equal(t, 4.5, f)

	_, ok = Number("abc")
	assert.False(t, ok)
	_, ok = Number(nil)
	assert.False(t, ok)
	_, ok = Number(true)
	assert.False(t, ok)
}

func TestQueryPath(t *testing.T) {
	p := Bind([]Field{{ID: "a"}, {ID: "b"}}, []any{"x", Wildcard, "extra"})
	assert.Equal(t, []string{"a", "b"}, p.Dims())
	assert.False(t, p[0].IsWildcard())
	assert.True(t, p[1].IsWildcard())

	s, ok := p.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, "x", s.Value)
	_, ok = p.Lookup("z")
	assert.False(t, ok)
}

func TestVisType_IsList(t *testing.T) {
	assert.False(t, VisNumber.IsList())
	assert.True(t, VisBar.IsList())
	assert.True(t, VisLine.IsList())
	assert.True(t, VisScatter.IsList())
	assert.False(t, VisType("pie").IsList())
}
