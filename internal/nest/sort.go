package nest

import (
	"slices"
	"strings"

	"github.com/ObservedObserver/fast-pivot/internal/pivot"
)

// Sort returns a copy of t whose level-d children are ordered by
// fields[d].Cmp, or lexicographically by id when the field has no
// comparator or the level lies beyond fields. The sort is stable.
func Sort(t *Tree, fields []pivot.Field) *Tree {
	return sortLevel(t, fields, 0)
}

func sortLevel(t *Tree, fields []pivot.Field, depth int) *Tree {
	if !t.HasChildren() {
		return t
	}
	n := t.shallow()
	slices.SortStableFunc(n.Children, levelCompare(fields, depth))
	for i, c := range n.Children {
		n.Children[i] = sortLevel(c, fields, depth+1)
	}
	return n
}

func levelCompare(fields []pivot.Field, depth int) func(a, b *Tree) int {
	if depth < len(fields) && fields[depth].Cmp != nil {
		cmp := fields[depth].Cmp
		return func(a, b *Tree) int { return cmp(a.Value, b.Value) }
	}
	return func(a, b *Tree) int { return strings.Compare(a.ID, b.ID) }
}
