package nest

import (
	"slices"

	"github.com/ObservedObserver/fast-pivot/internal/pivot"
)

// Highlight returns a tree in which exactly the nodes on the path
// root→target are highlighted. Previous marks are always cleared first.
// Values match node ids by canonical key, so a numeric 2020 finds the
// member indexed from "2020". The root is marked even for an empty path;
// marking stops at the first value with no matching child.
func Highlight(t *Tree, valuePath []any) *Tree {
	return mark(ClearHighlight(t), valuePath, 0)
}

func mark(t *Tree, valuePath []any, depth int) *Tree {
	n := *t
	n.Highlighted = true
	if depth >= len(valuePath) || !t.HasChildren() {
		return &n
	}
	want := pivot.Key(valuePath[depth])
	for i, c := range t.Children {
		if c.ID != want {
			continue
		}
		n.Children = slices.Clone(t.Children)
		n.Children[i] = mark(c, valuePath, depth+1)
		break
	}
	return &n
}

// ClearHighlight returns a tree with every highlight flag reset. Subtrees
// without marks are shared with t.
func ClearHighlight(t *Tree) *Tree {
	out, _ := clearMarks(t)
	return out
}

func clearMarks(t *Tree) (*Tree, bool) {
	changed := t.Highlighted
	var children []*Tree
	for i, c := range t.Children {
		nc, ok := clearMarks(c)
		if !ok {
			continue
		}
		if children == nil {
			children = slices.Clone(t.Children)
		}
		children[i] = nc
		changed = true
	}
	if !changed {
		return t, false
	}
	n := *t
	n.Highlighted = false
	if children != nil {
		n.Children = children
	}
	return &n, true
}

// HighlightedPath returns the values of the highlighted chain below the
// root, in depth order.
func HighlightedPath(t *Tree) []any {
	var path []any
	node := t
	for node.Highlighted {
		next := (*Tree)(nil)
		for _, c := range node.Children {
			if c.Highlighted {
				next = c
				break
			}
		}
		if next == nil {
			break
		}
		path = append(path, next.Value)
		node = next
	}
	return path
}
