package nest

import (
	"errors"
	"fmt"

	"github.com/ObservedObserver/fast-pivot/internal/pivot"
)

// ErrBadIndexPath is returned when a child-index path leaves the tree.
var ErrBadIndexPath = errors.New("index path out of range")

// Toggle flips the expanded flag of the node reached by following child
// indexes from the root. Only the nodes on that path are copied.
func Toggle(t *Tree, indexPath []int) (*Tree, error) {
	return update(t, indexPath, 0, func(n *Tree) { n.Expanded = !n.Expanded })
}

// SetExpanded sets the expanded flag of the node at indexPath.
func SetExpanded(t *Tree, indexPath []int, expanded bool) (*Tree, error) {
	return update(t, indexPath, 0, func(n *Tree) { n.Expanded = expanded })
}

func update(t *Tree, indexPath []int, depth int, fn func(*Tree)) (*Tree, error) {
	if depth == len(indexPath) {
		n := *t
		fn(&n)
		return &n, nil
	}
	i := indexPath[depth]
	if i < 0 || i >= len(t.Children) {
		return nil, fmt.Errorf("%w: %v at depth %d", ErrBadIndexPath, indexPath, depth)
	}
	child, err := update(t.Children[i], indexPath, depth+1, fn)
	if err != nil {
		return nil, err
	}
	n := t.shallow()
	n.Children[i] = child
	return n, nil
}

// IndexPath converts a value path to the child-index path of the matching
// node, comparing by canonical key.
func IndexPath(t *Tree, valuePath []any) ([]int, bool) {
	idx := make([]int, 0, len(valuePath))
	node := t
	for _, v := range valuePath {
		want := pivot.Key(v)
		found := -1
		for i, c := range node.Children {
			if c.ID == want {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, false
		}
		idx = append(idx, found)
		node = node.Children[found]
	}
	return idx, true
}

// ExpandAll returns a copy of t with every parent node expanded.
func ExpandAll(t *Tree) *Tree {
	return expandTo(t, -1)
}

// ExpandToDepth expands the parents above the given depth; the root is
// depth 0, so ExpandToDepth(t, 1) opens the first level only. A negative
// depth counts as 0 and leaves t unchanged; use ExpandAll to open every
// level.
func ExpandToDepth(t *Tree, depth int) *Tree {
	return expandTo(t, max(depth, 0))
}

func expandTo(t *Tree, depth int) *Tree {
	if !t.HasChildren() || depth == 0 {
		return t
	}
	n := t.shallow()
	n.Expanded = true
	for i, c := range n.Children {
		n.Children[i] = expandTo(c, depth-1)
	}
	return n
}
