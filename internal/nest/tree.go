// Package nest builds the NestTree: a hierarchical index of the unique
// dimension-value prefixes of a dataset, which drives the structure of a
// pivot axis.
//
// Trees are immutable snapshots. Every transform (Sort, Toggle, Highlight,
// ClearHighlight, ExpandAll) returns a new tree that shares the untouched
// subtrees with its input, so a snapshot held elsewhere stays valid.
package nest

import (
	"slices"

	"github.com/ObservedObserver/fast-pivot/internal/pivot"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// RootLabel is the id of every tree root.
const RootLabel = "root"

// Tree is one NestTree node. ID is the canonical key of Value (RootLabel for
// the root, whose Value is nil).
type Tree struct {
	ID          string
	Value       any
	Children    []*Tree
	Expanded    bool
	Highlighted bool
}

// HasChildren reports whether the index found values below this node.
func (t *Tree) HasChildren() bool {
	return len(t.Children) > 0
}

// Leaves counts the childless nodes of the tree.
func (t *Tree) Leaves() int {
	if !t.HasChildren() {
		return 1
	}
	n := 0
	for _, c := range t.Children {
		n += c.Leaves()
	}
	return n
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	d := 0
	for _, c := range t.Children {
		d = max(d, c.Depth()+1)
	}
	return d
}

// shallow copies the node; the children slice is copied so the copy can
// replace entries without touching the original.
func (t *Tree) shallow() *Tree {
	n := *t
	if t.Children != nil {
		n.Children = slices.Clone(t.Children)
	}
	return &n
}

type trieNode struct {
	value    any
	children *orderedmap.OrderedMap[string, *trieNode]
}

func newTrieNode(v any) *trieNode {
	return &trieNode{value: v, children: orderedmap.New[string, *trieNode]()}
}

// Build indexes every record's dims-value tuple in a single pass. Children
// appear in first-seen order; use Sort for a presentation order. An empty
// dataset or an empty dims list yields a childless root.
func Build(ds pivot.DataSource, dims []string) *Tree {
	root := newTrieNode(nil)
	for _, rec := range ds {
		node := root
		for _, dim := range dims {
			v := rec[dim]
			k := pivot.Key(v)
			child, ok := node.children.Get(k)
			if !ok {
				child = newTrieNode(v)
				node.children.Set(k, child)
			}
			node = child
		}
	}
	return root.toTree(RootLabel)
}

func (n *trieNode) toTree(id string) *Tree {
	t := &Tree{ID: id, Value: n.value}
	if n.children.Len() == 0 {
		return t
	}
	t.Children = make([]*Tree, 0, n.children.Len())
	for pair := n.children.Oldest(); pair != nil; pair = pair.Next() {
		t.Children = append(t.Children, pair.Value.toTree(pair.Key))
	}
	return t
}
