package nest

// VisitPaths walks the tree depth-first, pre-order, and returns the value
// paths of the nodes that form the axis. With includeAllVisited every
// visited node contributes (one aggregate row per level); otherwise only
// nodes that are not both expanded and parents contribute, so a collapsed
// node stands in for the data below it. Children are descended only when
// the node is expanded. The root contributes the empty path.
func VisitPaths(t *Tree, includeAllVisited bool) [][]any {
	var paths [][]any
	var visit func(n *Tree, path []any)
	visit = func(n *Tree, path []any) {
		open := n.Expanded && n.HasChildren()
		if includeAllVisited || !open {
			paths = append(paths, path)
		}
		if !open {
			return
		}
		for _, c := range n.Children {
			next := make([]any, len(path)+1)
			copy(next, path)
			next[len(path)] = c.Value
			visit(c, next)
		}
	}
	visit(t, []any{})
	return paths
}
