package components

import "github.com/matzehuels/causalhub/pkg/dag"

// FromGraph builds a union-find over g's vertex slots in which the
// endpoints of every edge are merged. Edge direction is ignored, so for a
// directed graph the sets are its weakly connected components.
func FromGraph(g dag.Graph) *UnionFind {
	u := New(g.Order())
	for _, e := range g.Edges() {
		u.Union(e.From, e.To)
	}
	return u
}

// Connected returns the connected components of g (weakly connected for
// directed graphs). Vertex slots excluded from a sub-graph view are not
// reported.
func Connected(g dag.Graph) [][]int {
	return FromGraph(g).Groups(g.HasVertex)
}

// Disconnected reports whether x and y lie in different components of g.
// For a DAG this is a sufficient condition for x→y to be insertable
// without closing a cycle.
func Disconnected(g dag.Graph, x, y int) bool {
	return !FromGraph(g).Connected(x, y)
}
