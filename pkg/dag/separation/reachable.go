package separation

import "github.com/matzehuels/causalhub/pkg/dag"

// Reachable returns, in ascending order, every vertex connected to X by a
// trail that is active given Z (a "Bayes ball" traversal). Colliders pass
// the ball only when they are in Z or have a descendant in Z; every other
// vertex passes it only when it is not in Z. Vertices of Z are never
// reported; vertices of X are.
//
// Y is d-separated from X by Z exactly when Reachable(g, X, Z) and Y are
// disjoint, which makes this a path-based counterpart to [DSeparated].
func Reachable(g dag.DirectedGraph, x, z []int) []int {
	n := g.Order()
	inZ := make([]bool, n)
	for _, v := range z {
		inZ[v] = true
	}
	// Z and its ancestors: colliders here are open.
	openCollider := ancestral(g, z)

	const (
		up   = 0 // arrived from a child
		down = 1 // arrived from a parent
	)
	type visit struct{ v, dir int }

	visited := make([][2]bool, n)
	reached := make([]bool, n)
	stack := make([]visit, 0, len(x))
	for _, v := range x {
		stack = append(stack, visit{v, up})
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur.v][cur.dir] {
			continue
		}
		visited[cur.v][cur.dir] = true
		if !inZ[cur.v] {
			reached[cur.v] = true
		}

		switch {
		case cur.dir == up && !inZ[cur.v]:
			for _, p := range g.Parents(cur.v) {
				stack = append(stack, visit{p, up})
			}
			for _, c := range g.Children(cur.v) {
				stack = append(stack, visit{c, down})
			}
		case cur.dir == down:
			if !inZ[cur.v] {
				for _, c := range g.Children(cur.v) {
					stack = append(stack, visit{c, down})
				}
			}
			if openCollider[cur.v] {
				for _, p := range g.Parents(cur.v) {
					stack = append(stack, visit{p, up})
				}
			}
		}
	}

	var out []int
	for v, ok := range reached {
		if ok {
			out = append(out, v)
		}
	}
	return out
}
