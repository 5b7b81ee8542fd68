// Package separation answers graphical separation queries: d-separation in
// directed acyclic graphs, m-separation in acyclic directed mixed graphs
// and plain separation in undirected graphs.
//
// All queries take vertex index sets X, Y and Z. X and Y must be non-empty,
// the three sets must be pairwise disjoint and every index must be a vertex
// of the graph; otherwise an INVALID_INPUT coded error is returned. The
// result depends only on the graph structure: it is symmetric in X and Y
// and unaffected by how vertices are labeled.
//
// Directed queries reduce to undirected ones: restrict to the ancestral set
// of X∪Y∪Z, moralize (or augment, for mixed graphs), delete Z and test
// whether any connected component meets both X and Y.
package separation

import (
	"slices"

	"github.com/matzehuels/causalhub/pkg/dag"
	"github.com/matzehuels/causalhub/pkg/dag/components"
	errs "github.com/matzehuels/causalhub/pkg/errors"
)

// DSeparated reports whether X and Y are d-separated by Z in g.
func DSeparated(g dag.DirectedGraph, x, y, z []int) (bool, error) {
	return MSeparated(g, nil, x, y, z)
}

// MSeparated reports whether X and Y are m-separated by Z in the mixed
// graph whose directed part is g and whose bidirected edges are the edges
// of bi. A nil bi means no bidirected edges, which makes the query a
// d-separation query.
func MSeparated(g dag.DirectedGraph, bi *dag.Undirected, x, y, z []int) (bool, error) {
	if err := validate(g, x, y, z); err != nil {
		return false, err
	}
	if bi != nil && bi.Order() != g.Order() {
		return false, errs.New(errs.ErrCodeInvalidInput,
			"bidirected part has %d vertices, directed part %d", bi.Order(), g.Order())
	}
	keep := ancestral(g, concat(x, y, z))
	h := augment(g, bi, keep)
	return disjointComponents(h.Without(z), x, y), nil
}

// USeparated reports whether every path between X and Y in u passes
// through Z.
func USeparated(u *dag.Undirected, x, y, z []int) (bool, error) {
	if err := validate(u, x, y, z); err != nil {
		return false, err
	}
	return disjointComponents(u.Without(z), x, y), nil
}

// Moralize returns the moral graph of g: parents of a common child are
// married and edge directions are dropped.
func Moralize(g dag.DirectedGraph) *dag.Undirected {
	return augment(g, nil, nil)
}

// MarkovBlanket returns the parents, children and co-parents of x in
// ascending order.
func MarkovBlanket(g dag.DirectedGraph, x int) []int {
	in := make([]bool, g.Order())
	for _, p := range g.Parents(x) {
		in[p] = true
	}
	for _, c := range g.Children(x) {
		in[c] = true
		for _, p := range g.Parents(c) {
			in[p] = true
		}
	}
	in[x] = false
	var out []int
	for v, ok := range in {
		if ok {
			out = append(out, v)
		}
	}
	return out
}

func validate(g dag.Graph, x, y, z []int) error {
	if len(x) == 0 || len(y) == 0 {
		return errs.New(errs.ErrCodeInvalidInput, "X and Y must be non-empty")
	}
	seen := make(map[int]byte, len(x)+len(y)+len(z))
	for set, vs := range [][]int{x, y, z} {
		for _, v := range vs {
			if !g.HasVertex(v) {
				return errs.Wrap(errs.ErrCodeInvalidInput, dag.ErrUnknownVertex, "vertex %d", v)
			}
			if s, ok := seen[v]; ok && s != byte(set) {
				return errs.New(errs.ErrCodeInvalidInput, "X, Y and Z must be disjoint: %s appears twice", g.Label(v))
			}
			seen[v] = byte(set)
		}
	}
	return nil
}

func concat(sets ...[]int) []int {
	var out []int
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}

// ancestral marks vs and every ancestor of vs in g.
func ancestral(g dag.DirectedGraph, vs []int) []bool {
	keep := make([]bool, g.Order())
	stack := slices.Clone(vs)
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if keep[v] {
			continue
		}
		keep[v] = true
		stack = append(stack, g.Parents(v)...)
	}
	return keep
}

// augment builds the augmented graph of the mixed graph (g, bi) restricted
// to keep (nil keeps everything). Two vertices are joined when they are
// collider-connected: adjacent, or linked by a path whose inner vertices
// are all colliders. Such pairs are exactly the pairs inside D ∪ pa(D) for
// a district D, the bidirected-connected components. Without bidirected
// edges every district is a single vertex and this is moralization.
func augment(g dag.DirectedGraph, bi *dag.Undirected, keep []bool) *dag.Undirected {
	in := func(v int) bool { return keep == nil || keep[v] }
	h, _ := dag.NewUndirected(g.Labels())

	join := func(a, b int) {
		if a != b && !h.HasEdge(a, b) {
			_ = h.AddEdge(a, b)
		}
	}

	var districts [][]int
	if bi != nil {
		uf := components.New(bi.Order())
		for _, e := range bi.Edges() {
			if in(e.From) && in(e.To) {
				uf.Union(e.From, e.To)
			}
		}
		districts = uf.Groups(in)
	} else {
		for v := 0; v < g.Order(); v++ {
			if in(v) {
				districts = append(districts, []int{v})
			}
		}
	}

	for _, d := range districts {
		// Parents of an ancestral set's members are inside the set.
		members := slices.Clone(d)
		for _, v := range d {
			for _, p := range g.Parents(v) {
				if in(p) {
					members = append(members, p)
				}
			}
		}
		slices.Sort(members)
		members = slices.Compact(members)
		for i, a := range members {
			for _, b := range members[i+1:] {
				join(a, b)
			}
		}
	}
	return h
}

// disjointComponents reports whether no connected component of h meets
// both x and y.
func disjointComponents(h *dag.Undirected, x, y []int) bool {
	uf := components.FromGraph(h)
	uf.Extend(x...)
	for _, v := range y {
		if uf.Connected(x[0], v) {
			return false
		}
	}
	return true
}
