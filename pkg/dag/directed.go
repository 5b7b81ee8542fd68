package dag

import (
	"slices"

	errs "github.com/matzehuels/causalhub/pkg/errors"
)

// digraph holds the read-side of every directed variant. Mutation lives on
// the concrete types so that each variant enforces its own invariant.
type digraph struct {
	matrix
}

// Parents returns the vertices with an edge into x, in ascending order.
func (g *digraph) Parents(x int) []int {
	var out []int
	for p := 0; p < g.n; p++ {
		if g.has(p, x) {
			out = append(out, p)
		}
	}
	return out
}

// Children returns the vertices x has an edge to, in ascending order.
func (g *digraph) Children(x int) []int {
	var out []int
	row := g.adj[x*g.n : (x+1)*g.n]
	for c, ok := range row {
		if ok {
			out = append(out, c)
		}
	}
	return out
}

// Neighbors returns the parents and children of x in ascending order. In a
// directed graph with both x→y and y→x, y appears once.
func (g *digraph) Neighbors(x int) []int {
	var out []int
	for v := 0; v < g.n; v++ {
		if g.has(v, x) || g.has(x, v) {
			out = append(out, v)
		}
	}
	return out
}

// InDegree returns the number of parents of x.
func (g *digraph) InDegree(x int) int {
	d := 0
	for p := 0; p < g.n; p++ {
		if g.has(p, x) {
			d++
		}
	}
	return d
}

// OutDegree returns the number of children of x.
func (g *digraph) OutDegree(x int) int {
	d := 0
	for _, ok := range g.adj[x*g.n : (x+1)*g.n] {
		if ok {
			d++
		}
	}
	return d
}

// Edges returns every edge in row-major order.
func (g *digraph) Edges() []Edge {
	out := make([]Edge, 0, g.size)
	for x := 0; x < g.n; x++ {
		for y := 0; y < g.n; y++ {
			if g.has(x, y) {
				out = append(out, Edge{From: x, To: y})
			}
		}
	}
	return out
}

// Ancestors returns every vertex with a directed path to x, excluding x
// itself unless x lies on a cycle.
func (g *digraph) Ancestors(x int) []int {
	return g.reach([]int{x}, g.Parents, false)
}

// Descendants returns every vertex reachable from x by a directed path,
// excluding x itself unless x lies on a cycle.
func (g *digraph) Descendants(x int) []int {
	return g.reach([]int{x}, g.Children, false)
}

// AncestralSet returns vs together with all of their ancestors, in
// ascending order.
func (g *digraph) AncestralSet(vs []int) []int {
	return g.reach(vs, g.Parents, true)
}

func (g *digraph) reach(start []int, next func(int) []int, inclusive bool) []int {
	seen := make([]bool, g.n)
	stack := make([]int, 0, g.n)
	for _, v := range start {
		if inclusive && !seen[v] {
			seen[v] = true
		}
		stack = append(stack, next(v)...)
	}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[v] {
			continue
		}
		seen[v] = true
		stack = append(stack, next(v)...)
	}
	var out []int
	for v, ok := range seen {
		if ok {
			out = append(out, v)
		}
	}
	return out
}

// HasPath reports whether a directed path of length at least one leads
// from x to y.
func (g *digraph) HasPath(x, y int) bool {
	if !g.HasVertex(x) || !g.HasVertex(y) {
		return false
	}
	return g.reachesWithin(x, y, nil)
}

// reachesWithin runs a DFS from `from` looking for `to`. Intermediate
// vertices must satisfy admit; a nil admit visits everything.
func (g *digraph) reachesWithin(from, to int, admit func(v int) bool) bool {
	seen := make([]bool, g.n)
	stack := []int{from}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		row := g.adj[v*g.n : (v+1)*g.n]
		for c, ok := range row {
			if !ok || seen[c] {
				continue
			}
			if c == to {
				return true
			}
			if admit != nil && !admit(c) {
				continue
			}
			seen[c] = true
			stack = append(stack, c)
		}
	}
	return false
}

// IsAcyclic reports whether the graph contains no directed cycle.
//
// Cycle detection runs in O(N²) time on the dense matrix using depth-first
// search with white/gray/black coloring.
func (g *digraph) IsAcyclic() bool {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, g.n)
	var hasCycle bool

	var dfs func(v int)
	dfs = func(v int) {
		color[v] = gray
		for _, child := range g.Children(v) {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				hasCycle = true
			}
			if hasCycle {
				return
			}
		}
		color[v] = black
	}

	for v := 0; v < g.n; v++ {
		if color[v] == white {
			dfs(v)
			if hasCycle {
				return false
			}
		}
	}
	return true
}

// TopologicalOrder returns the vertices so that every edge points forward.
// Among the vertices available at each step the smallest index is taken
// first, so the result is deterministic. Returns ErrGraphHasCycle when no
// such order exists.
func (g *digraph) TopologicalOrder() ([]int, error) {
	indeg := make([]int, g.n)
	for v := 0; v < g.n; v++ {
		indeg[v] = g.InDegree(v)
	}
	var ready []int
	for v := 0; v < g.n; v++ {
		if indeg[v] == 0 {
			ready = append(ready, v)
		}
	}
	order := make([]int, 0, g.n)
	for len(ready) > 0 {
		v := ready[0]
		ready = ready[1:]
		order = append(order, v)
		for _, c := range g.Children(v) {
			indeg[c]--
			if indeg[c] == 0 {
				i, _ := slices.BinarySearch(ready, c)
				ready = slices.Insert(ready, i, c)
			}
		}
	}
	if len(order) != g.n {
		return nil, errs.Wrap(errs.ErrCodeCycle, ErrGraphHasCycle, "no topological order")
	}
	return order, nil
}

// Skeleton returns the undirected graph obtained by dropping edge
// directions.
func (g *digraph) Skeleton() *Undirected {
	u := &Undirected{matrix: matrix{
		labels: g.labels,
		index:  g.index,
		adj:    make([]bool, len(g.adj)),
		n:      g.n,
	}}
	for x := 0; x < g.n; x++ {
		for y := 0; y < g.n; y++ {
			if g.has(x, y) && !u.has(x, y) {
				u.link(x, y, true)
			}
		}
	}
	return u
}

// Directed is a directed graph with no acyclicity guarantee. It is the
// scratch type for imported or hand-built graphs; use [Directed.Validate]
// and [FromDirected] to promote it to a [DAG].
//
// The zero value is not usable - use [NewDirected].
type Directed struct {
	digraph
}

// NewDirected creates an edgeless directed graph over the sorted labels.
func NewDirected(labels []string) (*Directed, error) {
	m, err := newMatrix(labels)
	if err != nil {
		return nil, err
	}
	return &Directed{digraph{m}}, nil
}

// AddEdge adds x→y. Cycles are permitted.
func (g *Directed) AddEdge(x, y int) error {
	if err := g.check(x, y); err != nil {
		return err
	}
	if g.has(x, y) {
		return errs.Wrap(errs.ErrCodeInvalidInput, ErrDuplicateEdge, "%s -> %s", g.labels[x], g.labels[y])
	}
	g.set(x, y, true)
	return nil
}

// RemoveEdge removes x→y.
func (g *Directed) RemoveEdge(x, y int) error {
	if err := g.check(x, y); err != nil {
		return err
	}
	if !g.has(x, y) {
		return errs.Wrap(errs.ErrCodeInvalidInput, ErrMissingEdge, "%s -> %s", g.labels[x], g.labels[y])
	}
	g.set(x, y, false)
	return nil
}

// Validate returns a CYCLE coded error wrapping ErrGraphHasCycle when the
// graph is not acyclic.
func (g *Directed) Validate() error {
	if !g.IsAcyclic() {
		return errs.Wrap(errs.ErrCodeCycle, ErrGraphHasCycle, "directed graph over %d vertices", g.n)
	}
	return nil
}

// Clone returns a deep copy of the graph.
func (g *Directed) Clone() *Directed {
	return &Directed{digraph{g.clone()}}
}
