package dag

import (
	"errors"
	"slices"

	errs "github.com/matzehuels/causalhub/pkg/errors"
)

var (
	// ErrUnknownVertex is returned when a vertex index is out of range or a
	// label is not part of the graph's vertex set.
	ErrUnknownVertex = errors.New("unknown vertex")

	// ErrSelfLoop is returned by AddEdge when both endpoints are the same vertex.
	ErrSelfLoop = errors.New("self loops are not allowed")

	// ErrDuplicateEdge is returned by AddEdge when the edge is already present.
	ErrDuplicateEdge = errors.New("edge already present")

	// ErrMissingEdge is returned by RemoveEdge and ReverseEdge when the edge
	// is absent.
	ErrMissingEdge = errors.New("edge not present")

	// ErrCycle is returned (wrapped in a CYCLE coded error) by [DAG.AddEdge]
	// and [DAG.ReverseEdge] when the mutation would close a directed cycle.
	// The graph is left unchanged.
	ErrCycle = errors.New("edge would create a cycle")

	// ErrGraphHasCycle is returned by [Directed.Validate] and
	// [Directed.TopologicalOrder] when the graph is not acyclic.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Edge is an ordered pair of vertex indices. For undirected graphs From is
// always the smaller index.
type Edge struct {
	From int
	To   int
}

// Graph is the read-only capability set shared by every graph variant.
type Graph interface {
	// Order returns the number of vertex slots.
	Order() int
	// Size returns the number of edges.
	Size() int
	Labels() []string
	Label(i int) string
	Index(label string) (int, bool)
	// HasVertex reports whether i is a vertex of this graph. Sub-graph views
	// keep every slot but report excluded vertices as absent.
	HasVertex(i int) bool
	HasEdge(x, y int) bool
	// Edges returns every edge in row-major order of the adjacency matrix.
	Edges() []Edge
}

// DirectedGraph adds parent/child queries to [Graph].
type DirectedGraph interface {
	Graph
	Parents(x int) []int
	Children(x int) []int
}

// matrix is the dense adjacency storage shared by all variants. Labels are
// sorted and unique; vertex i carries labels[i].
type matrix struct {
	labels []string
	index  map[string]int
	adj    []bool
	n      int
	size   int
}

func newMatrix(labels []string) (matrix, error) {
	if err := errs.ValidateLabels(labels); err != nil {
		return matrix{}, err
	}
	sorted := slices.Clone(labels)
	slices.Sort(sorted)
	index := make(map[string]int, len(sorted))
	for i, l := range sorted {
		index[l] = i
	}
	return matrix{
		labels: sorted,
		index:  index,
		adj:    make([]bool, len(sorted)*len(sorted)),
		n:      len(sorted),
	}, nil
}

// clone copies the adjacency. Labels and index are immutable and shared.
func (m *matrix) clone() matrix {
	c := *m
	c.adj = slices.Clone(m.adj)
	return c
}

// Order returns the number of vertices.
func (m *matrix) Order() int { return m.n }

// Size returns the number of edges.
func (m *matrix) Size() int { return m.size }

// Labels returns a copy of the sorted vertex labels.
func (m *matrix) Labels() []string { return slices.Clone(m.labels) }

// Label returns the label of vertex i, or "" when i is out of range.
func (m *matrix) Label(i int) string {
	if i < 0 || i >= m.n {
		return ""
	}
	return m.labels[i]
}

// Index returns the vertex index of label.
func (m *matrix) Index(label string) (int, bool) {
	i, ok := m.index[label]
	return i, ok
}

// HasVertex reports whether i is a valid vertex index.
func (m *matrix) HasVertex(i int) bool { return i >= 0 && i < m.n }

// HasEdge reports whether the edge x→y is present. Out-of-range indices
// report false.
func (m *matrix) HasEdge(x, y int) bool {
	return m.HasVertex(x) && m.HasVertex(y) && m.has(x, y)
}

func (m *matrix) has(x, y int) bool { return m.adj[x*m.n+y] }

func (m *matrix) set(x, y int, v bool) {
	if m.adj[x*m.n+y] == v {
		return
	}
	m.adj[x*m.n+y] = v
	if v {
		m.size++
	} else {
		m.size--
	}
}

// check validates a pair of endpoints for a mutation.
func (m *matrix) check(x, y int) error {
	if !m.HasVertex(x) || !m.HasVertex(y) {
		return errs.Wrap(errs.ErrCodeUnknownVertex, ErrUnknownVertex, "edge (%d, %d) in graph of order %d", x, y, m.n)
	}
	if x == y {
		return errs.Wrap(errs.ErrCodeInvalidInput, ErrSelfLoop, "vertex %s", m.labels[x])
	}
	return nil
}

// Indices resolves labels to vertex indices, preserving order.
func Indices(g Graph, labels ...string) ([]int, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		idx, ok := g.Index(l)
		if !ok {
			return nil, errs.Wrap(errs.ErrCodeUnknownVertex, ErrUnknownVertex, "label %q", l)
		}
		out[i] = idx
	}
	return out, nil
}

// EdgeLabels returns the edges of g as label pairs.
func EdgeLabels(g Graph) [][2]string {
	edges := g.Edges()
	out := make([][2]string, len(edges))
	for i, e := range edges {
		out[i] = [2]string{g.Label(e.From), g.Label(e.To)}
	}
	return out
}

// IsSubgraphOf reports whether a and b share a vertex set and every edge of
// a is also an edge of b.
func IsSubgraphOf(a, b Graph) bool {
	if !slices.Equal(a.Labels(), b.Labels()) {
		return false
	}
	for _, e := range a.Edges() {
		if !b.HasEdge(e.From, e.To) {
			return false
		}
	}
	return true
}

// Equal reports whether a and b have the same vertex set and edge set.
func Equal(a, b Graph) bool {
	return a.Size() == b.Size() && IsSubgraphOf(a, b)
}
