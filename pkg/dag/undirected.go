package dag

import errs "github.com/matzehuels/causalhub/pkg/errors"

// Undirected is a simple undirected graph over a fixed, sorted vertex set.
// The adjacency matrix is kept symmetric.
//
// The zero value is not usable - use [NewUndirected] or [NewComplete].
// Undirected is not safe for concurrent use without external synchronization.
type Undirected struct {
	matrix
}

// NewUndirected creates an edgeless undirected graph. Labels are sorted;
// vertex i carries the i-th label in sorted order.
func NewUndirected(labels []string) (*Undirected, error) {
	m, err := newMatrix(labels)
	if err != nil {
		return nil, err
	}
	return &Undirected{matrix: m}, nil
}

// NewComplete creates an undirected graph with an edge between every pair
// of distinct vertices.
func NewComplete(labels []string) (*Undirected, error) {
	u, err := NewUndirected(labels)
	if err != nil {
		return nil, err
	}
	for x := 0; x < u.n; x++ {
		for y := x + 1; y < u.n; y++ {
			u.link(x, y, true)
		}
	}
	return u, nil
}

func (u *Undirected) link(x, y int, v bool) {
	u.set(x, y, v)
	u.set(y, x, v)
}

// Size returns the number of undirected edges.
func (u *Undirected) Size() int { return u.size / 2 }

// AddEdge adds the edge x—y.
func (u *Undirected) AddEdge(x, y int) error {
	if err := u.check(x, y); err != nil {
		return err
	}
	if u.has(x, y) {
		return errs.Wrap(errs.ErrCodeInvalidInput, ErrDuplicateEdge, "%s — %s", u.labels[x], u.labels[y])
	}
	u.link(x, y, true)
	return nil
}

// RemoveEdge removes the edge x—y.
func (u *Undirected) RemoveEdge(x, y int) error {
	if err := u.check(x, y); err != nil {
		return err
	}
	if !u.has(x, y) {
		return errs.Wrap(errs.ErrCodeInvalidInput, ErrMissingEdge, "%s — %s", u.labels[x], u.labels[y])
	}
	u.link(x, y, false)
	return nil
}

// Neighbors returns the vertices adjacent to x in ascending order.
func (u *Undirected) Neighbors(x int) []int {
	var out []int
	for y := 0; y < u.n; y++ {
		if u.has(x, y) {
			out = append(out, y)
		}
	}
	return out
}

// Degree returns the number of neighbors of x.
func (u *Undirected) Degree(x int) int {
	d := 0
	for y := 0; y < u.n; y++ {
		if u.has(x, y) {
			d++
		}
	}
	return d
}

// Edges returns every edge once, with From < To, in ascending order.
func (u *Undirected) Edges() []Edge {
	out := make([]Edge, 0, u.Size())
	for x := 0; x < u.n; x++ {
		for y := x + 1; y < u.n; y++ {
			if u.has(x, y) {
				out = append(out, Edge{From: x, To: y})
			}
		}
	}
	return out
}

// Clone returns a deep copy of the graph.
func (u *Undirected) Clone() *Undirected {
	return &Undirected{matrix: u.clone()}
}

// Without returns a copy of u in which every edge touching a vertex in
// drop has been removed. Vertex indices are preserved.
func (u *Undirected) Without(drop []int) *Undirected {
	c := u.Clone()
	for _, z := range drop {
		if !c.HasVertex(z) {
			continue
		}
		for y := 0; y < c.n; y++ {
			if c.has(z, y) {
				c.link(z, y, false)
			}
		}
	}
	return c
}
