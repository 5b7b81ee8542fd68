package dag

import errs "github.com/matzehuels/causalhub/pkg/errors"

// PDAG is a partially directed graph: every adjacency is either an arc x→y
// or an undirected line x—y. Constraint-based search produces one as the
// CPDAG of its skeleton, with lines marking the adjacencies whose direction
// the data cannot decide.
//
// The adjacency matrix stores an arc as one cell and a line as both cells.
// PDAG is not safe for concurrent use without external synchronization.
type PDAG struct {
	matrix
}

// NewPDAG returns a PDAG with a line for every edge of skel.
func NewPDAG(skel *Undirected) *PDAG {
	return &PDAG{matrix: skel.clone()}
}

// NewEmptyPDAG returns a PDAG without adjacencies.
func NewEmptyPDAG(labels []string) (*PDAG, error) {
	m, err := newMatrix(labels)
	if err != nil {
		return nil, err
	}
	return &PDAG{matrix: m}, nil
}

// HasArc reports whether x→y is an arc.
func (p *PDAG) HasArc(x, y int) bool {
	return p.HasVertex(x) && p.HasVertex(y) && p.has(x, y) && !p.has(y, x)
}

// HasLine reports whether x—y is an undirected line.
func (p *PDAG) HasLine(x, y int) bool {
	return p.HasVertex(x) && p.HasVertex(y) && p.has(x, y) && p.has(y, x)
}

// IsAdjacent reports whether x and y are joined by an arc or a line.
func (p *PDAG) IsAdjacent(x, y int) bool {
	return p.HasVertex(x) && p.HasVertex(y) && (p.has(x, y) || p.has(y, x))
}

// HasEdge reports whether x→y is an arc or x—y a line.
func (p *PDAG) HasEdge(x, y int) bool {
	return p.HasVertex(x) && p.HasVertex(y) && p.has(x, y)
}

// Size returns the number of adjacencies.
func (p *PDAG) Size() int {
	lines := 0
	for x := 0; x < p.n; x++ {
		for y := x + 1; y < p.n; y++ {
			if p.has(x, y) && p.has(y, x) {
				lines++
			}
		}
	}
	return p.size - lines
}

// Parents returns the vertices with an arc into x, in ascending order.
func (p *PDAG) Parents(x int) []int {
	var out []int
	for v := 0; v < p.n; v++ {
		if p.has(v, x) && !p.has(x, v) {
			out = append(out, v)
		}
	}
	return out
}

// Children returns the vertices x has an arc to, in ascending order.
func (p *PDAG) Children(x int) []int {
	var out []int
	for v := 0; v < p.n; v++ {
		if p.has(x, v) && !p.has(v, x) {
			out = append(out, v)
		}
	}
	return out
}

// LinesAt returns the vertices joined to x by a line, in ascending order.
func (p *PDAG) LinesAt(x int) []int {
	var out []int
	for v := 0; v < p.n; v++ {
		if p.has(x, v) && p.has(v, x) {
			out = append(out, v)
		}
	}
	return out
}

// Arcs returns every arc in row-major order.
func (p *PDAG) Arcs() []Edge {
	var out []Edge
	for x := 0; x < p.n; x++ {
		for y := 0; y < p.n; y++ {
			if p.has(x, y) && !p.has(y, x) {
				out = append(out, Edge{From: x, To: y})
			}
		}
	}
	return out
}

// Lines returns every line once, with From < To, in ascending order.
func (p *PDAG) Lines() []Edge {
	var out []Edge
	for x := 0; x < p.n; x++ {
		for y := x + 1; y < p.n; y++ {
			if p.has(x, y) && p.has(y, x) {
				out = append(out, Edge{From: x, To: y})
			}
		}
	}
	return out
}

// Edges returns every arc, then every line with From < To.
func (p *PDAG) Edges() []Edge {
	return append(p.Arcs(), p.Lines()...)
}

// AddArc adds the arc x→y between non-adjacent vertices.
func (p *PDAG) AddArc(x, y int) error {
	if err := p.check(x, y); err != nil {
		return err
	}
	if p.has(x, y) || p.has(y, x) {
		return errs.Wrap(errs.ErrCodeInvalidInput, ErrDuplicateEdge, "%s, %s already adjacent", p.labels[x], p.labels[y])
	}
	p.set(x, y, true)
	return nil
}

// AddLine adds the line x—y between non-adjacent vertices.
func (p *PDAG) AddLine(x, y int) error {
	if err := p.AddArc(x, y); err != nil {
		return err
	}
	p.set(y, x, true)
	return nil
}

// Orient turns the line x—y into the arc x→y.
func (p *PDAG) Orient(x, y int) error {
	if err := p.check(x, y); err != nil {
		return err
	}
	if !p.has(x, y) || !p.has(y, x) {
		return errs.Wrap(errs.ErrCodeInvalidInput, ErrMissingEdge, "no line %s — %s", p.labels[x], p.labels[y])
	}
	p.set(y, x, false)
	return nil
}

// Clone returns a deep copy of the graph.
func (p *PDAG) Clone() *PDAG {
	return &PDAG{matrix: p.clone()}
}
