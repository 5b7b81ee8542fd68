package dag

import (
	"math/rand/v2"
	"slices"

	errs "github.com/matzehuels/causalhub/pkg/errors"
)

// PartiallyOrdered is implemented by graphs that maintain a vertex ordering
// consistent with every edge direction.
type PartiallyOrdered interface {
	DirectedGraph
	// Ordering returns a topological order of the vertices.
	Ordering() []int
	// OrderConsistent reports whether x precedes y in the current ordering,
	// in which case adding x→y cannot close a cycle.
	OrderConsistent(x, y int) bool
}

// DAG is a directed graph that is acyclic at all times. Every mutation
// re-validates the invariant and is all-or-nothing: a rejected AddEdge or
// ReverseEdge leaves the graph exactly as it was.
//
// A DAG keeps a topological order of its vertices up to date across
// mutations. An edge x→y whose endpoints already agree with that order is
// accepted without traversal; otherwise a DFS bounded to the affected
// region of the order decides, and the order is repaired locally.
//
// The zero value is not usable - use [New], [FromDirected] or [FromEdges].
// DAG is not safe for concurrent use without external synchronization;
// concurrent read-only calls (including CanAddEdge and CanReverseEdge) are
// fine while no goroutine mutates the graph.
type DAG struct {
	digraph
	ord []int // position -> vertex
	pos []int // vertex -> position
}

var (
	_ PartiallyOrdered = (*DAG)(nil)
	_ PartiallyOrdered = (*Snapshot)(nil)
)

// New creates an edgeless DAG over the sorted labels.
func New(labels []string) (*DAG, error) {
	m, err := newMatrix(labels)
	if err != nil {
		return nil, err
	}
	d := &DAG{digraph: digraph{m}}
	d.ord = make([]int, m.n)
	d.pos = make([]int, m.n)
	for i := range d.ord {
		d.ord[i] = i
		d.pos[i] = i
	}
	return d, nil
}

// FromDirected promotes a directed graph to a DAG. Returns a CYCLE coded
// error when g is not acyclic.
func FromDirected(g *Directed) (*DAG, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	d := &DAG{digraph: digraph{g.clone()}}
	d.setOrder(order)
	return d, nil
}

// FromEdges builds a DAG from labels and label pairs. Edges are inserted in
// the given order through [DAG.AddEdge], so the first edge that closes a
// cycle is reported.
func FromEdges(labels []string, edges [][2]string) (*DAG, error) {
	d, err := New(labels)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		idx, err := Indices(d, e[0], e[1])
		if err != nil {
			return nil, err
		}
		if err := d.AddEdge(idx[0], idx[1]); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// NewRandom draws a random DAG: a uniformly random vertex permutation is
// chosen and each forward pair is linked with probability p. The same
// seed yields the same graph.
func NewRandom(labels []string, p float64, seed uint64) (*DAG, error) {
	if p < 0 || p > 1 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "edge probability must be in [0, 1], got %g", p)
	}
	d, err := New(labels)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
	perm := rng.Perm(d.n)
	for i := 0; i < d.n; i++ {
		for j := i + 1; j < d.n; j++ {
			if rng.Float64() < p {
				d.set(perm[i], perm[j], true)
			}
		}
	}
	d.setOrder(perm)
	return d, nil
}

func (d *DAG) setOrder(order []int) {
	d.ord = slices.Clone(order)
	d.pos = make([]int, len(order))
	for i, v := range order {
		d.pos[v] = i
	}
}

// Ordering returns a copy of the maintained topological order.
func (d *DAG) Ordering() []int { return slices.Clone(d.ord) }

// OrderConsistent reports whether x precedes y in the maintained order.
func (d *DAG) OrderConsistent(x, y int) bool {
	return d.HasVertex(x) && d.HasVertex(y) && d.pos[x] < d.pos[y]
}

// CanAddEdge reports, without mutating, whether AddEdge(x, y) would
// succeed. The returned error is exactly the one AddEdge would return.
func (d *DAG) CanAddEdge(x, y int) error {
	if err := d.check(x, y); err != nil {
		return err
	}
	if d.has(x, y) {
		return errs.Wrap(errs.ErrCodeInvalidInput, ErrDuplicateEdge, "%s -> %s", d.labels[x], d.labels[y])
	}
	if d.closesCycle(x, y) {
		return d.cycleError("add", x, y)
	}
	return nil
}

// closesCycle reports whether a path y⇝x exists. Any such path only visits
// vertices positioned between y and x in the current order.
func (d *DAG) closesCycle(x, y int) bool {
	if d.pos[x] < d.pos[y] {
		return false
	}
	bound := d.pos[x]
	return d.reachesWithin(y, x, func(v int) bool { return d.pos[v] < bound })
}

// AddEdge adds x→y. A reachability check from y back to x runs before the
// edge is committed; if it succeeds a CYCLE coded error wrapping ErrCycle is
// returned and the graph is unchanged.
func (d *DAG) AddEdge(x, y int) error {
	if err := d.CanAddEdge(x, y); err != nil {
		return err
	}
	d.set(x, y, true)
	d.reorder(x, y)
	return nil
}

// RemoveEdge removes x→y. Removal never invalidates acyclicity or the
// maintained order.
func (d *DAG) RemoveEdge(x, y int) error {
	if err := d.check(x, y); err != nil {
		return err
	}
	if !d.has(x, y) {
		return errs.Wrap(errs.ErrCodeInvalidInput, ErrMissingEdge, "%s -> %s", d.labels[x], d.labels[y])
	}
	d.set(x, y, false)
	return nil
}

// CanReverseEdge reports, without mutating, whether ReverseEdge(x, y)
// would succeed. The check is made against the graph with the reversal
// fully applied: y→x closes a cycle exactly when x still reaches y once
// x→y is gone, that is, through some other child of x.
func (d *DAG) CanReverseEdge(x, y int) error {
	if err := d.check(x, y); err != nil {
		return err
	}
	if !d.has(x, y) {
		return errs.Wrap(errs.ErrCodeInvalidInput, ErrMissingEdge, "%s -> %s", d.labels[x], d.labels[y])
	}
	bound := d.pos[y]
	admit := func(v int) bool { return d.pos[v] < bound }
	for _, c := range d.Children(x) {
		if c == y || d.pos[c] > bound {
			continue
		}
		if d.reachesWithin(c, y, admit) {
			return d.cycleError("reverse", x, y)
		}
	}
	return nil
}

// ReverseEdge atomically replaces x→y with y→x. It is validated against the
// post-reversal graph; on failure the original edge is kept and a CYCLE
// coded error is returned.
func (d *DAG) ReverseEdge(x, y int) error {
	if err := d.CanReverseEdge(x, y); err != nil {
		return err
	}
	d.set(x, y, false)
	d.set(y, x, true)
	d.reorder(y, x)
	return nil
}

func (d *DAG) cycleError(op string, x, y int) error {
	return errs.Wrap(errs.ErrCodeCycle, ErrCycle, "%s %s -> %s", op, d.labels[x], d.labels[y])
}

// reorder repairs the topological order after x→y was inserted with
// pos[x] > pos[y]. Vertices reachable from y and positioned before x, and
// vertices reaching x and positioned after y, are moved so that the
// second group precedes the first while both keep their relative order.
func (d *DAG) reorder(x, y int) {
	lo, hi := d.pos[y], d.pos[x]
	if hi < lo {
		return
	}
	fwd := d.region(y, d.Children, func(v int) bool { return d.pos[v] < hi })
	bwd := d.region(x, d.Parents, func(v int) bool { return d.pos[v] > lo })

	byPos := func(a, b int) int { return d.pos[a] - d.pos[b] }
	slices.SortFunc(fwd, byPos)
	slices.SortFunc(bwd, byPos)

	moved := append(bwd, fwd...)
	slots := make([]int, len(moved))
	for i, v := range moved {
		slots[i] = d.pos[v]
	}
	slices.Sort(slots)
	for i, v := range moved {
		d.pos[v] = slots[i]
		d.ord[slots[i]] = v
	}
}

func (d *DAG) region(start int, next func(int) []int, admit func(int) bool) []int {
	seen := map[int]bool{start: true}
	out := []int{start}
	stack := []int{start}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, w := range next(v) {
			if seen[w] || !admit(w) {
				continue
			}
			seen[w] = true
			out = append(out, w)
			stack = append(stack, w)
		}
	}
	return out
}

// Clone returns a deep copy of the DAG, including its order.
func (d *DAG) Clone() *DAG {
	return &DAG{
		digraph: digraph{d.clone()},
		ord:     slices.Clone(d.ord),
		pos:     slices.Clone(d.pos),
	}
}

// Directed returns a mutable, unchecked copy of the graph.
func (d *DAG) Directed() *Directed {
	return &Directed{digraph{d.clone()}}
}

// Snapshot returns an immutable copy of the graph.
func (d *DAG) Snapshot() *Snapshot {
	present := make([]bool, d.n)
	for i := range present {
		present[i] = true
	}
	return &Snapshot{digraph: digraph{d.clone()}, ord: slices.Clone(d.ord), present: present}
}

// Induced returns the read-only sub-graph view on vertices. Vertex indices
// and labels are preserved; vertices outside the selection keep their slot
// but report false from HasVertex and lose all incident edges.
func (d *DAG) Induced(vertices []int) (*Snapshot, error) {
	return d.Snapshot().Induced(vertices)
}

// Snapshot is an immutable view of a DAG: the result of a structure search
// or a sub-graph selection. It has no mutation methods; use [Snapshot.DAG]
// to obtain an independent mutable copy.
type Snapshot struct {
	digraph
	ord     []int
	present []bool
}

// HasVertex reports whether i belongs to the view.
func (s *Snapshot) HasVertex(i int) bool {
	return i >= 0 && i < s.n && s.present[i]
}

// Vertices returns the indices that belong to the view.
func (s *Snapshot) Vertices() []int {
	var out []int
	for v, ok := range s.present {
		if ok {
			out = append(out, v)
		}
	}
	return out
}

// Ordering returns a topological order of every vertex slot.
func (s *Snapshot) Ordering() []int { return slices.Clone(s.ord) }

// OrderConsistent reports whether x precedes y in the snapshot's order.
func (s *Snapshot) OrderConsistent(x, y int) bool {
	if !s.HasVertex(x) || !s.HasVertex(y) {
		return false
	}
	return slices.Index(s.ord, x) < slices.Index(s.ord, y)
}

// Induced narrows the view to vertices, which must all belong to s.
func (s *Snapshot) Induced(vertices []int) (*Snapshot, error) {
	keep := make([]bool, s.n)
	for _, v := range vertices {
		if !s.HasVertex(v) {
			return nil, errs.Wrap(errs.ErrCodeUnknownVertex, ErrUnknownVertex, "vertex %d not in view", v)
		}
		keep[v] = true
	}
	m := s.clone()
	for x := 0; x < m.n; x++ {
		for y := 0; y < m.n; y++ {
			if m.has(x, y) && (!keep[x] || !keep[y]) {
				m.set(x, y, false)
			}
		}
	}
	return &Snapshot{digraph: digraph{m}, ord: slices.Clone(s.ord), present: keep}, nil
}

// DAG returns an independent mutable copy over every vertex slot.
func (s *Snapshot) DAG() *DAG {
	d := &DAG{digraph: digraph{s.clone()}}
	d.setOrder(s.ord)
	return d
}
