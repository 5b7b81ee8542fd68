// Package prior holds prior knowledge that restricts structure search.
//
// [ForbiddenRequired] pairs two disjoint edge sets over a fixed vertex
// domain: forbidden edges are never added and required edges are never
// removed. Both sets are validated at construction: an edge may not be both
// forbidden and required, and the required edges on their own must form an
// acyclic graph. Violations are CONSTRAINT_CONFLICT coded errors.
//
// A nil *ForbiddenRequired permits everything.
package prior

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/matzehuels/causalhub/pkg/dag"
	errs "github.com/matzehuels/causalhub/pkg/errors"
)

// ForbiddenRequired is an immutable set of forbidden and required edges.
type ForbiddenRequired struct {
	labels    []string
	forbidden map[dag.Edge]bool
	required  map[dag.Edge]bool
}

// New builds prior knowledge over labels from (from, to) label pairs.
func New(labels []string, forbidden, required [][2]string) (*ForbiddenRequired, error) {
	labels = slices.Clone(labels)
	slices.Sort(labels)
	if err := errs.ValidateLabels(labels); err != nil {
		return nil, err
	}
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	resolve := func(kind string, pairs [][2]string) ([]dag.Edge, error) {
		out := make([]dag.Edge, 0, len(pairs))
		for _, p := range pairs {
			x, ok := index[p[0]]
			if !ok {
				return nil, errs.Wrap(errs.ErrCodeUnknownVertex, dag.ErrUnknownVertex, "%s edge %s -> %s: %q", kind, p[0], p[1], p[0])
			}
			y, ok := index[p[1]]
			if !ok {
				return nil, errs.Wrap(errs.ErrCodeUnknownVertex, dag.ErrUnknownVertex, "%s edge %s -> %s: %q", kind, p[0], p[1], p[1])
			}
			out = append(out, dag.Edge{From: x, To: y})
		}
		return out, nil
	}
	f, err := resolve("forbidden", forbidden)
	if err != nil {
		return nil, err
	}
	r, err := resolve("required", required)
	if err != nil {
		return nil, err
	}
	return FromEdges(labels, f, r)
}

// FromEdges builds prior knowledge over sorted labels from index pairs.
func FromEdges(labels []string, forbidden, required []dag.Edge) (*ForbiddenRequired, error) {
	fr := &ForbiddenRequired{
		labels:    slices.Clone(labels),
		forbidden: make(map[dag.Edge]bool, len(forbidden)),
		required:  make(map[dag.Edge]bool, len(required)),
	}
	for _, set := range []struct {
		edges []dag.Edge
		into  map[dag.Edge]bool
	}{{forbidden, fr.forbidden}, {required, fr.required}} {
		for _, e := range set.edges {
			if e.From < 0 || e.From >= len(labels) || e.To < 0 || e.To >= len(labels) {
				return nil, errs.Wrap(errs.ErrCodeUnknownVertex, dag.ErrUnknownVertex, "edge %d -> %d", e.From, e.To)
			}
			if e.From == e.To {
				return nil, errs.Wrap(errs.ErrCodeInvalidInput, dag.ErrSelfLoop, "edge %s -> %s", labels[e.From], labels[e.To])
			}
			set.into[e] = true
		}
	}
	for e := range fr.required {
		if fr.forbidden[e] {
			return nil, errs.New(errs.ErrCodeConstraintConflict,
				"edge %s -> %s is both forbidden and required", labels[e.From], labels[e.To])
		}
	}
	g, err := dag.New(labels)
	if err != nil {
		return nil, err
	}
	if err := addAll(g, fr.Required()); err != nil {
		return nil, errs.Wrap(errs.ErrCodeConstraintConflict, err, "required edges contain a cycle")
	}
	return fr, nil
}

// Empty returns prior knowledge over labels with no constraints.
func Empty(labels []string) *ForbiddenRequired {
	fr, _ := FromEdges(labels, nil, nil)
	return fr
}

// Labels returns the vertex domain.
func (fr *ForbiddenRequired) Labels() []string {
	if fr == nil {
		return nil
	}
	return slices.Clone(fr.labels)
}

// IsForbidden reports whether x → y is forbidden.
func (fr *ForbiddenRequired) IsForbidden(x, y int) bool {
	return fr != nil && fr.forbidden[dag.Edge{From: x, To: y}]
}

// IsRequired reports whether x → y is required.
func (fr *ForbiddenRequired) IsRequired(x, y int) bool {
	return fr != nil && fr.required[dag.Edge{From: x, To: y}]
}

// CanAdd reports whether adding x → y is allowed.
func (fr *ForbiddenRequired) CanAdd(x, y int) bool { return !fr.IsForbidden(x, y) }

// CanRemove reports whether removing x → y is allowed.
func (fr *ForbiddenRequired) CanRemove(x, y int) bool { return !fr.IsRequired(x, y) }

// CanReverse reports whether turning x → y into y → x is allowed.
func (fr *ForbiddenRequired) CanReverse(x, y int) bool {
	return !fr.IsRequired(x, y) && !fr.IsForbidden(y, x)
}

// Forbidden returns the forbidden edges in row-major order.
func (fr *ForbiddenRequired) Forbidden() []dag.Edge {
	if fr == nil {
		return nil
	}
	return sortedEdges(fr.forbidden)
}

// Required returns the required edges in row-major order.
func (fr *ForbiddenRequired) Required() []dag.Edge {
	if fr == nil {
		return nil
	}
	return sortedEdges(fr.required)
}

// Len returns the number of constraints.
func (fr *ForbiddenRequired) Len() int {
	if fr == nil {
		return 0
	}
	return len(fr.forbidden) + len(fr.required)
}

// Check reports a CONSTRAINT_CONFLICT coded error if g's vertex domain
// differs from the prior's or g contains a forbidden edge.
func (fr *ForbiddenRequired) Check(g dag.Graph) error {
	if fr == nil {
		return nil
	}
	if !slices.Equal(fr.labels, g.Labels()) {
		return errs.New(errs.ErrCodeConstraintConflict, "prior knowledge is over %v, graph over %v", fr.labels, g.Labels())
	}
	for _, e := range fr.Forbidden() {
		if g.HasEdge(e.From, e.To) {
			return errs.New(errs.ErrCodeConstraintConflict,
				"graph contains forbidden edge %s -> %s", fr.labels[e.From], fr.labels[e.To])
		}
	}
	return nil
}

// Apply checks g and adds every required edge it is missing. If a required
// edge would close a cycle with g's edges the result is a
// CONSTRAINT_CONFLICT coded error and g is unchanged.
func (fr *ForbiddenRequired) Apply(g *dag.DAG) error {
	if err := fr.Check(g); err != nil {
		return err
	}
	var missing []dag.Edge
	for _, e := range fr.Required() {
		if !g.HasEdge(e.From, e.To) {
			missing = append(missing, e)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	work := g.Clone()
	if err := addAll(work, missing); err != nil {
		return errs.Wrap(errs.ErrCodeConstraintConflict, err, "required edges conflict with the initial graph")
	}
	for _, e := range missing {
		if err := g.AddEdge(e.From, e.To); err != nil {
			return err
		}
	}
	return nil
}

func (fr *ForbiddenRequired) String() string {
	if fr == nil {
		return "no prior knowledge"
	}
	return fmt.Sprintf("%d forbidden, %d required", len(fr.forbidden), len(fr.required))
}

func addAll(g *dag.DAG, edges []dag.Edge) error {
	for _, e := range edges {
		if err := g.AddEdge(e.From, e.To); err != nil && !errors.Is(err, dag.ErrDuplicateEdge) {
			return err
		}
	}
	return nil
}

func sortedEdges(set map[dag.Edge]bool) []dag.Edge {
	out := make([]dag.Edge, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b dag.Edge) int {
		return cmp.Or(cmp.Compare(a.From, b.From), cmp.Compare(a.To, b.To))
	})
	return out
}
