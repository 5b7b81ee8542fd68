package discovery

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causalhub/pkg/dag"
	errs "github.com/matzehuels/causalhub/pkg/errors"
)

// Orient turns a skeleton and its separating sets into a CPDAG.
//
// Edges with a direction fixed by the prior are oriented first. Every
// unshielded triple x—z—y whose separating set lacks z then becomes the
// v-structure x→z←y; the triples are collected on the skeleton before any is
// applied, so the result does not depend on the order of variables. Two
// triples that disagree on an edge leave it undirected. Meek's rules R1–R3
// finally orient every line that any other direction would turn into a new
// v-structure or a cycle.
func (p *PCStable) Orient(skel *dag.Undirected, sep SepSets) (*dag.PDAG, error) {
	if skel == nil {
		return nil, errs.New(errs.ErrCodeInvalidInput, "no skeleton")
	}
	if p.Prior != nil && !slices.Equal(p.Prior.Labels(), skel.Labels()) {
		return nil, errs.New(errs.ErrCodeConstraintConflict,
			"prior knowledge is over %v, skeleton over %v", p.Prior.Labels(), skel.Labels())
	}
	logger := p.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	g := dag.NewPDAG(skel)
	n := g.Order()

	for _, e := range skel.Edges() {
		x, y := e.From, e.To
		switch {
		case p.Prior.IsRequired(x, y) || p.Prior.IsForbidden(y, x):
			_ = g.Orient(x, y)
		case p.Prior.IsRequired(y, x) || p.Prior.IsForbidden(x, y):
			_ = g.Orient(y, x)
		}
	}

	proposed := make(map[[2]int]bool)
	for z := 0; z < n; z++ {
		adj := skel.Neighbors(z)
		for i, x := range adj {
			for _, y := range adj[i+1:] {
				if skel.HasEdge(x, y) {
					continue
				}
				s, ok := sep.Get(x, y)
				if !ok || slices.Contains(s, z) {
					continue
				}
				proposed[[2]int{x, z}] = true
				proposed[[2]int{y, z}] = true
			}
		}
	}
	conflicts := 0
	for _, e := range skel.Edges() {
		x, y := e.From, e.To
		fwd, bwd := proposed[[2]int{x, y}], proposed[[2]int{y, x}]
		switch {
		case fwd && bwd:
			conflicts++
		case fwd && g.HasLine(x, y):
			_ = g.Orient(x, y)
		case bwd && g.HasLine(x, y):
			_ = g.Orient(y, x)
		case fwd && g.HasArc(y, x), bwd && g.HasArc(x, y):
			conflicts++
		}
	}
	if conflicts > 0 {
		logger.Warn("conflicting v-structures left undirected", "edges", conflicts)
	}

	rounds := applyMeek(g)
	logger.Debug("orientation done", "arcs", len(g.Arcs()), "lines", len(g.Lines()), "rounds", rounds)
	return g, nil
}

// applyMeek applies Meek's rules R1–R3 until none fires and returns the
// number of passes made.
func applyMeek(g *dag.PDAG) int {
	rounds := 0
	for changed := true; changed; rounds++ {
		changed = false
		for _, e := range g.Lines() {
			for _, dir := range [][2]int{{e.From, e.To}, {e.To, e.From}} {
				a, b := dir[0], dir[1]
				if !g.HasLine(a, b) {
					break
				}
				if meekR1(g, a, b) || meekR2(g, a, b) || meekR3(g, a, b) {
					_ = g.Orient(a, b)
					changed = true
				}
			}
		}
	}
	return rounds
}

// meekR1 reports c→a—b with c and b non-adjacent.
func meekR1(g *dag.PDAG, a, b int) bool {
	for _, c := range g.Parents(a) {
		if !g.IsAdjacent(c, b) {
			return true
		}
	}
	return false
}

// meekR2 reports a→c→b next to the line a—b.
func meekR2(g *dag.PDAG, a, b int) bool {
	for _, c := range g.Children(a) {
		if g.HasArc(c, b) {
			return true
		}
	}
	return false
}

// meekR3 reports lines a—c and a—d with c→b←d and c, d non-adjacent.
func meekR3(g *dag.PDAG, a, b int) bool {
	var cs []int
	for _, c := range g.LinesAt(a) {
		if g.HasArc(c, b) {
			cs = append(cs, c)
		}
	}
	for i, c := range cs {
		for _, d := range cs[i+1:] {
			if !g.IsAdjacent(c, d) {
				return true
			}
		}
	}
	return false
}
