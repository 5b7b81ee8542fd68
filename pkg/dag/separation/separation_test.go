package separation

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/matzehuels/causalhub/pkg/dag"
	errs "github.com/matzehuels/causalhub/pkg/errors"
)

func build(t *testing.T, labels []string, edges [][2]string) *dag.DAG {
	t.Helper()
	g, err := dag.FromEdges(labels, edges)
	if err != nil {
		t.Fatalf("FromEdges() error = %v", err)
	}
	return g
}

func idx(t *testing.T, g dag.Graph, labels ...string) []int {
	t.Helper()
	out, err := dag.Indices(g, labels...)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestDSeparatedClassicStructures(t *testing.T) {
	labels := []string{"A", "B", "C", "D"}
	chain := build(t, labels, [][2]string{{"A", "B"}, {"B", "C"}})
	fork := build(t, labels, [][2]string{{"B", "A"}, {"B", "C"}})
	collider := build(t, labels, [][2]string{{"A", "B"}, {"C", "B"}, {"B", "D"}})

	tests := []struct {
		name    string
		g       *dag.DAG
		x, y, z []string
		want    bool
	}{
		{"chain open", chain, []string{"A"}, []string{"C"}, nil, false},
		{"chain blocked", chain, []string{"A"}, []string{"C"}, []string{"B"}, true},
		{"fork open", fork, []string{"A"}, []string{"C"}, nil, false},
		{"fork blocked", fork, []string{"A"}, []string{"C"}, []string{"B"}, true},
		{"collider blocked", collider, []string{"A"}, []string{"C"}, nil, true},
		{"collider opened", collider, []string{"A"}, []string{"C"}, []string{"B"}, false},
		{"collider opened by descendant", collider, []string{"A"}, []string{"C"}, []string{"D"}, false},
		{"isolated vertex", chain, []string{"A"}, []string{"D"}, nil, true},
		{"set arguments", collider, []string{"A", "C"}, []string{"D"}, []string{"B"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, z := idx(t, tt.g, tt.x...), idx(t, tt.g, tt.y...), idx(t, tt.g, tt.z...)
			got, err := DSeparated(tt.g, x, y, z)
			if err != nil {
				t.Fatalf("DSeparated() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DSeparated(%v, %v | %v) = %v, want %v", tt.x, tt.y, tt.z, got, tt.want)
			}
		})
	}
}

func TestValidation(t *testing.T) {
	g := build(t, []string{"A", "B", "C"}, [][2]string{{"A", "B"}})
	tests := []struct {
		name    string
		x, y, z []int
	}{
		{"empty X", nil, []int{1}, nil},
		{"empty Y", []int{0}, nil, nil},
		{"X and Y overlap", []int{0}, []int{0}, nil},
		{"Y and Z overlap", []int{0}, []int{1}, []int{1}},
		{"out of range", []int{0}, []int{7}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DSeparated(g, tt.x, tt.y, tt.z); !errs.Is(err, errs.ErrCodeInvalidInput) {
				t.Errorf("DSeparated() error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

// randomQuery draws pairwise disjoint X, Y (non-empty) and Z.
func randomQuery(rng *rand.Rand, n int) (x, y, z []int) {
	perm := rng.Perm(n)
	nx := 1 + rng.IntN(2)
	ny := 1 + rng.IntN(2)
	nz := rng.IntN(n - nx - ny + 1)
	return perm[:nx], perm[nx : nx+ny], perm[nx+ny : nx+ny+nz]
}

func labelsN(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%02d", prefix, i)
	}
	return out
}

func TestDSeparatedSymmetricAndMatchesReachable(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 11^0xdeadbeef))
	for seed := uint64(0); seed < 30; seed++ {
		g, err := dag.NewRandom(labelsN("V", 8), 0.3, seed)
		if err != nil {
			t.Fatal(err)
		}
		for q := 0; q < 20; q++ {
			x, y, z := randomQuery(rng, g.Order())
			xy, _ := DSeparated(g, x, y, z)
			yx, _ := DSeparated(g, y, x, z)
			if xy != yx {
				t.Fatalf("seed %d: DSeparated(%v, %v | %v) = %v but reversed = %v", seed, x, y, z, xy, yx)
			}
			reach := Reachable(g, x, z)
			ball := !slices.ContainsFunc(y, func(v int) bool { return slices.Contains(reach, v) })
			if ball != xy {
				t.Fatalf("seed %d: DSeparated(%v, %v | %v) = %v, Reachable says %v", seed, x, y, z, xy, ball)
			}
		}
	}
}

func TestDSeparatedInvariantUnderRelabeling(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5^0xdeadbeef))
	const n = 7
	for seed := uint64(0); seed < 20; seed++ {
		g, _ := dag.NewRandom(labelsN("V", n), 0.35, seed)

		// Vertex i of g becomes vertex perm[i] of h.
		perm := rng.Perm(n)
		var edges [][2]string
		for _, e := range g.Edges() {
			edges = append(edges, [2]string{fmt.Sprintf("W%02d", perm[e.From]), fmt.Sprintf("W%02d", perm[e.To])})
		}
		h := build(t, labelsN("W", n), edges)
		mapSet := func(vs []int) []int {
			out := make([]int, len(vs))
			for i, v := range vs {
				out[i] = perm[v]
			}
			return out
		}

		for q := 0; q < 15; q++ {
			x, y, z := randomQuery(rng, n)
			a, _ := DSeparated(g, x, y, z)
			b, _ := DSeparated(h, mapSet(x), mapSet(y), mapSet(z))
			if a != b {
				t.Fatalf("seed %d: relabeling changed DSeparated(%v, %v | %v) from %v to %v", seed, x, y, z, a, b)
			}
		}
	}
}

func TestMarkovBlanketSeparates(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		g, _ := dag.NewRandom(labelsN("V", 8), 0.3, seed)
		for x := 0; x < g.Order(); x++ {
			mb := MarkovBlanket(g, x)
			var rest []int
			for v := 0; v < g.Order(); v++ {
				if v != x && !slices.Contains(mb, v) {
					rest = append(rest, v)
				}
			}
			if len(rest) == 0 {
				continue
			}
			sep, err := DSeparated(g, []int{x}, rest, mb)
			if err != nil {
				t.Fatal(err)
			}
			if !sep {
				t.Fatalf("seed %d: %d not separated from %v by its blanket %v", seed, x, rest, mb)
			}
		}
	}
}

func TestMoralize(t *testing.T) {
	g := build(t, []string{"A", "B", "C", "D"}, [][2]string{{"A", "C"}, {"B", "C"}, {"C", "D"}})
	m := Moralize(g)
	want := []dag.Edge{{From: 0, To: 1}, {From: 0, To: 2}, {From: 1, To: 2}, {From: 2, To: 3}}
	if got := m.Edges(); !slices.Equal(got, want) {
		t.Errorf("Moralize() edges = %v, want %v", got, want)
	}
}

func TestMSeparated(t *testing.T) {
	// A -> B <-> C <- D
	g := build(t, []string{"A", "B", "C", "D"}, [][2]string{{"A", "B"}, {"D", "C"}})
	bi, _ := dag.NewUndirected(g.Labels())
	_ = bi.AddEdge(1, 2)

	tests := []struct {
		name    string
		x, y, z []int
		want    bool
	}{
		{"colliders block", []int{0}, []int{3}, nil, true},
		{"one collider opened", []int{0}, []int{3}, []int{1}, true},
		{"both colliders opened", []int{0}, []int{3}, []int{1, 2}, false},
		{"bidirected edge is adjacency", []int{1}, []int{2}, []int{0, 3}, false},
		{"A and C through collider B", []int{0}, []int{2}, nil, true},
		{"A and C given B", []int{0}, []int{2}, []int{1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSeparated(g, bi, tt.x, tt.y, tt.z)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("MSeparated(%v, %v | %v) = %v, want %v", tt.x, tt.y, tt.z, got, tt.want)
			}
		})
	}

	// Without bidirected edges m-separation is d-separation.
	d, _ := DSeparated(g, []int{1}, []int{2}, nil)
	m, _ := MSeparated(g, nil, []int{1}, []int{2}, nil)
	if !d || !m {
		t.Errorf("B, C separated: DSeparated = %v, MSeparated(nil) = %v, want true", d, m)
	}
}

func TestUSeparated(t *testing.T) {
	u, _ := dag.NewUndirected([]string{"A", "B", "C", "D"})
	_ = u.AddEdge(0, 1)
	_ = u.AddEdge(1, 2)
	_ = u.AddEdge(0, 3)
	_ = u.AddEdge(3, 2)

	tests := []struct {
		name string
		z    []int
		want bool
	}{
		{"no conditioning", nil, false},
		{"one path blocked", []int{1}, false},
		{"both paths blocked", []int{1, 3}, true},
	}
	for _, tt := range tests {
		got, err := USeparated(u, []int{0}, []int{2}, tt.z)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("%s: USeparated(A, C | %v) = %v, want %v", tt.name, tt.z, got, tt.want)
		}
		back, _ := USeparated(u, []int{2}, []int{0}, tt.z)
		if back != got {
			t.Errorf("%s: USeparated is not symmetric", tt.name)
		}
	}
}
