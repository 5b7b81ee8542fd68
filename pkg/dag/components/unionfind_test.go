package components

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/matzehuels/causalhub/pkg/dag"
)

func TestUnionFindBasics(t *testing.T) {
	u := New(5)
	if u.Sets() != 5 || u.Len() != 5 {
		t.Fatalf("New(5) sets = %d, len = %d", u.Sets(), u.Len())
	}
	if !u.Union(0, 1) {
		t.Error("Union(0, 1) = false, want true")
	}
	if u.Union(1, 0) {
		t.Error("Union(1, 0) on merged sets = true, want false")
	}
	u.Extend(2, 3, 4)
	if u.Sets() != 2 {
		t.Errorf("Sets() = %d, want 2", u.Sets())
	}
	if u.Connected(0, 4) || !u.Connected(2, 4) {
		t.Error("Connected() disagrees with unions")
	}
	if got, want := u.Groups(nil), [][]int{{0, 1}, {2, 3, 4}}; !slices.EqualFunc(got, want, slices.Equal) {
		t.Errorf("Groups() = %v, want %v", got, want)
	}
}

func TestUnionFindProperties(t *testing.T) {
	const n = 40
	rng := rand.New(rand.NewPCG(3, 3^0xdeadbeef))
	u := New(n)
	// Reference: naive labeling, relabel on every union.
	label := make([]int, n)
	for i := range label {
		label[i] = i
	}
	for step := 0; step < 60; step++ {
		x, y := rng.IntN(n), rng.IntN(n)
		u.Union(x, y)
		u.Union(x, y) // idempotent
		lx, ly := label[x], label[y]
		for i := range label {
			if label[i] == ly {
				label[i] = lx
			}
		}
		// find(x) = find(y) after union(x, y)
		if u.Find(x) != u.Find(y) {
			t.Fatalf("step %d: Find(%d) != Find(%d) after Union", step, x, y)
		}
	}
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			if got, want := u.Connected(a, b), label[a] == label[b]; got != want {
				t.Fatalf("Connected(%d, %d) = %v, want %v", a, b, got, want)
			}
		}
	}
	// Transitivity via a shared representative.
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			for c := 0; c < n; c += 7 {
				if u.Connected(a, b) && u.Connected(b, c) && !u.Connected(a, c) {
					t.Fatalf("transitivity broken for %d, %d, %d", a, b, c)
				}
			}
		}
	}
}

func TestConnected(t *testing.T) {
	g, err := dag.FromEdges([]string{"A", "B", "C", "D", "E"},
		[][2]string{{"B", "A"}, {"D", "C"}, {"E", "C"}})
	if err != nil {
		t.Fatal(err)
	}
	got := Connected(g)
	want := [][]int{{0, 1}, {2, 3, 4}}
	if !slices.EqualFunc(got, want, slices.Equal) {
		t.Errorf("Connected() = %v, want %v", got, want)
	}
	if !Disconnected(g, 0, 2) || Disconnected(g, 3, 4) {
		t.Error("Disconnected() wrong")
	}

	view, _ := g.Induced([]int{2, 3})
	if got := Connected(view); !slices.EqualFunc(got, [][]int{{2, 3}}, slices.Equal) {
		t.Errorf("Connected(view) = %v, want [[2 3]]", got)
	}
}
