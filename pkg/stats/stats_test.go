package stats

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/causalhub/pkg/dataset"
	errs "github.com/matzehuels/causalhub/pkg/errors"
)

func randomCategorical(t *testing.T, rows int, card []int, seed uint64) *dataset.Categorical {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
	vars := make([]dataset.Variable, len(card))
	for j, c := range card {
		states := make([]string, c)
		for k := range states {
			states[k] = string(rune('a' + k))
		}
		vars[j] = dataset.Variable{Label: string(rune('A' + j)), States: states}
	}
	values := make([][]int, rows)
	for r := range values {
		values[r] = make([]int, len(card))
		for j, c := range card {
			values[r][j] = rng.IntN(c)
		}
	}
	d, err := dataset.NewCategoricalIndexed(vars, values)
	if err != nil {
		t.Fatalf("NewCategoricalIndexed: %v", err)
	}
	return d
}

func TestRavel(t *testing.T) {
	r, err := NewRavel([]int{2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if r.Size() != 24 {
		t.Fatalf("Size() = %d, want 24", r.Size())
	}
	seen := make(map[int]bool)
	var buf []int
	for a := 0; a < 2; a++ {
		for b := 0; b < 3; b++ {
			for c := 0; c < 4; c++ {
				idx := r.Index(a, b, c)
				if seen[idx] {
					t.Fatalf("Index(%d,%d,%d) = %d collides", a, b, c, idx)
				}
				seen[idx] = true
				buf = r.Unravel(idx, buf)
				if !slices.Equal(buf, []int{a, b, c}) {
					t.Errorf("Unravel(%d) = %v, want %v", idx, buf, []int{a, b, c})
				}
			}
		}
	}
	if r, _ := NewRavel(nil); r.Size() != 1 {
		t.Errorf("NewRavel(nil).Size() = %d, want 1", r.Size())
	}
}

func TestRavelLimit(t *testing.T) {
	tests := []struct {
		name string
		card []int
		ok   bool
	}{
		{"at limit", []int{1 << 12, 1 << 12}, true},
		{"over limit", []int{1 << 12, 1 << 12, 2}, false},
		{"overflow", []int{math.MaxInt / 2, math.MaxInt / 2, 4}, false},
		{"negative", []int{3, -1}, false},
		{"zero state", []int{0, math.MaxInt}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRavel(tt.card)
			if tt.ok && err != nil {
				t.Errorf("NewRavel(%v) error = %v", tt.card, err)
			}
			if !tt.ok && !errs.Is(err, errs.ErrCodeInvalidInput) {
				t.Errorf("NewRavel(%v) error = %v, want INVALID_INPUT", tt.card, err)
			}
		})
	}
}

func TestCountMatrixCellLimit(t *testing.T) {
	labels := []string{"A", "B", "C", "D"}
	rows := make([][]string, 250)
	for i := range rows {
		v := strconv.Itoa(i)
		rows[i] = []string{v, v, v, v}
	}
	d, err := dataset.NewCategorical(labels, rows)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewCountMatrix(d, 0, []int{1, 2, 3}); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("NewCountMatrix(250^4 cells) error = %v, want INVALID_INPUT", err)
	}
	if _, err := NewCountMatrix(d, 0, []int{1}); err != nil {
		t.Errorf("NewCountMatrix(250^2 cells) error = %v", err)
	}
}

func TestCountMatrixTotals(t *testing.T) {
	d := randomCategorical(t, 500, []int{2, 3, 4}, 7)
	m, err := NewCountMatrix(d, 0, []int{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if m.Configs() != 12 || m.States() != 2 {
		t.Fatalf("shape = %dx%d, want 12x2", m.Configs(), m.States())
	}
	sum := 0
	for j := 0; j < m.Configs(); j++ {
		row := 0
		for k := 0; k < m.States(); k++ {
			row += m.At(j, k)
		}
		if row != m.ConfigTotal(j) {
			t.Errorf("config %d: cells sum to %d, total %d", j, row, m.ConfigTotal(j))
		}
		sum += row
	}
	if sum != 500 || m.Total() != 500 {
		t.Errorf("sum = %d, Total() = %d, want 500", sum, m.Total())
	}
}

func TestCountMatrixErrors(t *testing.T) {
	d := randomCategorical(t, 10, []int{2, 2}, 1)
	tests := []struct {
		name    string
		x       int
		parents []int
	}{
		{"variable out of range", 5, nil},
		{"parent out of range", 0, []int{9}},
		{"variable as own parent", 0, []int{0}},
		{"duplicate parent", 0, []int{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCountMatrix(d, tt.x, tt.parents)
			if !errs.Is(err, errs.ErrCodeInvalidInput) {
				t.Errorf("NewCountMatrix() error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestMarginalize(t *testing.T) {
	d := randomCategorical(t, 300, []int{3, 2, 4, 2}, 11)
	full, err := NewCountMatrix(d, 0, []int{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	for pos := 0; pos < 3; pos++ {
		got := full.Marginalize(pos)
		want, _ := NewCountMatrix(d, 0, slices.Delete([]int{1, 2, 3}, pos, pos+1))
		if !slices.Equal(got.Parents, want.Parents) {
			t.Fatalf("Marginalize(%d).Parents = %v, want %v", pos, got.Parents, want.Parents)
		}
		for j := 0; j < want.Configs(); j++ {
			for k := 0; k < want.States(); k++ {
				if got.At(j, k) != want.At(j, k) {
					t.Errorf("Marginalize(%d).At(%d,%d) = %d, want %d", pos, j, k, got.At(j, k), want.At(j, k))
				}
			}
		}
	}
}

func TestLogLikelihood(t *testing.T) {
	// X = a,a,b,b with no parents: 4·log(1/2).
	d, err := dataset.NewCategorical([]string{"X"}, [][]string{{"a"}, {"a"}, {"b"}, {"b"}})
	if err != nil {
		t.Fatal(err)
	}
	m, _ := NewCountMatrix(d, 0, nil)
	if got, want := m.LogLikelihood(0), 4*math.Log(0.5); math.Abs(got-want) > 1e-12 {
		t.Errorf("LogLikelihood(0) = %v, want %v", got, want)
	}
	// Pseudo-counts of 1 with counts 2,2: θ = 3/6.
	if got, want := m.LogLikelihood(1), 4*math.Log(0.5); math.Abs(got-want) > 1e-12 {
		t.Errorf("LogLikelihood(1) = %v, want %v", got, want)
	}
	cond := m.Conditional(1)
	if len(cond) != 1 || math.Abs(cond[0][0]-0.5) > 1e-12 {
		t.Errorf("Conditional(1) = %v, want [[0.5 0.5]]", cond)
	}
}

func TestCountCacheDerives(t *testing.T) {
	d := randomCategorical(t, 200, []int{2, 3, 2, 2}, 3)
	c := NewCountCache(d, 0)

	if _, err := c.Counts(0, []int{3, 1}); err != nil {
		t.Fatal(err)
	}
	if c.Scans() != 1 {
		t.Fatalf("Scans() = %d, want 1", c.Scans())
	}
	sub, err := c.Counts(0, []int{1})
	if err != nil {
		t.Fatal(err)
	}
	if c.Scans() != 1 {
		t.Errorf("Scans() = %d after subset lookup, want 1", c.Scans())
	}
	direct, _ := NewCountMatrix(d, 0, []int{1})
	for j := 0; j < direct.Configs(); j++ {
		for k := 0; k < direct.States(); k++ {
			if sub.At(j, k) != direct.At(j, k) {
				t.Errorf("derived At(%d,%d) = %d, want %d", j, k, sub.At(j, k), direct.At(j, k))
			}
		}
	}
	if _, err := c.Counts(2, []int{0}); err != nil {
		t.Fatal(err)
	}
	if c.Scans() != 2 {
		t.Errorf("Scans() = %d, want 2", c.Scans())
	}
}

func TestMoments(t *testing.T) {
	d, err := dataset.NewContinuous([]string{"X", "Y"}, [][]float64{{1, 2}, {2, 4}, {3, 6}})
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewMoments(d)
	if err != nil {
		t.Fatal(err)
	}
	if m.N != 3 || m.Mean[0] != 2 || m.Mean[1] != 4 {
		t.Errorf("N, Mean = %d, %v, want 3, [2 4]", m.N, m.Mean)
	}
	if got := m.Variance(0); math.Abs(got-1) > 1e-12 {
		t.Errorf("Variance(0) = %v, want 1", got)
	}
	if got := m.Cov.At(0, 1); math.Abs(got-2) > 1e-12 {
		t.Errorf("Cov(0,1) = %v, want 2", got)
	}
	corr, err := Correlation(m.Cov)
	if err != nil {
		t.Fatal(err)
	}
	if got := corr.At(0, 1); math.Abs(got-1) > 1e-12 {
		t.Errorf("corr(0,1) = %v, want 1", got)
	}

	one, _ := dataset.NewContinuous([]string{"X"}, [][]float64{{1}})
	if _, err := NewMoments(one); !errs.Is(err, errs.ErrCodeDegenerateInput) {
		t.Errorf("NewMoments(1 row) error = %v, want DEGENERATE_INPUT", err)
	}
	if _, err := Correlation(mat.NewSymDense(2, []float64{0, 0, 0, 1})); !errs.Is(err, errs.ErrCodeDegenerateInput) {
		t.Errorf("Correlation(zero variance) error = %v, want DEGENERATE_INPUT", err)
	}
}

func TestRidgeSolve(t *testing.T) {
	a := mat.NewSymDense(2, []float64{4, 1, 1, 3})
	b := mat.NewVecDense(2, []float64{1, 2})
	for _, s := range []Solver{SolverCholesky, SolverSVD} {
		x, err := Ridge{Solver: s}.Solve(a, b)
		if err != nil {
			t.Fatalf("%s: %v", s, err)
		}
		// [4 1; 1 3]⁻¹ [1 2] = [1/11, 7/11]
		if math.Abs(x.AtVec(0)-1.0/11) > 1e-9 || math.Abs(x.AtVec(1)-7.0/11) > 1e-9 {
			t.Errorf("%s: Solve() = %v, want [1/11 7/11]", s, mat.Formatted(x.T()))
		}
	}
}

func TestRidgeSingular(t *testing.T) {
	// Rank one: recoverable by regularization.
	a := mat.NewSymDense(2, []float64{1, 1, 1, 1})
	b := mat.NewVecDense(2, []float64{1, 1})
	if _, err := (Ridge{}).Solve(a, b); err != nil {
		t.Errorf("Solve(rank-deficient) error = %v, want recovery", err)
	}

	// Indefinite: no small ridge makes it positive definite.
	bad := mat.NewSymDense(2, []float64{1, 0, 0, -1})
	_, err := Ridge{}.Solve(bad, b)
	if !errs.Is(err, errs.ErrCodeSingularMatrix) {
		t.Fatalf("Solve(indefinite) error = %v, want SINGULAR_MATRIX", err)
	}
	var sm *errs.SingularMatrixError
	if !errors.As(err, &sm) || sm.Rows != 2 {
		t.Errorf("errors.As(SingularMatrixError) = %v, rows %v", sm != nil, sm)
	}

	inv, err := Ridge{Solver: SolverSVD}.Inverse(a)
	if err != nil {
		t.Fatal(err)
	}
	// Pseudo-inverse of [1 1; 1 1] is [1 1; 1 1]/4.
	if math.Abs(inv.At(0, 1)-0.25) > 1e-9 {
		t.Errorf("pinv(0,1) = %v, want 0.25", inv.At(0, 1))
	}
}

func TestRegularize(t *testing.T) {
	a := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	r := Regularize(a, 0.5)
	if r.At(0, 0) != 1.5 || a.At(0, 0) != 1 {
		t.Errorf("Regularize: got %v, original %v", r.At(0, 0), a.At(0, 0))
	}
}
