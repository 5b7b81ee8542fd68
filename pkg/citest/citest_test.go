package citest

import (
	"bytes"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causalhub/pkg/dag"
	"github.com/matzehuels/causalhub/pkg/dataset"
	errs "github.com/matzehuels/causalhub/pkg/errors"
	"github.com/matzehuels/causalhub/pkg/stats"
)

// gaussian returns n draws of (X, Y, Z) with corr(X, Y) = rho and Z
// independent of both.
func gaussian(t *testing.T, n int, rho float64, seed uint64) *dataset.Continuous {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
	values := make([][]float64, n)
	for i := range values {
		x := rng.NormFloat64()
		y := rho*x + math.Sqrt(1-rho*rho)*rng.NormFloat64()
		values[i] = []float64{x, y, rng.NormFloat64()}
	}
	d, err := dataset.NewContinuous([]string{"X", "Y", "Z"}, values)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// chain returns n draws of X → M → Y with strong linear links.
func chain(t *testing.T, n int, seed uint64) *dataset.Continuous {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
	values := make([][]float64, n)
	for i := range values {
		x := rng.NormFloat64()
		m := 0.8*x + 0.6*rng.NormFloat64()
		y := 0.8*m + 0.6*rng.NormFloat64()
		values[i] = []float64{m, x, y}
	}
	d, err := dataset.NewContinuous([]string{"M", "X", "Y"}, values)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestFisherZ(t *testing.T) {
	d := gaussian(t, 5000, 0.9, 42)
	fz, err := NewFisherZ(d, 0.05)
	if err != nil {
		t.Fatal(err)
	}
	res, err := fz.Test(0, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Independent {
		t.Errorf("Test(X, Y) with rho=0.9 = %v, want dependent", res)
	}
	if res.DoF != 4997 {
		t.Errorf("DoF = %v, want 4997", res.DoF)
	}
}

// Under independence a level-α test rejects in about α of the samples.
func TestFisherZRejectionRate(t *testing.T) {
	const (
		alpha = 0.05
		runs  = 200
	)
	rejected := 0
	for seed := uint64(1); seed <= runs; seed++ {
		fz, err := NewFisherZ(gaussian(t, 500, 0, seed), alpha)
		if err != nil {
			t.Fatal(err)
		}
		res, err := fz.Test(0, 1, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Independent {
			rejected++
		}
	}
	// Binomial(200, 0.05): mean 10, sd about 3.1.
	if rejected > 25 {
		t.Errorf("rejected %d of %d independent samples at alpha=%v, want about %d", rejected, runs, alpha, int(alpha*runs))
	}
}

func TestPartialCorrelationChain(t *testing.T) {
	d := chain(t, 3000, 7)
	fz, _ := NewFisherZ(d, 0.01)
	st, _ := NewStudentsT(d, 0.01)
	for _, tc := range []Test{fz, st} {
		marginal, err := tc.Test(1, 2, nil)
		if err != nil {
			t.Fatal(err)
		}
		if marginal.Independent {
			t.Errorf("%T: X ⊥ Y = %v, want dependent", tc, marginal)
		}
		given, err := tc.Test(1, 2, []int{0})
		if err != nil {
			t.Fatal(err)
		}
		if !given.Independent {
			t.Errorf("%T: X ⊥ Y | M = %v, want independent", tc, given)
		}
	}
}

// collinear returns (A, B, C) with C an exact copy of A.
func collinear(t *testing.T, n int) *dataset.Continuous {
	t.Helper()
	rng := rand.New(rand.NewPCG(7, 11))
	values := make([][]float64, n)
	for i := range values {
		a := rng.NormFloat64()
		values[i] = []float64{a, rng.NormFloat64(), a}
	}
	d, err := dataset.NewContinuous([]string{"A", "B", "C"}, values)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestUseRidgeLogsRecovery(t *testing.T) {
	for _, name := range []string{"fisherz", "studentst"} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			test, err := New(name, collinear(t, 300), 0, UseRidge(stats.Ridge{Logger: log.New(&buf)}))
			if err != nil {
				t.Fatal(err)
			}
			if _, err := test.Test(0, 1, []int{2}); err != nil {
				t.Fatalf("Test(A, B | C) error = %v", err)
			}
			if !strings.Contains(buf.String(), "singular covariance block regularized") {
				t.Errorf("log = %q, want a regularization warning", buf.String())
			}
		})
	}
}

func TestStudentsTMatchesFisherZ(t *testing.T) {
	d := gaussian(t, 2000, 0.3, 3)
	fz, _ := NewFisherZ(d, 0)
	st, _ := NewStudentsT(d, 0)
	a, _ := fz.Test(0, 1, []int{2})
	b, _ := st.Test(0, 1, []int{2})
	if a.Independent != b.Independent {
		t.Errorf("FisherZ = %v, StudentsT = %v, want same decision", a, b)
	}
	if b.DoF != 1997 {
		t.Errorf("StudentsT DoF = %v, want 1997", b.DoF)
	}
}

func TestDegenerate(t *testing.T) {
	constant, _ := dataset.NewContinuous([]string{"C", "X"}, [][]float64{{1, 1}, {1, 2}, {1, 3}, {1, 5}, {1, 4}})
	small, _ := dataset.NewContinuous([]string{"A", "B", "C"}, [][]float64{{1, 2, 0}, {2, 1, 1}, {3, 5, 0}, {4, 3, 2}})

	fz, _ := NewFisherZ(constant, 0)
	if _, err := fz.Test(0, 1, nil); !errs.Is(err, errs.ErrCodeDegenerateInput) {
		t.Errorf("FisherZ(constant) error = %v, want DEGENERATE_INPUT", err)
	}
	fz, _ = NewFisherZ(small, 0)
	if _, err := fz.Test(0, 1, []int{2}); !errs.Is(err, errs.ErrCodeDegenerateInput) {
		t.Errorf("FisherZ(n=4, |z|=1) error = %v, want DEGENERATE_INPUT", err)
	}
	st, _ := NewStudentsT(small, 0)
	if _, err := st.Test(0, 1, []int{2}); err != nil {
		t.Errorf("StudentsT(n=4, |z|=1) error = %v, want a result", err)
	}

	cat, _ := dataset.NewCategorical([]string{"C", "X"}, [][]string{{"a", "x"}, {"a", "y"}})
	chi, _ := NewChiSquared(cat, 0)
	if _, err := chi.Test(0, 1, nil); !errs.Is(err, errs.ErrCodeDegenerateInput) {
		t.Errorf("ChiSquared(constant) error = %v, want DEGENERATE_INPUT", err)
	}
}

func TestInvalidQueries(t *testing.T) {
	d := gaussian(t, 50, 0, 1)
	fz, _ := NewFisherZ(d, 0)
	tests := []struct {
		name string
		x, y int
		z    []int
	}{
		{"same variable", 0, 0, nil},
		{"out of range", 0, 5, nil},
		{"x in z", 0, 1, []int{0}},
	}
	for _, tt := range tests {
		if _, err := fz.Test(tt.x, tt.y, tt.z); !errs.Is(err, errs.ErrCodeInvalidInput) {
			t.Errorf("%s: error = %v, want INVALID_INPUT", tt.name, err)
		}
	}
	if _, err := NewFisherZ(d, 1.5); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("NewFisherZ(alpha=1.5) error = %v, want INVALID_INPUT", err)
	}
}

func TestChiSquared(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	records := make([][]string, 2000)
	for i := range records {
		z := rng.IntN(2)
		// X and Y both copy Z most of the time: dependent, but
		// independent given Z.
		x, y := z, z
		if rng.Float64() < 0.3 {
			x = rng.IntN(2)
		}
		if rng.Float64() < 0.3 {
			y = rng.IntN(2)
		}
		records[i] = []string{string(rune('0' + x)), string(rune('0' + y)), string(rune('0' + z))}
	}
	d, err := dataset.NewCategorical([]string{"X", "Y", "Z"}, records)
	if err != nil {
		t.Fatal(err)
	}
	chi, _ := NewChiSquared(d, 0.01)

	marginal, err := chi.Test(0, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if marginal.Independent || marginal.DoF != 1 {
		t.Errorf("Test(X, Y) = %v, want dependent with 1 dof", marginal)
	}
	given, err := chi.Test(0, 1, []int{2})
	if err != nil {
		t.Fatal(err)
	}
	if !given.Independent || given.DoF != 2 {
		t.Errorf("Test(X, Y | Z) = %v, want independent with 2 dof", given)
	}
	// Symmetric in X and Y.
	swapped, _ := chi.Test(1, 0, []int{2})
	if math.Abs(swapped.Statistic-given.Statistic) > 1e-9 {
		t.Errorf("Test(Y, X | Z).Statistic = %v, want %v", swapped.Statistic, given.Statistic)
	}
}

func TestChiSquaredUnobservedStrata(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	records := make([][]string, 500)
	for i := range records {
		// Z1 always equals Z2, so two of the four configurations of Z
		// never occur.
		z := string(rune('0' + rng.IntN(2)))
		records[i] = []string{string(rune('0' + rng.IntN(2))), string(rune('0' + rng.IntN(2))), z, z}
	}
	d, err := dataset.NewCategorical([]string{"X", "Y", "Z1", "Z2"}, records)
	if err != nil {
		t.Fatal(err)
	}
	chi, _ := NewChiSquared(d, 0.01)
	res, err := chi.Test(0, 1, []int{2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if res.DoF != 4 {
		t.Errorf("Test(X, Y | Z1, Z2).DoF = %g, want 4 counting unobserved configurations", res.DoF)
	}
}

func TestOracle(t *testing.T) {
	g, _ := dag.FromEdges([]string{"A", "B", "C"}, [][2]string{{"A", "C"}, {"B", "C"}})
	o := NewOracle(g)
	res, _ := o.Test(0, 1, nil)
	if !res.Independent || res.PValue != 1 {
		t.Errorf("Test(A, B) = %v, want independent", res)
	}
	res, _ = o.Test(0, 1, []int{2})
	if res.Independent {
		t.Errorf("Test(A, B | C) = %v, want dependent", res)
	}
}

func TestNew(t *testing.T) {
	cont := gaussian(t, 20, 0, 1)
	if _, err := New("fisherz", cont, 0); err != nil {
		t.Errorf("New(fisherz) error = %v", err)
	}
	if _, err := New("chi2", cont, 0); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("New(chi2, continuous) error = %v, want INVALID_INPUT", err)
	}
	if _, err := New("gsq", cont, 0); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("New(gsq) error = %v, want INVALID_INPUT", err)
	}
}
