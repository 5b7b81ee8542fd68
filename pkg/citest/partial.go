package citest

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/matzehuels/causalhub/pkg/dataset"
	errs "github.com/matzehuels/causalhub/pkg/errors"
	"github.com/matzehuels/causalhub/pkg/stats"
)

// maxCorrelation keeps |r| away from 1 so the transforms stay finite.
const maxCorrelation = 1 - 1e-12

// partial computes partial correlations from the moments of a continuous
// dataset. The precision matrix of {X, Y} ∪ Z is obtained through a
// regularized solve; r = −P₀₁ / √(P₀₀ P₁₁).
type partial struct {
	data    *dataset.Continuous
	alpha   float64
	moments *stats.Moments
	ridge   stats.Ridge
}

func newPartial(d *dataset.Continuous, alpha float64) (partial, error) {
	a, err := checkAlpha(alpha)
	if err != nil {
		return partial{}, err
	}
	m, err := stats.NewMoments(d)
	if err != nil {
		return partial{}, err
	}
	return partial{data: d, alpha: a, moments: m}, nil
}

// Labels returns the dataset's labels.
func (p *partial) Labels() []string { return p.data.Labels() }

// correlation returns the partial correlation of x and y given z and the
// residual sample size n − |z|.
func (p *partial) correlation(x, y int, z []int) (float64, int, error) {
	if err := checkQuery(p.data.Columns(), x, y, z); err != nil {
		return 0, 0, err
	}
	vars := append([]int{x, y}, z...)
	corr, err := stats.Correlation(p.moments.Sub(vars))
	if err != nil {
		return 0, 0, err
	}
	var r float64
	if len(z) == 0 {
		r = corr.At(0, 1)
	} else {
		prec, err := p.ridge.Inverse(corr)
		if err != nil {
			return 0, 0, err
		}
		r = -prec.At(0, 1) / math.Sqrt(prec.At(0, 0)*prec.At(1, 1))
	}
	if math.IsNaN(r) {
		return 0, 0, errs.New(errs.ErrCodeDegenerateInput, "partial correlation undefined")
	}
	r = math.Max(-maxCorrelation, math.Min(maxCorrelation, r))
	return r, p.moments.N - len(z), nil
}

// FisherZ tests partial correlation through Fisher's z-transform:
// √(n − |Z| − 3) · atanh(r) is standard normal under independence.
type FisherZ struct {
	partial
}

// NewFisherZ creates a Fisher-z test over d at significance level alpha
// (zero selects [DefaultAlpha]).
func NewFisherZ(d *dataset.Continuous, alpha float64) (*FisherZ, error) {
	p, err := newPartial(d, alpha)
	if err != nil {
		return nil, err
	}
	return &FisherZ{p}, nil
}

// WithRidge sets the solver used to invert correlation blocks.
func (f *FisherZ) WithRidge(r stats.Ridge) *FisherZ {
	f.ridge = r
	return f
}

// Test tests X ⊥ Y | Z.
func (f *FisherZ) Test(x, y int, z []int) (Result, error) {
	r, n, err := f.correlation(x, y, z)
	if err != nil {
		return Result{}, err
	}
	dof := n - 3
	if dof <= 0 {
		return Result{}, errs.New(errs.ErrCodeDegenerateInput,
			"%d observations leave no degrees of freedom with %d conditioning variables", f.moments.N, len(z))
	}
	stat := math.Sqrt(float64(dof)) * math.Atanh(r)
	p := 2 * distuv.UnitNormal.Survival(math.Abs(stat))
	return decide(stat, float64(dof), p, f.alpha), nil
}

// StudentsT tests partial correlation through r·√(ν / (1 − r²)), which
// follows a Student's t distribution with ν = n − |Z| − 2 degrees of
// freedom under independence.
type StudentsT struct {
	partial
}

// NewStudentsT creates a Student's t test over d at significance level
// alpha (zero selects [DefaultAlpha]).
func NewStudentsT(d *dataset.Continuous, alpha float64) (*StudentsT, error) {
	p, err := newPartial(d, alpha)
	if err != nil {
		return nil, err
	}
	return &StudentsT{p}, nil
}

// WithRidge sets the solver used to invert correlation blocks.
func (s *StudentsT) WithRidge(r stats.Ridge) *StudentsT {
	s.ridge = r
	return s
}

// Test tests X ⊥ Y | Z.
func (s *StudentsT) Test(x, y int, z []int) (Result, error) {
	r, n, err := s.correlation(x, y, z)
	if err != nil {
		return Result{}, err
	}
	nu := n - 2
	if nu <= 0 {
		return Result{}, errs.New(errs.ErrCodeDegenerateInput,
			"%d observations leave no degrees of freedom with %d conditioning variables", s.moments.N, len(z))
	}
	stat := r * math.Sqrt(float64(nu)/(1-r*r))
	p := 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(nu)}.Survival(math.Abs(stat))
	return decide(stat, float64(nu), p, s.alpha), nil
}

func asContinuous(v any) (*dataset.Continuous, bool) {
	d, ok := v.(*dataset.Continuous)
	return d, ok
}
