package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/causalhub/pkg/dataset"
	errs "github.com/matzehuels/causalhub/pkg/errors"
)

// Moments are the sufficient statistics of a continuous dataset under a
// linear-Gaussian model: sample size, means and the unbiased sample
// covariance of every variable. Computed once, they serve every variable
// and parent set without another pass over the data.
type Moments struct {
	N    int
	Mean []float64
	Cov  *mat.SymDense
}

// NewMoments computes the moments of d. At least two observations are
// required.
func NewMoments(d *dataset.Continuous) (*Moments, error) {
	n, p := d.Rows(), d.Columns()
	if n < 2 {
		return nil, errs.New(errs.ErrCodeDegenerateInput, "need at least 2 observations, have %d", n)
	}
	x := mat.NewDense(n, p, nil)
	mean := make([]float64, p)
	for j := 0; j < p; j++ {
		col := d.Column(j)
		x.SetCol(j, col)
		mean[j] = stat.Mean(col, nil)
	}
	cov := mat.NewSymDense(p, nil)
	stat.CovarianceMatrix(cov, x, nil)
	return &Moments{N: n, Mean: mean, Cov: cov}, nil
}

// Variance returns the sample variance of variable i.
func (m *Moments) Variance(i int) float64 { return m.Cov.At(i, i) }

// Sub returns the covariance block of vars, in the given order.
func (m *Moments) Sub(vars []int) *mat.SymDense {
	out := mat.NewSymDense(len(vars), nil)
	for a, i := range vars {
		for b := a; b < len(vars); b++ {
			out.SetSym(a, b, m.Cov.At(i, vars[b]))
		}
	}
	return out
}

// Cross returns the column of covariances between vars and variable x.
func (m *Moments) Cross(vars []int, x int) *mat.VecDense {
	out := mat.NewVecDense(len(vars), nil)
	for a, i := range vars {
		out.SetVec(a, m.Cov.At(i, x))
	}
	return out
}

// Correlation converts a covariance block into a correlation matrix.
// Returns a DEGENERATE_INPUT coded error when a variance is not positive.
func Correlation(cov *mat.SymDense) (*mat.SymDense, error) {
	n := cov.SymmetricDim()
	sd := make([]float64, n)
	for i := range sd {
		v := cov.At(i, i)
		if !(v > 0) {
			return nil, errs.New(errs.ErrCodeDegenerateInput, "variable %d has zero variance", i)
		}
		sd[i] = math.Sqrt(v)
	}
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, cov.At(i, j)/(sd[i]*sd[j]))
		}
	}
	return out, nil
}

// Regularize returns a + ridge·I without modifying a.
func Regularize(a *mat.SymDense, ridge float64) *mat.SymDense {
	n := a.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	out.CopySym(a)
	if ridge == 0 {
		return out
	}
	for i := 0; i < n; i++ {
		out.SetSym(i, i, out.At(i, i)+ridge)
	}
	return out
}
