package score

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/causalhub/pkg/dataset"
	errs "github.com/matzehuels/causalhub/pkg/errors"
	"github.com/matzehuels/causalhub/pkg/stats"
)

// varianceFloor bounds the residual variance from below, relative to the
// variance of the variable, so a perfect fit yields a finite score.
const varianceFloor = 1e-12

// GaussianScorer scores continuous variables under a linear-Gaussian
// model: x is regressed on its parents with an intercept and the score is
// the maximized likelihood of the residuals.
type GaussianScorer struct {
	opts    Options
	data    *dataset.Continuous
	moments *stats.Moments
}

// NewGaussian creates a scorer over d. The moments of d are computed once
// here; d needs at least two observations.
func NewGaussian(d *dataset.Continuous, opts Options) (*GaussianScorer, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	m, err := stats.NewMoments(d)
	if err != nil {
		return nil, err
	}
	return &GaussianScorer{opts: opts, data: d, moments: m}, nil
}

// Labels returns the dataset's variable labels.
func (s *GaussianScorer) Labels() []string { return s.data.Labels() }

// Local returns the penalized log-likelihood of x given parents. A
// constant x is a DEGENERATE_INPUT coded error.
func (s *GaussianScorer) Local(x int, parents []int) (float64, error) {
	if err := stats.CheckVariables(s.data.Columns(), x, parents); err != nil {
		return 0, err
	}
	v, err := s.ResidualVariance(x, parents)
	if err != nil {
		return 0, err
	}
	n := float64(s.moments.N)
	ll := -0.5 * n * (math.Log(2*math.Pi*v) + 1)
	return s.opts.penalize(ll, len(parents)+1, s.moments.N), nil
}

// ResidualVariance returns the maximum-likelihood variance of the
// residuals of x regressed on parents: (n−1)/n · (S_xx − S_xP S_PP⁻¹ S_Px).
func (s *GaussianScorer) ResidualVariance(x int, parents []int) (float64, error) {
	sxx := s.moments.Variance(x)
	if !(sxx > 0) {
		return 0, errs.New(errs.ErrCodeDegenerateInput, "variable %q has zero variance", s.data.Labels()[x])
	}
	resid := sxx
	if len(parents) > 0 {
		cross := s.moments.Cross(parents, x)
		beta, err := s.opts.Ridge.Solve(s.moments.Sub(parents), cross)
		if err != nil {
			return 0, err
		}
		resid -= mat.Dot(cross, beta)
	}
	resid = max(resid, varianceFloor*sxx)
	n := float64(s.moments.N)
	return resid * (n - 1) / n, nil
}
