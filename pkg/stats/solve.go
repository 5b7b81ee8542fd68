package stats

import (
	"math"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/mat"

	errs "github.com/matzehuels/causalhub/pkg/errors"
)

// Solver selects how covariance systems are solved.
type Solver string

const (
	// SolverCholesky factorizes the (regularized) block. Default.
	SolverCholesky Solver = "cholesky"
	// SolverSVD uses a truncated pseudo-inverse, which never needs
	// regularization but is slower.
	SolverSVD Solver = "svd"
)

const (
	// maxCond is the largest condition number accepted from a factorization.
	maxCond = 1e12
	// ridgeStart and ridgeStop bound the escalating diagonal load, relative
	// to the mean variance of the block.
	ridgeStart = 1e-10
	ridgeStop  = 1e-4
)

// Ridge solves symmetric positive-definite systems built from covariance
// blocks. Lambda is always added to the diagonal. If the factorization
// still fails, a growing load from 1e-10 to 1e-4 times the mean diagonal is
// tried; a recovered solve is reported to Logger at warn level and a solve
// that cannot be recovered returns a SINGULAR_MATRIX coded error wrapping
// [errs.SingularMatrixError].
//
// The zero value is a Cholesky solver with no base regularization.
type Ridge struct {
	Lambda float64
	Solver Solver
	Logger *log.Logger
}

// Solve returns a⁻¹b.
func (r Ridge) Solve(a *mat.SymDense, b *mat.VecDense) (*mat.VecDense, error) {
	n := a.SymmetricDim()
	out := mat.NewVecDense(n, nil)
	if r.Solver == SolverSVD {
		if err := r.solveSVD(Regularize(a, r.Lambda), b, out); err != nil {
			return nil, err
		}
		return out, nil
	}
	chol, err := r.Factorize(a)
	if err != nil {
		return nil, err
	}
	if err := chol.SolveVecTo(out, b); err != nil {
		return nil, errs.Wrap(errs.ErrCodeSingularMatrix, err, "cholesky solve")
	}
	return out, nil
}

// Inverse returns a⁻¹.
func (r Ridge) Inverse(a *mat.SymDense) (*mat.SymDense, error) {
	n := a.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	if r.Solver == SolverSVD {
		var svd mat.SVD
		if !svd.Factorize(Regularize(a, r.Lambda), mat.SVDFull) {
			return nil, errs.Wrap(errs.ErrCodeSingularMatrix, &errs.SingularMatrixError{Rows: n}, "svd")
		}
		var u, v mat.Dense
		svd.UTo(&u)
		svd.VTo(&v)
		vals := svd.Values(nil)
		tol := pinvTolerance(vals, n)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				s := 0.0
				for k, sv := range vals {
					if sv > tol {
						s += v.At(i, k) * u.At(j, k) / sv
					}
				}
				out.SetSym(i, j, s)
			}
		}
		return out, nil
	}
	chol, err := r.Factorize(a)
	if err != nil {
		return nil, err
	}
	if err := chol.InverseTo(out); err != nil {
		return nil, errs.Wrap(errs.ErrCodeSingularMatrix, err, "cholesky inverse")
	}
	return out, nil
}

// Factorize returns the Cholesky factorization of a + λI, escalating λ as
// described on [Ridge].
func (r Ridge) Factorize(a *mat.SymDense) (*mat.Cholesky, error) {
	n := a.SymmetricDim()
	var chol mat.Cholesky
	if chol.Factorize(Regularize(a, r.Lambda)) && chol.Cond() < maxCond {
		return &chol, nil
	}

	scale := mat.Trace(a) / float64(n)
	if !(scale > 0) {
		scale = 1
	}
	ridge := 0.0
	for f := ridgeStart; f <= ridgeStop*1.0001; f *= 10 {
		ridge = r.Lambda + f*scale
		if chol.Factorize(Regularize(a, ridge)) && chol.Cond() < maxCond {
			if r.Logger != nil {
				r.Logger.Warn("singular covariance block regularized", "rows", n, "ridge", ridge)
			}
			return &chol, nil
		}
	}
	return nil, errs.Wrap(errs.ErrCodeSingularMatrix,
		&errs.SingularMatrixError{Rows: n, Ridge: ridge}, "cholesky of %dx%d block", n, n)
}

func (Ridge) solveSVD(a *mat.SymDense, b, dst *mat.VecDense) error {
	n := a.SymmetricDim()
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return errs.Wrap(errs.ErrCodeSingularMatrix, &errs.SingularMatrixError{Rows: n}, "svd")
	}
	vals := svd.Values(nil)
	rank := 0
	tol := pinvTolerance(vals, n)
	for _, v := range vals {
		if v > tol {
			rank++
		}
	}
	if rank == 0 {
		return errs.Wrap(errs.ErrCodeSingularMatrix, &errs.SingularMatrixError{Rows: n}, "zero matrix")
	}
	svd.SolveVecTo(dst, b, rank)
	return nil
}

func pinvTolerance(vals []float64, n int) float64 {
	if len(vals) == 0 {
		return 0
	}
	eps := math.Nextafter(1, 2) - 1
	return vals[0] * float64(n) * eps
}
