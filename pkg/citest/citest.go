// Package citest implements conditional independence tests.
//
// A [Test] decides whether variables X and Y are independent given a
// conditioning set Z. Each test reports its statistic, degrees of freedom
// and p-value; X and Y are declared independent when the p-value is at
// least the test's significance level.
//
//   - [ChiSquared]: Pearson's χ² over the strata of Z, for categorical data.
//   - [FisherZ]: Fisher's z-transform of the partial correlation.
//   - [StudentsT]: the t-statistic of the partial correlation, which is
//     better calibrated for small samples.
//   - [Oracle]: d-separation in a known graph, for validating
//     constraint-based algorithms.
//
// Inputs that cannot support a decision (a constant variable, an empty
// sample, no residual degrees of freedom) fail with a DEGENERATE_INPUT
// coded error instead of returning one.
package citest

import (
	"fmt"

	errs "github.com/matzehuels/causalhub/pkg/errors"
	"github.com/matzehuels/causalhub/pkg/stats"
)

// DefaultAlpha is the significance level used when none is given.
const DefaultAlpha = 0.05

// Result is the outcome of one test.
type Result struct {
	Statistic   float64
	PValue      float64
	DoF         float64
	Independent bool
}

func (r Result) String() string {
	verdict := "dependent"
	if r.Independent {
		verdict = "independent"
	}
	return fmt.Sprintf("%s (stat=%.4g dof=%g p=%.4g)", verdict, r.Statistic, r.DoF, r.PValue)
}

// Test is a conditional independence test over a fixed dataset or graph.
type Test interface {
	// Labels returns the sorted variable labels.
	Labels() []string
	// Test tests X ⊥ Y | Z.
	Test(x, y int, z []int) (Result, error)
}

func decide(stat, dof, p, alpha float64) Result {
	return Result{Statistic: stat, DoF: dof, PValue: p, Independent: p >= alpha}
}

func checkAlpha(alpha float64) (float64, error) {
	if alpha == 0 {
		return DefaultAlpha, nil
	}
	if err := errs.ValidateProbability("significance level", alpha); err != nil {
		return 0, err
	}
	return alpha, nil
}

func checkQuery(columns, x, y int, z []int) error {
	if x == y {
		return errs.New(errs.ErrCodeInvalidInput, "cannot test variable %d against itself", x)
	}
	return stats.CheckVariables(columns, x, append([]int{y}, z...))
}

// Option configures a test built by [New].
type Option func(*options)

type options struct {
	ridge stats.Ridge
}

// UseRidge sets the solver the partial-correlation tests use on the
// conditioning block. Its Logger receives a warning whenever a singular
// block is regularized. The χ² test ignores it.
func UseRidge(r stats.Ridge) Option {
	return func(o *options) { o.ridge = r }
}

// New returns the test registered under name ("chi2", "fisherz",
// "studentst"), built over data of the matching family.
func New(name string, data any, alpha float64, opts ...Option) (Test, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	switch name {
	case "chi2", "chisquared", "chi-squared":
		d, ok := asCategorical(data)
		if !ok {
			break
		}
		return NewChiSquared(d, alpha)
	case "fisherz", "fisher-z":
		d, ok := asContinuous(data)
		if !ok {
			break
		}
		t, err := NewFisherZ(d, alpha)
		if err != nil {
			return nil, err
		}
		return t.WithRidge(o.ridge), nil
	case "studentst", "t", "students-t":
		d, ok := asContinuous(data)
		if !ok {
			break
		}
		t, err := NewStudentsT(d, alpha)
		if err != nil {
			return nil, err
		}
		return t.WithRidge(o.ridge), nil
	default:
		return nil, errs.New(errs.ErrCodeInvalidInput, "unknown test %q (want %v)", name, Names())
	}
	return nil, errs.New(errs.ErrCodeInvalidInput, "test %q does not apply to %T", name, data)
}

// Names lists the names accepted by [New].
func Names() []string {
	return []string{"chi2", "fisherz", "studentst"}
}
