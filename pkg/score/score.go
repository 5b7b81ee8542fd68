// Package score implements decomposable scores for structure learning.
//
// A [Scorer] assigns a local score to a variable given a parent set; the
// score of a graph is the sum of its local scores, so a move that changes
// one variable's parents only changes that variable's term. Six criteria
// are available for both data families:
//
//   - [LogLikelihood]: the maximized log-likelihood.
//   - [AIC]: log-likelihood minus K·k.
//   - [AICc]: log-likelihood minus K·(n+k)/max(n−k−2, 1).
//   - [BIC]: log-likelihood minus K·½·log(n)·k.
//   - [BICc]: log-likelihood minus K·½·log(n)·n·k/max(n−k−2, 1).
//   - [EBIC]: (1−1/n)·log-likelihood minus K·½·log(n)·k.
//
// where k is the number of free parameters of the local model and K the
// penalty coefficient (1 unless set). For a categorical variable with r
// states and parents of cardinalities q₁…qₘ, k = (r−1)·q₁·…·qₘ. For a
// linear-Gaussian variable with m parents, k = m+1 (the coefficients plus
// the residual variance).
//
// [Cache] memoizes local scores for the search engine.
package score

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/matzehuels/causalhub/pkg/dag"
	"github.com/matzehuels/causalhub/pkg/dataset"
	errs "github.com/matzehuels/causalhub/pkg/errors"
	"github.com/matzehuels/causalhub/pkg/stats"
)

// Criterion selects the penalty applied to the log-likelihood.
type Criterion string

const (
	LogLikelihood Criterion = "ll"
	AIC           Criterion = "aic"
	AICc          Criterion = "aicc"
	BIC           Criterion = "bic"
	BICc          Criterion = "bicc"
	EBIC          Criterion = "ebic"
)

// Criteria lists every criterion in the order shown to users.
func Criteria() []Criterion {
	return []Criterion{LogLikelihood, AIC, AICc, BIC, BICc, EBIC}
}

// Family names the data family a scorer is built for.
type Family string

const (
	Categorical Family = "categorical"
	Gaussian    Family = "gaussian"
)

// ParseCriterion accepts the names of [Criteria] in any case, plus the long
// name "loglikelihood". An empty string selects BIC.
func ParseCriterion(s string) (Criterion, error) {
	switch strings.ToLower(s) {
	case "ll", "loglikelihood", "log-likelihood":
		return LogLikelihood, nil
	case "":
		return BIC, nil
	}
	c := Criterion(strings.ToLower(s))
	if slices.Contains(Criteria(), c) {
		return c, nil
	}
	return "", errs.New(errs.ErrCodeInvalidInput, "unknown score %q (want one of %v)", s, Criteria())
}

// ParseFamily accepts "categorical" and "gaussian" (or "discrete" and
// "continuous").
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(s) {
	case "categorical", "discrete":
		return Categorical, nil
	case "gaussian", "continuous":
		return Gaussian, nil
	}
	return "", errs.New(errs.ErrCodeInvalidInput, "unknown family %q (want categorical or gaussian)", s)
}

// Options configure a scorer.
type Options struct {
	Criterion Criterion
	// K multiplies the criterion's penalty. Zero means 1.
	K float64
	// PseudoCount is added to every cell of a categorical count matrix
	// when estimating conditional probabilities.
	PseudoCount float64
	// Ridge solves the normal equations of Gaussian scores.
	Ridge stats.Ridge
	// MaxCells bounds the count matrices kept in memory; zero selects
	// [stats.DefaultMaxCells].
	MaxCells int
}

func (o Options) validate() error {
	if !slices.Contains(Criteria(), o.Criterion) {
		return errs.New(errs.ErrCodeInvalidInput, "unknown criterion %q", o.Criterion)
	}
	if o.K < 0 || math.IsNaN(o.K) {
		return errs.New(errs.ErrCodeInvalidInput, "penalty coefficient must be non-negative, got %v", o.K)
	}
	if o.PseudoCount < 0 || math.IsNaN(o.PseudoCount) {
		return errs.New(errs.ErrCodeInvalidInput, "pseudo-count must be non-negative, got %v", o.PseudoCount)
	}
	if o.Ridge.Lambda < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "ridge must be non-negative, got %v", o.Ridge.Lambda)
	}
	return nil
}

// penalize returns the criterion's score of a local model with
// log-likelihood ll and k free parameters fitted to n observations.
func (o Options) penalize(ll float64, k, n int) float64 {
	c := o.K
	if c == 0 {
		c = 1
	}
	fk, fn := float64(k), float64(n)
	switch o.Criterion {
	case AIC:
		return ll - c*fk
	case AICc:
		return ll - c*(fn+fk)/math.Max(fn-fk-2, 1)
	case BIC:
		return ll - c*0.5*math.Log(fn)*fk
	case BICc:
		return ll - c*0.5*math.Log(fn)*fn*fk/math.Max(fn-fk-2, 1)
	case EBIC:
		return (1-1/fn)*ll - c*0.5*math.Log(fn)*fk
	}
	return ll
}

// Scorer computes local scores. Implementations are safe for concurrent
// use.
type Scorer interface {
	// Labels returns the sorted variable labels; variable i is vertex i of
	// any graph scored.
	Labels() []string
	// Local returns the score of x given parents. The order of parents does
	// not matter.
	Local(x int, parents []int) (float64, error)
}

// New builds the scorer for d's family.
func New(d dataset.Dataset, opts Options) (Scorer, error) {
	switch d := d.(type) {
	case *dataset.Categorical:
		return NewCategorical(d, opts)
	case *dataset.Continuous:
		return NewGaussian(d, opts)
	}
	return nil, errs.New(errs.ErrCodeUnsupported, "no scorer for dataset type %T", d)
}

// Total returns the score of g, the sum of the local scores of its
// vertices given their parents in g.
func Total(s Scorer, g dag.DirectedGraph) (float64, error) {
	locals, err := Locals(s, g)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, v := range locals {
		total += v
	}
	return total, nil
}

// Locals returns the local score of every vertex of g.
func Locals(s Scorer, g dag.DirectedGraph) ([]float64, error) {
	if err := CheckLabels(s, g); err != nil {
		return nil, err
	}
	out := make([]float64, g.Order())
	for x := range out {
		v, err := s.Local(x, g.Parents(x))
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", g.Label(x), err)
		}
		out[x] = v
	}
	return out, nil
}

// CheckLabels reports an INVALID_INPUT coded error unless g has exactly
// the scorer's variables.
func CheckLabels(s Scorer, g dag.Graph) error {
	if !slices.Equal(s.Labels(), g.Labels()) {
		return errs.New(errs.ErrCodeInvalidInput, "graph variables %v do not match data variables %v", g.Labels(), s.Labels())
	}
	return nil
}
