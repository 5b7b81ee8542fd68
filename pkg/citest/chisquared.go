package citest

import (
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/matzehuels/causalhub/pkg/dataset"
	errs "github.com/matzehuels/causalhub/pkg/errors"
	"github.com/matzehuels/causalhub/pkg/stats"
)

// ChiSquared is Pearson's χ² test of conditional independence for
// categorical data. Within each configuration of Z the observed X×Y table is
// compared against the product of its margins and the statistics are summed
// over the configurations that have observations. The degrees of freedom are
// (|X|−1)(|Y|−1)·Π|Z|, counting every configuration of Z whether or not it
// was observed.
type ChiSquared struct {
	data   *dataset.Categorical
	alpha  float64
	counts *stats.CountCache
}

// NewChiSquared creates a χ² test over d at significance level alpha (zero
// selects [DefaultAlpha]).
func NewChiSquared(d *dataset.Categorical, alpha float64) (*ChiSquared, error) {
	a, err := checkAlpha(alpha)
	if err != nil {
		return nil, err
	}
	return &ChiSquared{data: d, alpha: a, counts: stats.NewCountCache(d, 0)}, nil
}

// Labels returns the dataset's labels.
func (c *ChiSquared) Labels() []string { return c.data.Labels() }

// Test tests X ⊥ Y | Z.
func (c *ChiSquared) Test(x, y int, z []int) (Result, error) {
	if err := checkQuery(c.data.Columns(), x, y, z); err != nil {
		return Result{}, err
	}
	rx, ry := c.data.Cardinality(x), c.data.Cardinality(y)
	if rx < 2 || ry < 2 {
		return Result{}, errs.New(errs.ErrCodeDegenerateInput, "constant variable in test of %d and %d", x, y)
	}

	// Count X against (Z..., Y): the configuration index is zcfg·|Y| + y.
	// The cache sorts parents, so recover Y's position from the matrix.
	m, err := c.counts.Counts(x, append(append([]int(nil), z...), y))
	if err != nil {
		return Result{}, err
	}
	ypos := 0
	for i, p := range m.Parents {
		if p == y {
			ypos = i
		}
	}
	ravel := m.Ravel()

	stat := 0.0
	strata := 0
	multi := make([]int, 0, len(m.Parents))
	// Group configurations by their Z part.
	type stratum struct {
		obs   [][]int // [ystate][xstate]
		total int
	}
	groups := make(map[int]*stratum)
	zcard := make([]int, 0, len(m.Parents)-1)
	for i, p := range m.Parents {
		if i != ypos {
			zcard = append(zcard, c.data.Cardinality(p))
		}
	}
	zravel, err := stats.NewRavel(zcard)
	if err != nil {
		return Result{}, err
	}
	for j := 0; j < m.Configs(); j++ {
		if m.ConfigTotal(j) == 0 {
			continue
		}
		multi = ravel.Unravel(j, multi)
		ys := multi[ypos]
		zs := append(append([]int(nil), multi[:ypos]...), multi[ypos+1:]...)
		key := zravel.Index(zs...)
		s, ok := groups[key]
		if !ok {
			s = &stratum{obs: make([][]int, ry)}
			for k := range s.obs {
				s.obs[k] = make([]int, rx)
			}
			groups[key] = s
		}
		for k := 0; k < rx; k++ {
			s.obs[ys][k] += m.At(j, k)
		}
		s.total += m.ConfigTotal(j)
	}
	for _, s := range groups {
		rowSum := make([]int, ry)
		colSum := make([]int, rx)
		for a := range s.obs {
			for b, v := range s.obs[a] {
				rowSum[a] += v
				colSum[b] += v
			}
		}
		n := float64(s.total)
		for a := range s.obs {
			for b, v := range s.obs[a] {
				e := float64(rowSum[a]) * float64(colSum[b]) / n
				if e == 0 {
					continue
				}
				d := float64(v) - e
				stat += d * d / e
			}
		}
		strata++
	}
	if strata == 0 {
		return Result{}, errs.New(errs.ErrCodeDegenerateInput, "no observations in any stratum")
	}
	dof := float64((rx - 1) * (ry - 1) * zravel.Size())
	p := distuv.ChiSquared{K: dof}.Survival(stat)
	return decide(stat, dof, p, c.alpha), nil
}

func asCategorical(v any) (*dataset.Categorical, bool) {
	d, ok := v.(*dataset.Categorical)
	return d, ok
}
