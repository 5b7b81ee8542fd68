package score

import (
	"github.com/matzehuels/causalhub/pkg/dataset"
	"github.com/matzehuels/causalhub/pkg/stats"
)

// CategoricalScorer scores categorical variables by their multinomial
// log-likelihood. Count matrices are shared through a [stats.CountCache],
// so a parent set whose superset was already counted costs no data pass.
type CategoricalScorer struct {
	opts   Options
	data   *dataset.Categorical
	counts *stats.CountCache
}

// NewCategorical creates a scorer over d.
func NewCategorical(d *dataset.Categorical, opts Options) (*CategoricalScorer, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &CategoricalScorer{
		opts:   opts,
		data:   d,
		counts: stats.NewCountCache(d, opts.MaxCells),
	}, nil
}

// Labels returns the dataset's variable labels.
func (s *CategoricalScorer) Labels() []string { return s.data.Labels() }

// Counts exposes the underlying count cache.
func (s *CategoricalScorer) Counts() *stats.CountCache { return s.counts }

// Local returns the penalized log-likelihood of x given parents.
func (s *CategoricalScorer) Local(x int, parents []int) (float64, error) {
	m, err := s.counts.Counts(x, parents)
	if err != nil {
		return 0, err
	}
	ll := m.LogLikelihood(s.opts.PseudoCount)
	k := (m.States() - 1) * m.Configs()
	return s.opts.penalize(ll, k, m.Total()), nil
}

// Params returns the free-parameter count of x given parents.
func (s *CategoricalScorer) Params(x int, parents []int) int {
	k := s.data.Cardinality(x) - 1
	for _, p := range parents {
		k *= s.data.Cardinality(p)
	}
	return k
}
