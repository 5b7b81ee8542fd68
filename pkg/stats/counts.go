// Package stats computes the sufficient statistics that scores and
// independence tests are built from.
//
// Categorical data is summarized by a [CountMatrix]: the joint counts of a
// variable and a conditioning set, indexed by parent configuration and
// state. Continuous data is summarized by [Moments]: the sample mean and
// covariance, of which any variable subset's statistics are a sub-block.
// Linear-Gaussian models solve against covariance blocks through [Ridge],
// which regularizes near-singular blocks instead of failing outright.
package stats

import (
	"math"
	"slices"

	"github.com/matzehuels/causalhub/pkg/dataset"
	errs "github.com/matzehuels/causalhub/pkg/errors"
)

// Ravel maps a multi-index over variables with the given cardinalities to
// a flat row-major index: the last variable varies fastest.
type Ravel struct {
	card   []int
	stride []int
	size   int
}

// MaxCells bounds the number of configurations of a [Ravel] and the number
// of cells of a [CountMatrix].
const MaxCells = 1 << 24

// NewRavel creates the index for the given cardinalities. An empty list
// yields a single configuration. More than [MaxCells] configurations fail
// with an INVALID_INPUT coded error.
func NewRavel(card []int) (Ravel, error) {
	size := 1
	for i, c := range card {
		if c < 0 {
			return Ravel{}, errs.New(errs.ErrCodeInvalidInput, "negative cardinality %d at position %d", c, i)
		}
		if c > 0 && size > MaxCells/c {
			return Ravel{}, errs.New(errs.ErrCodeInvalidInput,
				"%d variables with cardinalities %v exceed %d configurations", len(card), card, MaxCells)
		}
		size *= c
	}
	return newRavel(card), nil
}

func newRavel(card []int) Ravel {
	r := Ravel{card: slices.Clone(card), stride: make([]int, len(card)), size: 1}
	for i := len(card) - 1; i >= 0; i-- {
		r.stride[i] = r.size
		r.size *= card[i]
	}
	return r
}

// Size returns the number of configurations.
func (r Ravel) Size() int { return r.size }

// Index returns the flat index of states.
func (r Ravel) Index(states ...int) int {
	idx := 0
	for i, s := range states {
		idx += r.stride[i] * s
	}
	return idx
}

// Unravel writes the multi-index of idx into dst and returns it.
func (r Ravel) Unravel(idx int, dst []int) []int {
	dst = dst[:0]
	for i := range r.card {
		dst = append(dst, idx/r.stride[i]%r.card[i])
	}
	return dst
}

// CountMatrix holds the joint counts of variable X with a set of parents:
// At(j, k) is the number of observations with parent configuration j and X
// in state k. Configurations follow [Ravel] over the parents in the order
// they were given.
type CountMatrix struct {
	X       int
	Parents []int

	ravel  Ravel
	states int
	counts []int
	totals []int
	n      int
}

// NewCountMatrix counts X against parents in one pass over d.
func NewCountMatrix(d *dataset.Categorical, x int, parents []int) (*CountMatrix, error) {
	if err := CheckVariables(d.Columns(), x, parents); err != nil {
		return nil, err
	}
	card := make([]int, len(parents))
	for i, p := range parents {
		card[i] = d.Cardinality(p)
	}
	ravel, err := NewRavel(card)
	if err != nil {
		return nil, err
	}
	states := d.Cardinality(x)
	if states > 0 && ravel.Size() > MaxCells/states {
		return nil, errs.New(errs.ErrCodeInvalidInput,
			"%d configurations × %d states exceed %d cells", ravel.Size(), states, MaxCells)
	}
	m := newCountMatrix(x, parents, ravel, states)

	xs := d.Column(x)
	cols := make([][]uint8, len(parents))
	for i, p := range parents {
		cols[i] = d.Column(p)
	}
	for r := 0; r < d.Rows(); r++ {
		j := 0
		for i, col := range cols {
			j += m.ravel.stride[i] * int(col[r])
		}
		m.counts[j*m.states+int(xs[r])]++
		m.totals[j]++
	}
	m.n = d.Rows()
	return m, nil
}

func newCountMatrix(x int, parents []int, ravel Ravel, states int) *CountMatrix {
	return &CountMatrix{
		X:       x,
		Parents: slices.Clone(parents),
		ravel:   ravel,
		states:  states,
		counts:  make([]int, ravel.Size()*states),
		totals:  make([]int, ravel.Size()),
	}
}

// CheckVariables reports an INVALID_INPUT coded error unless x and parents
// are distinct variables of a dataset with the given number of columns.
func CheckVariables(columns, x int, parents []int) error {
	if x < 0 || x >= columns {
		return errs.New(errs.ErrCodeInvalidInput, "variable %d out of range", x)
	}
	seen := map[int]bool{x: true}
	for _, p := range parents {
		if p < 0 || p >= columns {
			return errs.New(errs.ErrCodeInvalidInput, "parent %d out of range", p)
		}
		if seen[p] {
			return errs.New(errs.ErrCodeInvalidInput, "variable %d listed twice", p)
		}
		seen[p] = true
	}
	return nil
}

// Configs returns the number of parent configurations.
func (m *CountMatrix) Configs() int { return m.ravel.Size() }

// States returns the number of states of X.
func (m *CountMatrix) States() int { return m.states }

// Cells returns Configs() × States().
func (m *CountMatrix) Cells() int { return len(m.counts) }

// At returns the count of configuration j and state k.
func (m *CountMatrix) At(j, k int) int { return m.counts[j*m.states+k] }

// ConfigTotal returns the number of observations in configuration j.
func (m *CountMatrix) ConfigTotal(j int) int { return m.totals[j] }

// Total returns the number of observations counted.
func (m *CountMatrix) Total() int { return m.n }

// Ravel returns the configuration index over the parents.
func (m *CountMatrix) Ravel() Ravel { return m.ravel }

// Marginalize returns the counts of X against the parents without the one
// at position pos, summing over its states. No observation is revisited.
func (m *CountMatrix) Marginalize(pos int) *CountMatrix {
	card := slices.Delete(slices.Clone(m.ravel.card), pos, pos+1)
	parents := slices.Delete(slices.Clone(m.Parents), pos, pos+1)
	out := newCountMatrix(m.X, parents, newRavel(card), m.states)
	out.n = m.n

	multi := make([]int, 0, len(m.ravel.card))
	for j := 0; j < m.Configs(); j++ {
		if m.totals[j] == 0 {
			continue
		}
		multi = m.ravel.Unravel(j, multi)
		reduced := slices.Delete(multi, pos, pos+1)
		dst := out.ravel.Index(reduced...)
		for k := 0; k < m.states; k++ {
			out.counts[dst*m.states+k] += m.counts[j*m.states+k]
		}
		out.totals[dst] += m.totals[j]
	}
	return out
}

// LogLikelihood returns Σ_j Σ_k n_jk · log θ_jk, where θ_jk is the
// conditional probability of state k in configuration j estimated with
// pseudoCount added to every cell. With a zero pseudo-count empty cells
// contribute nothing.
func (m *CountMatrix) LogLikelihood(pseudoCount float64) float64 {
	ll := 0.0
	alpha := pseudoCount
	for j := 0; j < m.Configs(); j++ {
		nj := float64(m.totals[j])
		if nj == 0 {
			continue
		}
		denom := nj + alpha*float64(m.states)
		for k := 0; k < m.states; k++ {
			njk := float64(m.counts[j*m.states+k])
			if njk == 0 {
				continue
			}
			ll += njk * math.Log((njk+alpha)/denom)
		}
	}
	return ll
}

// Conditional returns the estimated P(X = k | configuration j) with
// pseudoCount added to every cell. Configurations with no observations and
// no pseudo-count are uniform.
func (m *CountMatrix) Conditional(pseudoCount float64) [][]float64 {
	out := make([][]float64, m.Configs())
	for j := range out {
		row := make([]float64, m.states)
		denom := float64(m.totals[j]) + pseudoCount*float64(m.states)
		for k := range row {
			if denom == 0 {
				row[k] = 1 / float64(m.states)
				continue
			}
			row[k] = (float64(m.counts[j*m.states+k]) + pseudoCount) / denom
		}
		out[j] = row
	}
	return out
}
