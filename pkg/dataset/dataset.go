// Package dataset holds the immutable observation tables that structure
// learning runs on.
//
// Two kinds are supported: [Categorical] tables, where each variable takes
// one of a finite, sorted set of states, and [Continuous] tables of real
// values. Both sort their variables by label at construction so that
// variable i of a dataset is vertex i of any graph built over the same
// labels. Inputs are copied; nothing returned by a dataset aliases caller
// memory, and a dataset never changes after construction.
package dataset

import (
	"cmp"
	"math"
	"slices"

	errs "github.com/matzehuels/causalhub/pkg/errors"
)

// MaxStates is the largest number of states a categorical variable may
// take.
const MaxStates = math.MaxUint8 + 1

// Dataset is the shape shared by both table kinds.
type Dataset interface {
	// Labels returns the sorted variable labels.
	Labels() []string
	// Rows returns the number of observations.
	Rows() int
	// Columns returns the number of variables.
	Columns() int
}

var (
	_ Dataset = (*Categorical)(nil)
	_ Dataset = (*Continuous)(nil)
)

// Variable describes a categorical variable and its states.
type Variable struct {
	Label  string
	States []string
}

// Categorical is a table of categorical observations. Each column stores
// state indices into the variable's sorted state list.
type Categorical struct {
	labels []string
	states [][]string
	cols   [][]uint8
	rows   int
}

// NewCategorical builds a table from string records, one per observation,
// with columns in the order of labels. The states of each variable are the
// sorted distinct values seen in its column.
func NewCategorical(labels []string, records [][]string) (*Categorical, error) {
	if err := checkShape(labels, len(records), func(r int) int { return len(records[r]) }); err != nil {
		return nil, err
	}
	vars := make([]Variable, len(labels))
	for j, l := range labels {
		seen := make(map[string]bool)
		for _, rec := range records {
			seen[rec[j]] = true
		}
		states := make([]string, 0, len(seen))
		for s := range seen {
			states = append(states, s)
		}
		slices.Sort(states)
		vars[j] = Variable{Label: l, States: states}
	}
	values := make([][]int, len(records))
	for r, rec := range records {
		values[r] = make([]int, len(labels))
		for j, v := range rec {
			values[r][j], _ = slices.BinarySearch(vars[j].States, v)
		}
	}
	return NewCategoricalIndexed(vars, values)
}

// NewCategoricalIndexed builds a table from declared variables and rows of
// state indices (values[r][j] indexes vars[j].States). Declared states may
// be in any order; they are sorted and the values remapped. States that
// never occur are kept, so their cardinality counts toward model size.
func NewCategoricalIndexed(vars []Variable, values [][]int) (*Categorical, error) {
	labels := make([]string, len(vars))
	for i, v := range vars {
		labels[i] = v.Label
	}
	if err := checkShape(labels, len(values), func(r int) int { return len(values[r]) }); err != nil {
		return nil, err
	}

	// remap[j][k] is the sorted position of vars[j].States[k].
	remap := make([][]int, len(vars))
	sortedStates := make([][]string, len(vars))
	for j, v := range vars {
		if len(v.States) == 0 {
			return nil, errs.New(errs.ErrCodeInvalidInput, "variable %q has no states", v.Label)
		}
		if len(v.States) > MaxStates {
			return nil, errs.New(errs.ErrCodeInvalidInput, "variable %q has %d states (max %d)", v.Label, len(v.States), MaxStates)
		}
		sorted := slices.Clone(v.States)
		slices.Sort(sorted)
		if len(slices.Compact(slices.Clone(sorted))) != len(sorted) {
			return nil, errs.New(errs.ErrCodeInvalidInput, "variable %q has duplicate states", v.Label)
		}
		remap[j] = make([]int, len(v.States))
		for k, s := range v.States {
			remap[j][k], _ = slices.BinarySearch(sorted, s)
		}
		sortedStates[j] = sorted
	}

	order := sortedOrder(labels)
	d := &Categorical{
		labels: make([]string, len(labels)),
		states: make([][]string, len(labels)),
		cols:   make([][]uint8, len(labels)),
		rows:   len(values),
	}
	for dst, src := range order {
		d.labels[dst] = labels[src]
		d.states[dst] = sortedStates[src]
		col := make([]uint8, len(values))
		for r, row := range values {
			v := row[src]
			if v < 0 || v >= len(remap[src]) {
				return nil, errs.New(errs.ErrCodeInvalidInput,
					"row %d: state index %d out of range for %q", r, v, labels[src])
			}
			col[r] = uint8(remap[src][v])
		}
		d.cols[dst] = col
	}
	return d, nil
}

// Labels returns the sorted variable labels.
func (d *Categorical) Labels() []string { return slices.Clone(d.labels) }

// Rows returns the number of observations.
func (d *Categorical) Rows() int { return d.rows }

// Columns returns the number of variables.
func (d *Categorical) Columns() int { return len(d.labels) }

// States returns the sorted states of variable i.
func (d *Categorical) States(i int) []string { return slices.Clone(d.states[i]) }

// Cardinality returns the number of states of variable i.
func (d *Categorical) Cardinality(i int) int { return len(d.states[i]) }

// Cardinalities returns the number of states of every variable.
func (d *Categorical) Cardinalities() []int {
	out := make([]int, len(d.states))
	for i, s := range d.states {
		out[i] = len(s)
	}
	return out
}

// Value returns the state index of variable col in observation row.
func (d *Categorical) Value(row, col int) int { return int(d.cols[col][row]) }

// Column returns the state indices of variable i. The returned slice is a
// read-only view and must not be modified.
func (d *Categorical) Column(i int) []uint8 { return d.cols[i] }

// Continuous is a table of real-valued observations.
type Continuous struct {
	labels []string
	cols   [][]float64
	rows   int
}

// NewContinuous builds a table from rows of values, with columns in the
// order of labels. Non-finite values are rejected.
func NewContinuous(labels []string, values [][]float64) (*Continuous, error) {
	if err := checkShape(labels, len(values), func(r int) int { return len(values[r]) }); err != nil {
		return nil, err
	}
	order := sortedOrder(labels)
	d := &Continuous{
		labels: make([]string, len(labels)),
		cols:   make([][]float64, len(labels)),
		rows:   len(values),
	}
	for dst, src := range order {
		d.labels[dst] = labels[src]
		col := make([]float64, len(values))
		for r, row := range values {
			v := row[src]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errs.New(errs.ErrCodeInvalidInput, "row %d: non-finite value for %q", r, labels[src])
			}
			col[r] = v
		}
		d.cols[dst] = col
	}
	return d, nil
}

// Labels returns the sorted variable labels.
func (d *Continuous) Labels() []string { return slices.Clone(d.labels) }

// Rows returns the number of observations.
func (d *Continuous) Rows() int { return d.rows }

// Columns returns the number of variables.
func (d *Continuous) Columns() int { return len(d.labels) }

// Value returns variable col in observation row.
func (d *Continuous) Value(row, col int) float64 { return d.cols[col][row] }

// Column returns the values of variable i. The returned slice is a
// read-only view and must not be modified.
func (d *Continuous) Column(i int) []float64 { return d.cols[i] }

func checkShape(labels []string, rows int, width func(int) int) error {
	if err := errs.ValidateLabels(labels); err != nil {
		return err
	}
	if rows == 0 {
		return errs.New(errs.ErrCodeInvalidInput, "dataset has no observations")
	}
	for r := 0; r < rows; r++ {
		if w := width(r); w != len(labels) {
			return errs.New(errs.ErrCodeInvalidInput, "row %d has %d values, want %d", r, w, len(labels))
		}
	}
	return nil
}

// sortedOrder returns, for each sorted position, the original column.
func sortedOrder(labels []string) []int {
	order := make([]int, len(labels))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int { return cmp.Compare(labels[a], labels[b]) })
	return order
}
