package citest

import (
	"github.com/matzehuels/causalhub/pkg/dag"
	"github.com/matzehuels/causalhub/pkg/dag/separation"
)

// Oracle answers independence queries by d-separation in a known graph.
// Independent queries report a p-value of 1, dependent ones 0.
type Oracle struct {
	g dag.DirectedGraph
}

// NewOracle creates an oracle over g.
func NewOracle(g dag.DirectedGraph) *Oracle { return &Oracle{g: g} }

// Labels returns the graph's labels.
func (o *Oracle) Labels() []string { return o.g.Labels() }

// Test reports whether x and y are d-separated by z.
func (o *Oracle) Test(x, y int, z []int) (Result, error) {
	sep, err := separation.DSeparated(o.g, []int{x}, []int{y}, z)
	if err != nil {
		return Result{}, err
	}
	if sep {
		return Result{PValue: 1, Independent: true}, nil
	}
	return Result{}, nil
}
