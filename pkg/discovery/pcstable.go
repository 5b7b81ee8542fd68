package discovery

import (
	"context"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causalhub/pkg/citest"
	"github.com/matzehuels/causalhub/pkg/dag"
	errs "github.com/matzehuels/causalhub/pkg/errors"
	"github.com/matzehuels/causalhub/pkg/observability"
	"github.com/matzehuels/causalhub/pkg/prior"
)

const algorithmPCStable = "pc-stable"

// Unbounded lifts the bound on conditioning set sizes.
const Unbounded = -1

// SepSets records, for each removed adjacency, the conditioning set that
// separated its endpoints. Keys have the smaller index first.
type SepSets map[[2]int][]int

// Get returns the separating set of x and y in either order.
func (s SepSets) Get(x, y int) ([]int, bool) {
	z, ok := s[pairKey(x, y)]
	return z, ok
}

func pairKey(x, y int) [2]int {
	if x > y {
		x, y = y, x
	}
	return [2]int{x, y}
}

// PCStable recovers the skeleton of a DAG from independence tests. Starting
// from the complete graph it removes the adjacency x—y as soon as some
// subset of x's or y's other neighbors separates them, trying subsets of
// size 0, 1, 2, … in turn. Neighbor sets are frozen at the start of each
// size, which makes the result independent of the order of variables.
type PCStable struct {
	Test  citest.Test
	Prior *prior.ForbiddenRequired
	// MaxConditioning bounds the size of conditioning sets: zero runs the
	// marginal tests only and [Unbounded] lifts the bound.
	MaxConditioning int
	Logger          *log.Logger
}

// Skeleton runs the search. Adjacencies of required edges are never
// removed; pairs forbidden in both directions are never adjacent.
func (p *PCStable) Skeleton(ctx context.Context) (*dag.Undirected, SepSets, error) {
	start := time.Now()
	hooks := observability.Search()
	if p.Test == nil {
		return nil, nil, errs.New(errs.ErrCodeInvalidInput, "no independence test")
	}
	if p.MaxConditioning < Unbounded {
		return nil, nil, errs.New(errs.ErrCodeInvalidInput, "conditioning bound %d is neither a size nor Unbounded", p.MaxConditioning)
	}
	logger := p.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	g, err := dag.NewComplete(p.Test.Labels())
	if err != nil {
		return nil, nil, err
	}
	if p.Prior != nil && !slices.Equal(p.Prior.Labels(), g.Labels()) {
		return nil, nil, errs.New(errs.ErrCodeConstraintConflict,
			"prior knowledge is over %v, test over %v", p.Prior.Labels(), g.Labels())
	}
	n := g.Order()
	hooks.OnSearchStart(ctx, algorithmPCStable, n)

	sep := make(SepSets)
	for x := 0; x < n; x++ {
		for y := x + 1; y < n; y++ {
			if p.Prior.IsForbidden(x, y) && p.Prior.IsForbidden(y, x) {
				_ = g.RemoveEdge(x, y)
			}
		}
	}

	tests := 0
	for size := 0; p.MaxConditioning == Unbounded || size <= p.MaxConditioning; size++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, errs.Wrap(errs.ErrCodeTimeout, err, "skeleton search stopped at conditioning size %d", size)
		}
		adj := make([][]int, n)
		room := false
		for x := range adj {
			adj[x] = g.Neighbors(x)
			if len(adj[x])-1 >= size {
				room = true
			}
		}
		if !room {
			break
		}

		var removed [][2]int
		for _, e := range g.Edges() {
			x, y := e.From, e.To
			if p.Prior.IsRequired(x, y) || p.Prior.IsRequired(y, x) {
				continue
			}
			z, found, count, err := p.separate(x, y, adj, size)
			tests += count
			if err != nil {
				hooks.OnSearchComplete(ctx, algorithmPCStable, size, 0, time.Since(start), err)
				return nil, nil, err
			}
			if found {
				removed = append(removed, [2]int{x, y})
				sep[pairKey(x, y)] = z
			}
		}
		for _, r := range removed {
			_ = g.RemoveEdge(r[0], r[1])
		}
		logger.Debug("conditioning level done", "size", size, "removed", len(removed), "edges", g.Size())
	}
	hooks.OnSearchComplete(ctx, algorithmPCStable, tests, 0, time.Since(start), nil)
	return g, sep, nil
}

// separate looks for a set of the given size among x's, then y's, frozen
// neighbors that separates x and y.
func (p *PCStable) separate(x, y int, adj [][]int, size int) ([]int, bool, int, error) {
	count := 0
	for _, pair := range [][2]int{{x, y}, {y, x}} {
		pool := without(adj[pair[0]], pair[1])
		if len(pool) < size {
			continue
		}
		var found []int
		var failure error
		subsets(pool, size, func(z []int) bool {
			count++
			res, err := p.Test.Test(x, y, z)
			if err != nil {
				failure = err
				return false
			}
			if res.Independent {
				found = append([]int{}, z...)
				return false
			}
			return true
		})
		if failure != nil {
			return nil, false, count, failure
		}
		if found != nil {
			return found, true, count, nil
		}
	}
	return nil, false, count, nil
}

// subsets calls fn with every k-subset of pool in lexicographic order of
// positions until fn returns false. The slice passed to fn is reused.
func subsets(pool []int, k int, fn func([]int) bool) {
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	buf := make([]int, k)
	for {
		for i, j := range idx {
			buf[i] = pool[j]
		}
		if !fn(buf) {
			return
		}
		i := k - 1
		for i >= 0 && idx[i] == len(pool)-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
