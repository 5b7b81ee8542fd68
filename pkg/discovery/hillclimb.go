// Package discovery learns causal graph structure from data.
//
// [HillClimbing] is a score-based search: starting from an empty, given or
// random DAG it repeatedly applies the single-edge addition, removal or
// reversal that most increases a decomposable score, and stops when no move
// improves it. [PCStable] is a constraint-based skeleton search driven by a
// conditional independence test.
//
// Both respect [prior.ForbiddenRequired] knowledge and return immutable
// graph snapshots.
package discovery

import (
	"context"
	"io"
	"math/rand/v2"
	"runtime"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/causalhub/pkg/dag"
	"github.com/matzehuels/causalhub/pkg/dag/components"
	errs "github.com/matzehuels/causalhub/pkg/errors"
	"github.com/matzehuels/causalhub/pkg/observability"
	"github.com/matzehuels/causalhub/pkg/prior"
	"github.com/matzehuels/causalhub/pkg/score"
)

// algorithmHillClimbing names the search in hooks and logs.
const algorithmHillClimbing = "hill-climbing"

// DefaultEdgeProb is the edge probability of a random start graph when
// none is given.
const DefaultEdgeProb = 0.2

// Epsilon is the smallest score increase accepted as an improvement.
// Smaller deltas are indistinguishable from rounding noise between
// score-equivalent graphs.
const Epsilon = 1e-9

// Init selects the start graph of a search.
type Init string

const (
	InitEmpty  Init = "empty"
	InitGiven  Init = "given"
	InitRandom Init = "random"
)

// Options configure a hill-climbing search.
type Options struct {
	// MaxIterations caps the number of accepted moves. Zero means no cap;
	// the search always terminates because every move strictly increases
	// the score.
	MaxIterations int
	// MaxDuration stops the search between iterations once exceeded.
	// Zero means no limit.
	MaxDuration time.Duration
	// MaxInDegree bounds the number of parents of any vertex reached by a
	// move. Zero means no bound. Required edges may exceed it.
	MaxInDegree int
	// Shuffle randomizes candidate order, and with it tie-breaking, once
	// per iteration using Seed.
	Shuffle bool
	Seed    uint64
	// Workers is the number of goroutines scoring candidates. Zero selects
	// GOMAXPROCS.
	Workers int

	// Init selects the start graph. Empty defaults to InitGiven when
	// InitialGraph is set and InitEmpty otherwise.
	Init         Init
	InitialGraph *dag.DAG
	// RandomEdgeProb is the edge probability for InitRandom; zero selects
	// DefaultEdgeProb.
	RandomEdgeProb float64

	Logger *log.Logger
}

// Result is the outcome of a search.
type Result struct {
	Graph *dag.Snapshot
	Score float64
	// Iterations is the number of accepted moves.
	Iterations int
	// Converged is false when the search stopped at MaxIterations or
	// MaxDuration while an improving move was still available.
	Converged bool
	Moves     []Step
	Cache     score.CacheStats
	Duration  time.Duration
}

// HillClimbing is a greedy score-based structure search.
type HillClimbing struct {
	Scorer  score.Scorer
	Prior   *prior.ForbiddenRequired
	Options Options
}

// NewHillClimbing creates a search. p may be nil.
func NewHillClimbing(s score.Scorer, p *prior.ForbiddenRequired, opts Options) *HillClimbing {
	return &HillClimbing{Scorer: s, Prior: p, Options: opts}
}

// search is the state of one Fit call. The working graph has a single
// writer: the loop in Fit. Workers only read it between barriers.
type search struct {
	opts   Options
	prior  *prior.ForbiddenRequired
	cache  *score.Cache
	logger *log.Logger
	rng    *rand.Rand

	g      *dag.DAG
	locals []float64
	total  float64
}

// Fit runs the search. Configuration errors, a start graph that violates
// the prior, and numerical failures of the score are returned before or
// instead of a result; an individual illegal move is never an error.
func (h *HillClimbing) Fit(ctx context.Context) (*Result, error) {
	start := time.Now()
	hooks := observability.Search()

	s, err := h.prepare()
	if err != nil {
		return nil, err
	}
	n := s.g.Order()
	hooks.OnSearchStart(ctx, algorithmHillClimbing, n)
	s.logger.Debug("search started", "variables", n, "edges", s.g.Size(), "score", s.total)

	res, err := s.run(ctx, start)
	if err != nil {
		hooks.OnSearchComplete(ctx, algorithmHillClimbing, 0, 0, time.Since(start), err)
		return nil, err
	}
	res.Duration = time.Since(start)
	res.Cache = s.cache.Stats()
	hooks.OnSearchComplete(ctx, algorithmHillClimbing, res.Iterations, res.Score, res.Duration, nil)
	s.logger.Debug("search finished",
		"iterations", res.Iterations,
		"converged", res.Converged,
		"score", res.Score,
		"duration", res.Duration)
	return res, nil
}

// prepare validates the configuration and builds the scored start graph.
func (h *HillClimbing) prepare() (*search, error) {
	if h.Scorer == nil {
		return nil, errs.New(errs.ErrCodeInvalidInput, "no scorer")
	}
	opts := h.Options
	if err := validateOptions(&opts); err != nil {
		return nil, err
	}
	labels := h.Scorer.Labels()
	if h.Prior != nil && !slices.Equal(h.Prior.Labels(), labels) {
		return nil, errs.New(errs.ErrCodeConstraintConflict,
			"prior knowledge is over %v, data over %v", h.Prior.Labels(), labels)
	}

	g, err := startGraph(labels, h.Prior, opts)
	if err != nil {
		return nil, err
	}
	if err := h.Prior.Apply(g); err != nil {
		return nil, err
	}

	s := &search{
		opts:   opts,
		prior:  h.Prior,
		cache:  score.NewCache(h.Scorer),
		logger: opts.Logger,
		rng:    rand.New(rand.NewPCG(opts.Seed, opts.Seed^0xdeadbeef)),
		g:      g,
		locals: make([]float64, g.Order()),
	}
	for x := range s.locals {
		v, err := s.cache.Local(x, g.Parents(x))
		if err != nil {
			return nil, err
		}
		s.locals[x] = v
		s.total += v
	}
	return s, nil
}

func validateOptions(o *Options) error {
	if o.MaxIterations < 0 || o.MaxInDegree < 0 || o.Workers < 0 || o.MaxDuration < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "iteration, in-degree, worker and duration limits must be non-negative")
	}
	if o.RandomEdgeProb < 0 || o.RandomEdgeProb > 1 {
		return errs.New(errs.ErrCodeInvalidInput, "random edge probability must be in [0, 1], got %g", o.RandomEdgeProb)
	}
	if o.Init == "" {
		o.Init = InitEmpty
		if o.InitialGraph != nil {
			o.Init = InitGiven
		}
	}
	switch o.Init {
	case InitEmpty, InitRandom:
	case InitGiven:
		if o.InitialGraph == nil {
			return errs.New(errs.ErrCodeInvalidInput, "initial graph required for init %q", o.Init)
		}
	default:
		return errs.New(errs.ErrCodeInvalidInput, "unknown init %q (want empty, given or random)", o.Init)
	}
	if o.Workers == 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.RandomEdgeProb == 0 {
		o.RandomEdgeProb = DefaultEdgeProb
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return nil
}

// startGraph builds the start graph. prepare adds any required edges it
// is still missing.
func startGraph(labels []string, p *prior.ForbiddenRequired, o Options) (*dag.DAG, error) {
	switch o.Init {
	case InitGiven:
		if !slices.Equal(o.InitialGraph.Labels(), labels) {
			return nil, errs.New(errs.ErrCodeInvalidInput,
				"initial graph is over %v, data over %v", o.InitialGraph.Labels(), labels)
		}
		g := o.InitialGraph.Clone()
		if o.MaxInDegree > 0 {
			for x := 0; x < g.Order(); x++ {
				if d := g.InDegree(x); d > o.MaxInDegree {
					return nil, errs.New(errs.ErrCodeInvalidInput,
						"initial graph: %s has %d parents, limit %d", g.Label(x), d, o.MaxInDegree)
				}
			}
		}
		return g, nil
	case InitRandom:
		r, err := dag.NewRandom(labels, o.RandomEdgeProb, o.Seed)
		if err != nil {
			return nil, err
		}
		// Required edges go in first; random edges that are forbidden,
		// exceed the in-degree bound or close a cycle with them are skipped.
		g, _ := dag.New(labels)
		if err := p.Apply(g); err != nil {
			return nil, err
		}
		for _, e := range r.Edges() {
			if p.IsForbidden(e.From, e.To) || g.HasEdge(e.From, e.To) {
				continue
			}
			if o.MaxInDegree > 0 && g.InDegree(e.To) >= o.MaxInDegree {
				continue
			}
			_ = g.AddEdge(e.From, e.To)
		}
		return g, nil
	}
	return dag.New(labels)
}

// run iterates until no move improves the score or a budget is spent.
func (s *search) run(ctx context.Context, start time.Time) (*Result, error) {
	res := &Result{}
	hooks := observability.Search()
	for {
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(errs.ErrCodeTimeout, err, "search stopped after %d iterations", res.Iterations)
		}
		if s.opts.MaxIterations > 0 && res.Iterations >= s.opts.MaxIterations {
			break
		}
		if s.opts.MaxDuration > 0 && time.Since(start) >= s.opts.MaxDuration {
			break
		}

		cands := s.candidates()
		if s.opts.Shuffle {
			s.rng.Shuffle(len(cands), func(i, j int) { cands[i], cands[j] = cands[j], cands[i] })
		}
		evals, err := s.evaluate(ctx, cands)
		if err != nil {
			return nil, err
		}

		best := -1
		for i, e := range evals {
			if e.move.Delta > Epsilon && (best < 0 || e.move.Delta > evals[best].move.Delta) {
				best = i
			}
		}
		if best < 0 {
			res.Converged = true
			break
		}
		if err := s.apply(evals[best]); err != nil {
			return nil, err
		}
		res.Iterations++
		m := evals[best].move
		res.Moves = append(res.Moves, Step{
			Move:  m,
			Label: s.g.Label(m.From) + " -> " + s.g.Label(m.To),
			Score: s.total,
		})
		hooks.OnMove(ctx, algorithmHillClimbing, m.Kind.String(), m.Delta, len(cands))
		s.logger.Debug("move",
			"kind", m.Kind,
			"edge", res.Moves[len(res.Moves)-1].Label,
			"delta", m.Delta,
			"score", s.total)
	}
	res.Graph = s.g.Snapshot()
	res.Score = s.total
	return res, nil
}

// candidates lists the legal moves on the current graph in the fixed
// order: additions, removals, then reversals, each by source then target.
// Legality is decided by the graph's own checks on the fully applied move
// and by the prior knowledge.
func (s *search) candidates() []Move {
	g, n := s.g, s.g.Order()
	limit := s.opts.MaxInDegree
	weak := components.FromGraph(g)

	var adds, removes, reverses []Move
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			if x == y {
				continue
			}
			if g.HasEdge(x, y) {
				if s.prior.CanRemove(x, y) {
					removes = append(removes, Move{Kind: Remove, From: x, To: y})
				}
				if s.prior.CanReverse(x, y) &&
					(limit == 0 || g.InDegree(x) < limit) &&
					g.CanReverseEdge(x, y) == nil {
					reverses = append(reverses, Move{Kind: Reverse, From: x, To: y})
				}
				continue
			}
			if g.HasEdge(y, x) || !s.prior.CanAdd(x, y) {
				continue
			}
			if limit > 0 && g.InDegree(y) >= limit {
				continue
			}
			// Vertices in different weak components cannot close a cycle.
			if weak.Connected(x, y) && g.CanAddEdge(x, y) != nil {
				continue
			}
			adds = append(adds, Move{Kind: Add, From: x, To: y})
		}
	}
	out := make([]Move, 0, len(adds)+len(removes)+len(reverses))
	out = append(out, adds...)
	out = append(out, removes...)
	return append(out, reverses...)
}

// evaluation is a scored candidate with the new local scores of the
// variables it affects, in the order of Move.affected.
type evaluation struct {
	move   Move
	locals []float64
}

// evaluate scores candidates in parallel. Workers only read the graph
// and the score cache; the scores they had to compute are merged into the
// cache after all of them are done.
func (s *search) evaluate(ctx context.Context, cands []Move) ([]evaluation, error) {
	out := make([]evaluation, len(cands))
	if len(cands) == 0 {
		return out, nil
	}
	parents := make([][]int, s.g.Order())
	for x := range parents {
		parents[x] = s.g.Parents(x)
	}

	workers := min(s.opts.Workers, len(cands))
	chunk := (len(cands) + workers - 1) / workers
	fragments := make([][]score.Entry, workers)

	eg, _ := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo, hi := w*chunk, min((w+1)*chunk, len(cands))
		eg.Go(func() error {
			for i := lo; i < hi; i++ {
				e, misses, err := s.score(cands[i], parents)
				if err != nil {
					return err
				}
				out[i] = e
				fragments[w] = append(fragments[w], misses...)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	for _, f := range fragments {
		s.cache.Store(f...)
	}
	return out, nil
}

// score computes the delta of m from the local scores of the variables it
// affects. It must not write shared state.
func (s *search) score(m Move, parents [][]int) (evaluation, []score.Entry, error) {
	var sets [][]int
	switch m.Kind {
	case Add:
		sets = [][]int{with(parents[m.To], m.From)}
	case Remove:
		sets = [][]int{without(parents[m.To], m.From)}
	case Reverse:
		sets = [][]int{without(parents[m.To], m.From), with(parents[m.From], m.To)}
	}
	var misses []score.Entry
	e := evaluation{move: m, locals: make([]float64, len(sets))}
	for i, x := range m.affected() {
		entry, hit, err := s.cache.Compute(x, sets[i])
		if err != nil {
			return evaluation{}, nil, err
		}
		if !hit {
			misses = append(misses, entry)
		}
		e.locals[i] = entry.Score
		e.move.Delta += entry.Score - s.locals[x]
	}
	return e, misses, nil
}

// apply commits an evaluated move through the graph's mutators, which
// re-check it, and refreshes the local scores it changed.
func (s *search) apply(e evaluation) error {
	m := e.move
	var err error
	switch m.Kind {
	case Add:
		err = s.g.AddEdge(m.From, m.To)
	case Remove:
		err = s.g.RemoveEdge(m.From, m.To)
	case Reverse:
		err = s.g.ReverseEdge(m.From, m.To)
	}
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "apply %s %s -> %s", m.Kind, s.g.Label(m.From), s.g.Label(m.To))
	}
	affected := m.affected()
	s.cache.Invalidate(affected...)
	for i, x := range affected {
		s.locals[x] = e.locals[i]
	}
	s.total = 0
	for _, v := range s.locals {
		s.total += v
	}
	return nil
}
