package pipeline

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/causalhub/pkg/cache"
	"github.com/matzehuels/causalhub/pkg/citest"
	"github.com/matzehuels/causalhub/pkg/dag"
	"github.com/matzehuels/causalhub/pkg/dataset"
	"github.com/matzehuels/causalhub/pkg/discovery"
	errs "github.com/matzehuels/causalhub/pkg/errors"
	cio "github.com/matzehuels/causalhub/pkg/io"
	"github.com/matzehuels/causalhub/pkg/prior"
	"github.com/matzehuels/causalhub/pkg/score"
	"github.com/matzehuels/causalhub/pkg/stats"
)

// Runner executes runs with result caching. It holds no per-run state;
// several goroutines may share one Runner.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching and a nil keyer
// selects cache.DefaultKeyer.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Fit learns a structure from d. Errors carry the codes of pkg/errors; no
// partial result is returned alongside an error.
func (r *Runner) Fit(ctx context.Context, d dataset.Dataset, opts Options) (*Result, error) {
	if d == nil {
		return nil, errs.New(errs.ErrCodeInvalidInput, "no dataset")
	}
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(d); err != nil {
		return nil, err
	}
	start := time.Now()
	res := &Result{
		RunID:    uuid.NewString(),
		DataHash: DatasetHash(d),
		Stats:    Stats{Variables: d.Columns(), Observations: d.Rows()},
	}
	logger := opts.Logger.With("run", res.RunID[:8])

	fr, err := prior.New(d.Labels(), opts.Forbidden, opts.Required)
	if err != nil {
		return nil, err
	}
	key := r.Keyer.FitKey(res.DataHash, opts.KeyOpts())
	if !opts.Refresh && opts.Cacheable() {
		data, hit, err := r.Cache.Get(ctx, key)
		switch {
		case err != nil:
			logger.Warn("cache lookup failed", "err", err)
		case hit:
			if err := res.restore(d.Labels(), data); err == nil {
				res.CacheHit = true
				res.Stats.LoadTime = time.Since(start)
				res.Stats.Edges = res.Output().Size()
				logger.Info("loaded cached structure", "edges", res.Stats.Edges, "score", res.Score)
				return res, nil
			}
			logger.Debug("discarding unreadable cache entry", "key", key)
		}
	}
	res.Stats.LoadTime = time.Since(start)

	searchStart := time.Now()
	switch opts.Algorithm {
	case AlgorithmPCStable:
		err = r.pcStable(ctx, d, fr, &opts, logger, res)
	default:
		err = r.hillClimb(ctx, d, fr, &opts, logger, res)
	}
	if err != nil {
		return nil, err
	}
	res.Stats.SearchTime = time.Since(searchStart)
	res.Stats.Edges = res.Output().Size()

	if opts.Cacheable() {
		if data, err := res.marshalCached(); err == nil {
			if err := r.Cache.Set(ctx, key, data, cache.FitTTL); err != nil {
				logger.Warn("cache store failed", "err", err)
			}
		}
	}
	logger.Info("learned structure",
		"algorithm", opts.Algorithm,
		"variables", res.Stats.Variables,
		"edges", res.Stats.Edges,
		"score", res.Score,
		"iterations", res.Iterations,
		"duration", res.Stats.SearchTime)
	return res, nil
}

func (r *Runner) hillClimb(ctx context.Context, d dataset.Dataset, fr *prior.ForbiddenRequired, opts *Options, logger *log.Logger, res *Result) error {
	s, err := score.New(d, score.Options{
		Criterion:   score.Criterion(opts.Score),
		K:           opts.Penalty,
		PseudoCount: opts.PseudoCount,
		Ridge:       stats.Ridge{Logger: logger},
	})
	if err != nil {
		return err
	}
	var initial *dag.DAG
	if opts.InitialGraph != nil {
		if initial, err = opts.InitialGraph.DAG(); err != nil {
			return err
		}
	}
	hc := discovery.NewHillClimbing(s, fr, discovery.Options{
		MaxIterations: opts.MaxIterations,
		MaxDuration:   opts.MaxDuration,
		MaxInDegree:   opts.MaxInDegree,
		Shuffle:       opts.Shuffle,
		Seed:          opts.seed(),
		Workers:       opts.Workers,
		Init:          discovery.Init(opts.Init),
		InitialGraph:  initial,
		Logger:        logger,
	})
	out, err := hc.Fit(ctx)
	if err != nil {
		return err
	}
	labels := d.Labels()
	res.Graph = out.Graph
	res.Score = out.Score
	res.Iterations = out.Iterations
	res.Converged = out.Converged
	res.Moves = make([]Move, len(out.Moves))
	for i, st := range out.Moves {
		res.Moves[i] = Move{
			Kind:  st.Kind.String(),
			From:  labels[st.From],
			To:    labels[st.To],
			Delta: st.Delta,
			Score: st.Score,
		}
	}
	logger.Debug("score cache", "hits", out.Cache.Hits, "misses", out.Cache.Misses, "entries", out.Cache.Entries)
	return nil
}

func (r *Runner) pcStable(ctx context.Context, d dataset.Dataset, fr *prior.ForbiddenRequired, opts *Options, logger *log.Logger, res *Result) error {
	test, err := citest.New(opts.Test, d, opts.Alpha, citest.UseRidge(stats.Ridge{Logger: logger}))
	if err != nil {
		return err
	}
	pc := &discovery.PCStable{
		Test:            test,
		Prior:           fr,
		MaxConditioning: opts.conditioningBound(),
		Logger:          logger,
	}
	skel, sep, err := pc.Skeleton(ctx)
	if err != nil {
		return err
	}
	cpdag, err := pc.Orient(skel, sep)
	if err != nil {
		return err
	}
	labels := d.Labels()
	res.Skeleton = skel
	res.CPDAG = cpdag
	res.Converged = true
	res.SepSets = make(map[string][]string, len(sep))
	for pair, z := range sep {
		names := make([]string, len(z))
		for i, v := range z {
			names[i] = labels[v]
		}
		res.SepSets[labels[pair[0]]+"|"+labels[pair[1]]] = names
	}
	return nil
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// cachedFit is the cache encoding of a Result.
type cachedFit struct {
	Graph      *cio.Graph          `json:"graph,omitempty"`
	Skeleton   *cio.Graph          `json:"skeleton,omitempty"`
	CPDAG      *cio.Graph          `json:"cpdag,omitempty"`
	SepSets    map[string][]string `json:"sepsets,omitempty"`
	Score      float64             `json:"score"`
	Iterations int                 `json:"iterations"`
	Converged  bool                `json:"converged"`
	Moves      []Move              `json:"moves,omitempty"`
}

func (r *Result) marshalCached() ([]byte, error) {
	c := cachedFit{
		SepSets:    r.SepSets,
		Score:      r.Score,
		Iterations: r.Iterations,
		Converged:  r.Converged,
		Moves:      r.Moves,
	}
	if r.Graph != nil {
		g := cio.ToGraph(r.Graph)
		c.Graph = &g
	}
	if r.Skeleton != nil {
		g := cio.ToGraph(r.Skeleton)
		c.Skeleton = &g
	}
	if r.CPDAG != nil {
		g := cio.ToGraph(r.CPDAG)
		c.CPDAG = &g
	}
	return json.Marshal(c)
}

// restore fills r from a cache entry over labels.
func (r *Result) restore(labels []string, data []byte) error {
	var c cachedFit
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	switch {
	case c.Graph != nil:
		g, err := c.Graph.DAG()
		if err != nil {
			return err
		}
		r.Graph = g.Snapshot()
	case c.Skeleton != nil:
		u, err := dag.NewUndirected(c.Skeleton.Labels)
		if err != nil {
			return err
		}
		for _, e := range c.Skeleton.Edges {
			idx, err := dag.Indices(u, e.From, e.To)
			if err != nil {
				return err
			}
			if err := u.AddEdge(idx[0], idx[1]); err != nil {
				return err
			}
		}
		r.Skeleton = u
		if c.CPDAG != nil {
			if r.CPDAG, err = c.CPDAG.PDAG(); err != nil {
				return err
			}
		}
	default:
		return errs.New(errs.ErrCodeInvalidFormat, "cache entry holds no graph")
	}
	if got := r.Output().Labels(); !slices.Equal(got, labels) {
		return errs.New(errs.ErrCodeInvalidFormat, "cache entry is over %v", got)
	}
	r.SepSets = c.SepSets
	r.Score = c.Score
	r.Iterations = c.Iterations
	r.Converged = c.Converged
	r.Moves = c.Moves
	return nil
}
