// Package pipeline runs structure learning end to end for the CLI and the
// HTTP API.
//
// A [Runner] takes a dataset and [Options], builds the scorer or
// independence test and the prior knowledge, runs the search, and caches
// the result under a key derived from the data and every option that can
// change the outcome. Both entry points go through the same Runner so they
// share defaults, validation and cache keys.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	res, err := runner.Fit(ctx, data, pipeline.Options{
//	    Score:       "bic",
//	    MaxInDegree: 3,
//	    Forbidden:   [][2]string{{"xray", "smoker"}},
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Score, res.Graph.Size())
//
// Rendered artifacts are cached separately:
//
//	svg, err := runner.Render(ctx, res.Graph, pipeline.RenderOptions{Format: "svg"})
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causalhub/pkg/cache"
	"github.com/matzehuels/causalhub/pkg/citest"
	"github.com/matzehuels/causalhub/pkg/dag"
	"github.com/matzehuels/causalhub/pkg/dataset"
	"github.com/matzehuels/causalhub/pkg/discovery"
	errs "github.com/matzehuels/causalhub/pkg/errors"
	cio "github.com/matzehuels/causalhub/pkg/io"
	"github.com/matzehuels/causalhub/pkg/score"
)

// Algorithms.
const (
	AlgorithmHillClimbing = "hc"
	AlgorithmPCStable     = "pc"
)

// Defaults shared by the CLI and the API.
const (
	DefaultAlgorithm = AlgorithmHillClimbing
	DefaultScore     = string(score.BIC)
	DefaultInit      = string(discovery.InitEmpty)
	DefaultSeed      = uint64(42)
)

// Options configure a run. The struct is the body of POST /v1/fit and
// the [fit] table of the configuration file.
type Options struct {
	Algorithm string `json:"algorithm,omitempty" toml:"algorithm"`

	// Score-based search.
	Score         string        `json:"score,omitempty" toml:"score"`
	Family        string        `json:"family,omitempty" toml:"family"`
	Penalty       float64       `json:"penalty,omitempty" toml:"penalty"`
	PseudoCount   float64       `json:"pseudo_count,omitempty" toml:"pseudo_count"`
	MaxIterations int           `json:"max_iterations,omitempty" toml:"max_iterations"`
	MaxInDegree   int           `json:"max_in_degree,omitempty" toml:"max_in_degree"`
	MaxDuration   time.Duration `json:"max_duration,omitempty" toml:"max_duration"`
	Shuffle       bool          `json:"shuffle,omitempty" toml:"shuffle"`
	// Seed drives --shuffle and random starts. Nil selects DefaultSeed;
	// zero is a valid seed.
	Seed          *uint64       `json:"seed,omitempty" toml:"seed"`
	Workers       int           `json:"workers,omitempty" toml:"workers"`
	Init          string        `json:"init,omitempty" toml:"init"`
	InitialGraph  *cio.Graph    `json:"initial_graph,omitempty" toml:"-"`

	// Constraint-based search.
	Test            string  `json:"test,omitempty" toml:"test"`
	Alpha           float64 `json:"alpha,omitempty" toml:"alpha"`
	// MaxConditioning bounds PC-stable's conditioning sets. Nil or a
	// negative bound means no bound; zero runs the marginal tests only.
	MaxConditioning *int `json:"max_conditioning,omitempty" toml:"max_conditioning"`

	Forbidden [][2]string `json:"forbidden,omitempty" toml:"-"`
	Required  [][2]string `json:"required,omitempty" toml:"-"`

	// Refresh bypasses the cache lookup; the result is still stored.
	Refresh bool `json:"refresh,omitempty" toml:"-"`

	Logger *log.Logger `json:"-" toml:"-"`

	validated bool
}

// SetDefaults fills unset fields. The data family defaults to the
// dataset's kind and the test to the one matching it.
func (o *Options) SetDefaults(d dataset.Dataset) {
	if o.Algorithm == "" {
		o.Algorithm = DefaultAlgorithm
	}
	if o.Score == "" {
		o.Score = DefaultScore
	}
	if o.Family == "" {
		o.Family = string(familyOf(d))
	}
	if o.Init == "" {
		o.Init = DefaultInit
		if o.InitialGraph != nil {
			o.Init = string(discovery.InitGiven)
		}
	}
	if o.Seed == nil {
		seed := DefaultSeed
		o.Seed = &seed
	}
	if o.Test == "" {
		o.Test = "fisherz"
		if familyOf(d) == score.Categorical {
			o.Test = "chi2"
		}
	}
	if o.Alpha == 0 {
		o.Alpha = citest.DefaultAlpha
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks options against the dataset they will run on.
func (o *Options) Validate(d dataset.Dataset) error {
	switch o.Algorithm {
	case AlgorithmHillClimbing, AlgorithmPCStable:
	default:
		return errs.New(errs.ErrCodeInvalidInput, "unknown algorithm %q (want hc or pc)", o.Algorithm)
	}
	crit, err := score.ParseCriterion(o.Score)
	if err != nil {
		return err
	}
	o.Score = string(crit)
	fam, err := score.ParseFamily(o.Family)
	if err != nil {
		return err
	}
	o.Family = string(fam)
	if fam != familyOf(d) {
		return errs.New(errs.ErrCodeInvalidInput, "family %s does not match %s data", fam, familyOf(d))
	}
	if o.MaxIterations < 0 || o.MaxInDegree < 0 || o.Workers < 0 || o.MaxDuration < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "limits must be non-negative")
	}
	if o.Penalty < 0 || o.PseudoCount < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "penalty and pseudo-count must be non-negative")
	}
	if err := errs.ValidateProbability("alpha", o.Alpha); err != nil {
		return err
	}
	switch discovery.Init(o.Init) {
	case discovery.InitEmpty, discovery.InitRandom:
	case discovery.InitGiven:
		if o.InitialGraph == nil {
			return errs.New(errs.ErrCodeInvalidInput, "init %q needs an initial graph", o.Init)
		}
	default:
		return errs.New(errs.ErrCodeInvalidInput, "unknown init %q (want empty, given or random)", o.Init)
	}
	return nil
}

// ValidateAndSetDefaults applies defaults and validates. It is idempotent.
func (o *Options) ValidateAndSetDefaults(d dataset.Dataset) error {
	if o.validated {
		return nil
	}
	o.SetDefaults(d)
	if err := o.Validate(d); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// KeyOpts returns the cache key options of the run.
func (o *Options) KeyOpts() cache.FitKeyOpts {
	k := cache.FitKeyOpts{
		Algorithm:   o.Algorithm,
		Score:       o.Score,
		Family:      o.Family,
		PseudoCount: o.PseudoCount,
		Penalty:     o.Penalty,
		Seed:        o.seed(),
		PriorHash:   priorHash(o.Forbidden, o.Required),
	}
	switch o.Algorithm {
	case AlgorithmHillClimbing:
		k.MaxIterations = o.MaxIterations
		k.MaxInDegree = o.MaxInDegree
		k.Shuffle = o.Shuffle
		k.Init = o.Init
		if o.InitialGraph != nil {
			if g, err := o.InitialGraph.DAG(); err == nil {
				if data, err := cio.MarshalGraph(g); err == nil {
					k.InitialGraphHash = cache.Hash(data)
				}
			}
		}
	case AlgorithmPCStable:
		k.Score = fmt.Sprintf("%s@%g", o.Test, o.Alpha)
		k.MaxInDegree = o.conditioningBound()
	}
	return k
}

func (o *Options) seed() uint64 {
	if o.Seed == nil {
		return DefaultSeed
	}
	return *o.Seed
}

// conditioningBound maps MaxConditioning onto discovery.PCStable's bound.
func (o *Options) conditioningBound() int {
	if o.MaxConditioning == nil || *o.MaxConditioning < 0 {
		return discovery.Unbounded
	}
	return *o.MaxConditioning
}

// Cacheable reports whether the result is a function of the key alone.
// Time-bounded searches are not.
func (o *Options) Cacheable() bool {
	return o.MaxDuration == 0
}

// Move is an accepted search move in label form.
type Move struct {
	Kind  string  `json:"kind"`
	From  string  `json:"from"`
	To    string  `json:"to"`
	Delta float64 `json:"delta"`
	Score float64 `json:"score"`
}

// Result is the outcome of a run.
type Result struct {
	// RunID identifies this run in logs and API responses.
	RunID    string `json:"run_id"`
	DataHash string `json:"data_hash"`

	// Graph is the learned DAG for hill climbing.
	Graph *dag.Snapshot `json:"-"`
	// Skeleton, CPDAG and SepSets are the result of PC-stable. SepSets
	// maps "A|B" to the labels that separated A and B.
	Skeleton *dag.Undirected     `json:"-"`
	CPDAG    *dag.PDAG           `json:"-"`
	SepSets  map[string][]string `json:"sepsets,omitempty"`

	Score      float64 `json:"score"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
	Moves      []Move  `json:"moves,omitempty"`

	Stats    Stats `json:"stats"`
	CacheHit bool  `json:"cache_hit"`
}

// Stats contains timing information.
type Stats struct {
	Variables    int           `json:"variables"`
	Observations int           `json:"observations"`
	Edges        int           `json:"edges"`
	LoadTime     time.Duration `json:"load_ns"`
	SearchTime   time.Duration `json:"search_ns"`
}

// Output returns the learned graph: the DAG, or the CPDAG for PC-stable.
func (r *Result) Output() dag.Graph {
	switch {
	case r.Graph != nil:
		return r.Graph
	case r.CPDAG != nil:
		return r.CPDAG
	}
	return r.Skeleton
}

func familyOf(d dataset.Dataset) score.Family {
	if _, ok := d.(*dataset.Continuous); ok {
		return score.Gaussian
	}
	return score.Categorical
}
