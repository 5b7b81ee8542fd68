package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/causalhub/pkg/dataset"
	"github.com/matzehuels/causalhub/pkg/discovery"
	errs "github.com/matzehuels/causalhub/pkg/errors"
	cio "github.com/matzehuels/causalhub/pkg/io"
	"github.com/matzehuels/causalhub/pkg/observability"
	"github.com/matzehuels/causalhub/pkg/pipeline"
	"github.com/matzehuels/causalhub/pkg/prior"
	"github.com/matzehuels/causalhub/pkg/render"
)

// fitFlags holds flags for the fit command.
type fitFlags struct {
	data      string
	output    string
	format    string
	priorFile string
	initGraph string
	forbid    []string
	require   []string
	noCache   bool
	progress  bool
	trace     bool
	opts      pipeline.Options

	seed            uint64
	maxConditioning int
}

// fitOptionFlags copies each option flag into the merged options when the
// flag was given. Unset flags keep the value from the config file.
var fitOptionFlags = map[string]func(dst, src *pipeline.Options){
	"algorithm":        func(d, s *pipeline.Options) { d.Algorithm = s.Algorithm },
	"score":            func(d, s *pipeline.Options) { d.Score = s.Score },
	"family":           func(d, s *pipeline.Options) { d.Family = s.Family },
	"penalty":          func(d, s *pipeline.Options) { d.Penalty = s.Penalty },
	"pseudo-count":     func(d, s *pipeline.Options) { d.PseudoCount = s.PseudoCount },
	"max-iter":         func(d, s *pipeline.Options) { d.MaxIterations = s.MaxIterations },
	"max-in-degree":    func(d, s *pipeline.Options) { d.MaxInDegree = s.MaxInDegree },
	"timeout":          func(d, s *pipeline.Options) { d.MaxDuration = s.MaxDuration },
	"shuffle":          func(d, s *pipeline.Options) { d.Shuffle = s.Shuffle },
	"seed":             func(d, s *pipeline.Options) { d.Seed = s.Seed },
	"workers":          func(d, s *pipeline.Options) { d.Workers = s.Workers },
	"init":             func(d, s *pipeline.Options) { d.Init = s.Init },
	"test":             func(d, s *pipeline.Options) { d.Test = s.Test },
	"alpha":            func(d, s *pipeline.Options) { d.Alpha = s.Alpha },
	"max-conditioning": func(d, s *pipeline.Options) { d.MaxConditioning = s.MaxConditioning },
	"refresh":          func(d, s *pipeline.Options) { d.Refresh = s.Refresh },
}

// fitCommand creates the fit command for learning a graph from data.
func (c *CLI) fitCommand() *cobra.Command {
	var flags fitFlags

	cmd := &cobra.Command{
		Use:   "fit [data.csv]",
		Short: "Learn a causal graph from a CSV dataset",
		Long: `Learn a causal graph from a CSV dataset.

The first row names the variables. Categorical data is fitted with hill
climbing on a BIC score by default; pass --family gaussian for continuous
columns and --algorithm pc for the PC-stable skeleton search.`,
		Example: `  # Learn a DAG and print it as JSON
  causalhub fit survey.csv

  # Gaussian data, AIC, at most 3 parents, rendered to SVG
  causalhub fit sensors.csv --family gaussian --score aic --max-in-degree 3 -o dag.svg

  # Forbid an edge and require another
  causalhub fit survey.csv --forbid "age->smoker" --require "smoker->cancer"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				flags.data = args[0]
			}
			return c.runFit(cmd.Context(), cmd.Flags(), &flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.data, "data", "d", "", "input CSV file")
	f.StringVarP(&flags.output, "output", "o", "", "output file (default stdout)")
	f.StringVarP(&flags.format, "format", "f", "", "output format: json, dot, svg, png (default from --output extension, else json)")
	f.StringVar(&flags.priorFile, "prior", "", "prior knowledge file (.toml, .yaml)")
	f.StringVar(&flags.initGraph, "initial-graph", "", "start hill climbing from this graph JSON file")
	f.StringArrayVar(&flags.forbid, "forbid", nil, `forbidden edge "A->B" (repeatable)`)
	f.StringArrayVar(&flags.require, "require", nil, `required edge "A->B" (repeatable)`)
	f.BoolVar(&flags.noCache, "no-cache", false, "disable the result cache")
	f.BoolVar(&flags.progress, "progress", false, "show an interactive progress view")
	f.BoolVar(&flags.trace, "trace", false, "print the accepted moves")

	o := &flags.opts
	f.StringVarP(&o.Algorithm, "algorithm", "a", pipeline.DefaultAlgorithm, "search algorithm: hc, pc")
	f.StringVarP(&o.Score, "score", "s", pipeline.DefaultScore, "score: ll, aic, aicc, bic, bicc, ebic")
	f.StringVar(&o.Family, "family", "", "data family: categorical, gaussian (default categorical)")
	f.Float64Var(&o.Penalty, "penalty", 0, "override the score's per-parameter penalty")
	f.Float64Var(&o.PseudoCount, "pseudo-count", 0, "pseudo-count added to categorical cells")
	f.IntVar(&o.MaxIterations, "max-iter", 0, "maximum accepted moves (0 = unlimited)")
	f.IntVar(&o.MaxInDegree, "max-in-degree", 0, "maximum parents per variable (0 = unlimited)")
	f.DurationVar(&o.MaxDuration, "timeout", 0, "stop the search after this long (disables caching)")
	f.BoolVar(&o.Shuffle, "shuffle", false, "break ties between equal moves in seeded random order")
	f.Uint64Var(&flags.seed, "seed", pipeline.DefaultSeed, "random seed for --shuffle and --init random")
	f.IntVarP(&o.Workers, "workers", "w", 0, "parallel scoring workers (0 = GOMAXPROCS)")
	f.StringVar(&o.Init, "init", "", "starting graph: empty, random, given")
	f.StringVar(&o.Test, "test", "", "independence test for pc: chi2, fisherz, studentst")
	f.Float64Var(&o.Alpha, "alpha", 0, "significance level for pc (default 0.05)")
	f.IntVar(&flags.maxConditioning, "max-conditioning", discovery.Unbounded, "largest conditioning set for pc (0 = marginal tests only, -1 = unlimited)")
	f.BoolVar(&o.Refresh, "refresh", false, "ignore cached results and recompute")

	completeFlags(cmd)
	return cmd
}

func (c *CLI) runFit(ctx context.Context, fs *pflag.FlagSet, flags *fitFlags) error {
	if flags.data == "" {
		return errs.New(errs.ErrCodeInvalidInput, "no input: pass a CSV file or --data")
	}
	cfg, err := c.Config()
	if err != nil {
		return err
	}
	flags.opts.Seed = &flags.seed
	flags.opts.MaxConditioning = &flags.maxConditioning
	opts := mergeFitOptions(cfg.Fit, flags.opts, fs)
	opts.Logger = c.Logger

	format, err := outputFormat(flags.format, flags.output)
	if err != nil {
		return err
	}

	load := startStage(c.Logger)
	d, err := cio.ReadDatasetFile(flags.data, familyOrDefault(opts.Family))
	if err != nil {
		return err
	}
	load.done("Loaded dataset", "rows", d.Rows(), "variables", d.Columns())

	if err := applyPriorFlags(&opts, flags); err != nil {
		return err
	}
	if flags.initGraph != "" {
		g, err := cio.ReadGraphFile(flags.initGraph)
		if err != nil {
			return err
		}
		jg := cio.ToGraph(g)
		opts.InitialGraph = &jg
	}

	runner, err := c.newRunner(ctx, flags.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	var res *pipeline.Result
	if flags.progress {
		res, err = c.fitWithProgress(ctx, runner, d, flags.data, opts)
	} else {
		res, err = fitWithSpinner(ctx, runner, d, opts)
	}
	if err != nil {
		return err
	}

	fr, err := prior.New(d.Labels(), opts.Forbidden, opts.Required)
	if err != nil {
		return err
	}
	data, _, err := runner.Render(ctx, res.Output(), pipeline.RenderOptions{Format: format, Prior: fr})
	if err != nil {
		return err
	}
	if err := writeOutput(flags.output, data); err != nil {
		return err
	}

	printFitSummary(res)
	if flags.trace {
		printMoves(res.Moves)
	}
	if flags.output != "" {
		printFile(flags.output)
		if format == render.FormatJSON {
			printNextStep("Render it", fmt.Sprintf("%s render %s -o graph.svg", appName, flags.output))
		}
	}
	return nil
}

// mergeFitOptions overlays the flags that were set on the config file's
// options.
func mergeFitOptions(base, flagged pipeline.Options, fs *pflag.FlagSet) pipeline.Options {
	fs.Visit(func(f *pflag.Flag) {
		if apply, ok := fitOptionFlags[f.Name]; ok {
			apply(&base, &flagged)
		}
	})
	return base
}

func applyPriorFlags(opts *pipeline.Options, flags *fitFlags) error {
	if flags.priorFile != "" {
		p, err := cio.LoadPriorFile(flags.priorFile)
		if err != nil {
			return err
		}
		forbidden, required, err := p.Pairs()
		if err != nil {
			return err
		}
		opts.Forbidden = append(opts.Forbidden, forbidden...)
		opts.Required = append(opts.Required, required...)
	}
	for _, s := range flags.forbid {
		e, err := parseEdge(s)
		if err != nil {
			return err
		}
		opts.Forbidden = append(opts.Forbidden, e)
	}
	for _, s := range flags.require {
		e, err := parseEdge(s)
		if err != nil {
			return err
		}
		opts.Required = append(opts.Required, e)
	}
	return nil
}

// parseEdge parses "A->B".
func parseEdge(s string) ([2]string, error) {
	from, to, ok := strings.Cut(s, "->")
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if !ok || from == "" || to == "" {
		return [2]string{}, errs.New(errs.ErrCodeInvalidInput, "edge %q: want FROM->TO", s)
	}
	return [2]string{from, to}, nil
}

func familyOrDefault(family string) string {
	if family == "" {
		return "categorical"
	}
	return family
}

// outputFormat picks the explicit format, else the output file's
// extension, else JSON.
func outputFormat(format, output string) (string, error) {
	if format == "" {
		format = render.FormatJSON
		if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), "."); ext != "" {
			format = ext
		}
	}
	if format == "gv" {
		format = render.FormatDOT
	}
	if err := render.ValidateFormat(format); err != nil {
		return "", errs.Wrap(errs.ErrCodeInvalidInput, err, "output format")
	}
	return format, nil
}

// writeOutput writes data to path, or stdout when path is empty.
func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// fitWithSpinner runs the fit behind a spinner that follows the search
// through the search hooks.
func fitWithSpinner(ctx context.Context, runner *pipeline.Runner, d dataset.Dataset, opts pipeline.Options) (*pipeline.Result, error) {
	spinner := newSpinnerWithContext(ctx, "Learning structure...")
	observability.SetSearchHooks(&spinnerHooks{spinner: spinner})
	defer observability.SetSearchHooks(observability.NoopSearchHooks{})

	spinner.Start()
	res, err := runner.Fit(ctx, d, opts)
	spinner.Stop()
	return res, err
}
