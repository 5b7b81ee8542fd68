// Package pkg provides the core libraries for causalhub structure learning.
//
// # Overview
//
// Causalhub learns the causal structure of tabular data as a directed
// acyclic graph. The pkg directory is organized into four main areas:
//
//  1. Graphs: [dag] (directed, undirected and mixed graphs with cycle-safe
//     mutation), [dag/components] and [dag/separation]
//  2. Statistics: [dataset], [stats], [score] (LL, AIC and BIC) and
//     [citest] (chi-squared, Fisher-Z and Student's t)
//  3. Search: [prior] (forbidden and required edges) and [discovery]
//     (hill climbing and PC-stable)
//  4. Plumbing: [pipeline] (orchestration and caching), [cache], [io],
//     [render], [api], [observability]
//
// # Architecture
//
// The typical data flow:
//
//	CSV file
//	    ↓
//	[io] package (parse into a categorical or continuous dataset)
//	    ↓
//	[score] or [citest] (decomposable score / independence test)
//	    ↓
//	[discovery] package (hill climbing or PC-stable under [prior])
//	    ↓
//	[render] or [io] (DOT, SVG, PNG or graph JSON)
//
// # Quick Start
//
//	d, _ := io.ReadDatasetFile("survey.csv", "categorical")
//	r := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	res, _ := r.Fit(ctx, d, pipeline.Options{Score: "bic", MaxInDegree: 3})
//	svg, _, _ := r.Render(ctx, res.Graph, pipeline.RenderOptions{Format: "svg"})
//
// [dag]: github.com/matzehuels/causalhub/pkg/dag
// [dag/components]: github.com/matzehuels/causalhub/pkg/dag/components
// [dag/separation]: github.com/matzehuels/causalhub/pkg/dag/separation
// [dataset]: github.com/matzehuels/causalhub/pkg/dataset
// [stats]: github.com/matzehuels/causalhub/pkg/stats
// [score]: github.com/matzehuels/causalhub/pkg/score
// [citest]: github.com/matzehuels/causalhub/pkg/citest
// [prior]: github.com/matzehuels/causalhub/pkg/prior
// [discovery]: github.com/matzehuels/causalhub/pkg/discovery
// [pipeline]: github.com/matzehuels/causalhub/pkg/pipeline
// [cache]: github.com/matzehuels/causalhub/pkg/cache
// [io]: github.com/matzehuels/causalhub/pkg/io
// [render]: github.com/matzehuels/causalhub/pkg/render
// [api]: github.com/matzehuels/causalhub/pkg/api
// [observability]: github.com/matzehuels/causalhub/pkg/observability
package pkg
