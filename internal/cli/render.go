package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/causalhub/pkg/dag"
	cio "github.com/matzehuels/causalhub/pkg/io"
	"github.com/matzehuels/causalhub/pkg/pipeline"
	"github.com/matzehuels/causalhub/pkg/render"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output    string   // output file path (or base path for multiple outputs)
	formats   []string // output formats: "svg", "png", "dot", "json"
	rankDir   string   // Graphviz rank direction
	title     string   // diagram title
	priorFile string   // prior knowledge file marking required edges
	noCache   bool
}

// renderCommand creates the render command for drawing a graph file.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render <graph.json>",
		Short: "Render a graph JSON file to SVG, PNG or DOT",
		Example: `  causalhub render dag.json
  causalhub render dag.json -f svg,png -o out/dag --rankdir LR
  causalhub render dag.json --prior prior.toml -o dag.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			for _, f := range opts.formats {
				if err := render.ValidateFormat(f); err != nil {
					return err
				}
			}
			return c.runRender(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: input name with the format's extension)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "comma-separated formats: svg, png, dot, json (default svg)")
	cmd.Flags().StringVar(&opts.rankDir, "rankdir", "", "rank direction: TB, LR, BT, RL")
	cmd.Flags().StringVar(&opts.title, "title", "", "diagram title")
	cmd.Flags().StringVar(&opts.priorFile, "prior", "", "prior knowledge file; required edges are drawn bold")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")

	completeFlags(cmd)
	return cmd
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{render.FormatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(strings.ToLower(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .png, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if render.ValidateFormat(strings.TrimPrefix(ext, ".")) == nil {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

func (c *CLI) runRender(ctx context.Context, input string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)

	g, err := cio.ReadAnyGraphFile(input)
	if err != nil {
		return err
	}
	logger.Debugf("Loaded graph: %d variables, %d edges", g.Order(), g.Size())

	ropts := pipeline.RenderOptions{RankDir: opts.rankDir, Title: opts.title}
	if opts.priorFile != "" {
		fr, err := cio.ReadPriorFile(opts.priorFile, g.Labels())
		if err != nil {
			return err
		}
		ropts.Prior = fr
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	base := basePath(opts.output, input)
	for _, format := range opts.formats {
		path := base + "." + format
		if len(opts.formats) == 1 && opts.output != "" {
			path = opts.output
		}
		if err := renderAndWrite(ctx, runner, g, format, path, ropts); err != nil {
			return err
		}
	}
	return nil
}

// renderAndWrite renders one format and writes it to path.
func renderAndWrite(ctx context.Context, runner *pipeline.Runner, g dag.Graph, format, path string, ropts pipeline.RenderOptions) error {
	logger := loggerFromContext(ctx)

	ropts.Format = format
	data, hit, err := runner.Render(ctx, g, ropts)
	if err != nil {
		return fmt.Errorf("%s: %w", format, err)
	}
	logger.Debugf("Generated %s: %d bytes (cached: %v)", format, len(data), hit)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	printFile(path)
	return nil
}
