package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/causalhub/pkg/dag"
	"github.com/matzehuels/causalhub/pkg/prior"
)

// Options configures diagram generation.
type Options struct {
	// Title is drawn above the diagram when non-empty.
	Title string
	// RankDir is the Graphviz rank direction; empty means "TB".
	RankDir string
	// Prior marks required edges.
	Prior *prior.ForbiddenRequired
	// Weights labels edges with a number, formatted with two decimals.
	Weights map[dag.Edge]float64
}

// ToDOT converts g to DOT source. Graphs that implement
// [dag.DirectedGraph] become digraphs; others become undirected graphs.
// The lines of a [dag.PDAG] are drawn without arrowheads.
func ToDOT(g dag.Graph, opts Options) string {
	_, directed := g.(dag.DirectedGraph)
	pdag, _ := g.(*dag.PDAG)
	kind, arrow := "graph", "--"
	if directed {
		kind, arrow = "digraph", "->"
	}
	rankdir := opts.RankDir
	if rankdir == "" {
		rankdir = "TB"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s G {\n", kind)
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	if opts.Title != "" {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=t;\n", opts.Title)
	}
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\"];\n")
	buf.WriteString("  ranksep=0.5;\n  nodesep=0.3;\n\n")

	for i := 0; i < g.Order(); i++ {
		if g.HasVertex(i) {
			fmt.Fprintf(&buf, "  %q;\n", g.Label(i))
		}
	}
	buf.WriteString("\n")
	for _, e := range g.Edges() {
		var attrs []string
		line := !directed || (pdag != nil && pdag.HasLine(e.From, e.To))
		if opts.Prior.IsRequired(e.From, e.To) || (line && opts.Prior.IsRequired(e.To, e.From)) {
			attrs = append(attrs, "penwidth=2.5")
		}
		if directed && line {
			attrs = append(attrs, "dir=none")
		}
		if w, ok := opts.Weights[e]; ok {
			attrs = append(attrs, fmt.Sprintf("label=\"%.2f\"", w))
		}
		fmt.Fprintf(&buf, "  %q %s %q", g.Label(e.From), arrow, g.Label(e.To))
		if len(attrs) > 0 {
			fmt.Fprintf(&buf, " [%s]", strings.Join(attrs, ", "))
		}
		buf.WriteString(";\n")
	}
	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG lays out and renders DOT source as SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := render(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG lays out and renders DOT source as PNG.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-sized root element with one
// whose viewBox starts at the origin and whose size is unitless.
func normalizeViewBox(svg []byte) []byte {
	m := viewBoxRe.FindSubmatch(svg)
	if m == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(m[3]), 64)
	h, _ := strconv.ParseFloat(string(m[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
