package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/causalhub/pkg/dag"
	"github.com/matzehuels/causalhub/pkg/prior"
)

func TestToDOTDirected(t *testing.T) {
	labels := []string{"A", "B", "C"}
	g, _ := dag.FromEdges(labels, [][2]string{{"A", "B"}, {"B", "C"}})
	fr, _ := prior.New(labels, nil, [][2]string{{"A", "B"}})

	dot := ToDOT(g, Options{Title: "learned", Prior: fr, Weights: map[dag.Edge]float64{{From: 1, To: 2}: 3.14159}})
	for _, want := range []string{
		"digraph G {",
		`label="learned"`,
		`"A" -> "B" [penwidth=2.5];`,
		`"B" -> "C" [label="3.14"];`,
		`"C";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTUndirected(t *testing.T) {
	g, _ := dag.FromEdges([]string{"A", "B", "C"}, [][2]string{{"B", "A"}})
	dot := ToDOT(g.Skeleton(), Options{RankDir: "LR"})
	if !strings.HasPrefix(dot, "graph G {") || !strings.Contains(dot, `"A" -- "B";`) {
		t.Errorf("ToDOT(skeleton) =\n%s", dot)
	}
	if !strings.Contains(dot, "rankdir=LR;") {
		t.Error("ToDOT() ignored RankDir")
	}
	if strings.Contains(dot, "penwidth") {
		t.Error("ToDOT() without prior drew bold edges")
	}
}

func TestToDOTPDAG(t *testing.T) {
	g, _ := dag.NewEmptyPDAG([]string{"A", "B", "C"})
	_ = g.AddArc(0, 1)
	_ = g.AddLine(1, 2)
	dot := ToDOT(g, Options{})
	for _, want := range []string{"digraph G {", `"A" -> "B";`, `"B" -> "C" [dir=none];`} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT(pdag) missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTInducedOmitsVertices(t *testing.T) {
	g, _ := dag.FromEdges([]string{"A", "B", "C"}, [][2]string{{"A", "B"}})
	sub, err := g.Induced([]int{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if dot := ToDOT(sub, Options{}); strings.Contains(dot, `"C"`) {
		t.Errorf("ToDOT(induced) includes excluded vertex:\n%s", dot)
	}
}

func TestRenderSVG(t *testing.T) {
	g, _ := dag.FromEdges([]string{"A", "B"}, [][2]string{{"A", "B"}})
	svg, err := RenderSVG(context.Background(), ToDOT(g, Options{}))
	if err != nil {
		t.Fatalf("RenderSVG() error = %v", err)
	}
	if !strings.Contains(string(svg), `viewBox="0 0 `) {
		t.Errorf("RenderSVG() root not normalized: %.200s", svg)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := `<svg width="62pt" height="116pt" viewBox="0.00 0.00 62.00 116.00" xmlns="x"><g/></svg>`
	got := string(normalizeViewBox([]byte(in)))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 62.00 116.00" width="62" height="116"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox() = %s, want %s", got, want)
	}
	if got := normalizeViewBox([]byte("<svg>")); string(got) != "<svg>" {
		t.Errorf("normalizeViewBox(no viewBox) = %s", got)
	}
}
