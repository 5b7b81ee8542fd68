package io

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/causalhub/pkg/dag"
	errs "github.com/matzehuels/causalhub/pkg/errors"
)

func TestReadCategoricalCSV(t *testing.T) {
	in := "smoker, cancer\nyes, no\nno, no\nyes, yes\n"
	d, err := ReadCategoricalCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if got := d.Labels(); !slices.Equal(got, []string{"cancer", "smoker"}) {
		t.Errorf("Labels() = %v, want [cancer smoker]", got)
	}
	if d.Rows() != 3 {
		t.Errorf("Rows() = %d, want 3", d.Rows())
	}
	if got := d.States(1); !slices.Equal(got, []string{"no", "yes"}) {
		t.Errorf("States(smoker) = %v, want [no yes]", got)
	}
}

func TestReadContinuousCSV(t *testing.T) {
	d, err := ReadContinuousCSV(strings.NewReader("y,x\n1.5,2\n-3,4e1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got := d.Value(1, 0); got != 40 {
		t.Errorf("Value(1, x) = %v, want 40", got)
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		continuous bool
		code       errs.Code
	}{
		{"empty", "", false, errs.ErrCodeInvalidFormat},
		{"ragged", "a,b\n1\n", false, errs.ErrCodeInvalidFormat},
		{"blank cell", "a,b\n1,\n", false, errs.ErrCodeInvalidFormat},
		{"not a number", "a\nx\n", true, errs.ErrCodeInvalidFormat},
		{"nan", "a\nNaN\n", true, errs.ErrCodeInvalidFormat},
		{"duplicate label", "a,a\n1,2\n", true, errs.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.continuous {
				_, err = ReadContinuousCSV(strings.NewReader(tt.in))
			} else {
				_, err = ReadCategoricalCSV(strings.NewReader(tt.in))
			}
			if got := errs.GetCode(err); got != tt.code {
				t.Errorf("error code = %v (%v), want %v", got, err, tt.code)
			}
		})
	}
}

func TestReadDatasetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	_ = os.WriteFile(path, []byte("a,b\n1,2\n3,4\n"), 0o644)

	d, err := ReadDatasetFile(path, "gaussian")
	if err != nil || d.Rows() != 2 {
		t.Errorf("ReadDatasetFile(gaussian) = %v, %v", d, err)
	}
	if _, err := ReadDatasetFile(path, "poisson"); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("ReadDatasetFile(poisson) error = %v, want INVALID_INPUT", err)
	}
	if _, err := ReadDatasetFile(path+".missing", "gaussian"); !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("ReadDatasetFile(missing) error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestGraphRoundTrip(t *testing.T) {
	g, err := dag.FromEdges([]string{"C", "A", "B"}, [][2]string{{"B", "C"}, {"A", "B"}})
	if err != nil {
		t.Fatal(err)
	}
	data, err := MarshalGraph(g)
	if err != nil {
		t.Fatal(err)
	}
	back, err := ReadGraphJSON(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if !dag.Equal(g, back) {
		t.Errorf("round trip = %v, want %v", dag.EdgeLabels(back), dag.EdgeLabels(g))
	}
	again, _ := MarshalGraph(back)
	if !bytes.Equal(data, again) {
		t.Errorf("MarshalGraph() not stable:\n%s\n%s", data, again)
	}
}

func TestPDAGRoundTrip(t *testing.T) {
	g, err := dag.NewEmptyPDAG([]string{"A", "B", "C"})
	if err != nil {
		t.Fatal(err)
	}
	_ = g.AddArc(0, 2)
	_ = g.AddLine(1, 2)

	j := ToGraph(g)
	want := []Edge{{From: "A", To: "C"}, {From: "B", To: "C", Undirected: true}}
	if !slices.Equal(j.Edges, want) {
		t.Fatalf("ToGraph() edges = %+v, want %+v", j.Edges, want)
	}
	back, err := j.PDAG()
	if err != nil {
		t.Fatal(err)
	}
	if !back.HasArc(0, 2) || !back.HasLine(1, 2) || back.Size() != 2 {
		t.Errorf("PDAG() arcs %v lines %v", back.Arcs(), back.Lines())
	}
	if _, err := j.DAG(); !errs.Is(err, errs.ErrCodeInvalidFormat) {
		t.Errorf("DAG() of a CPDAG error = %v, want INVALID_FORMAT", err)
	}
}

func TestReadGraphJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		code errs.Code
	}{
		{"malformed", `{"labels": [`, errs.ErrCodeInvalidFormat},
		{"unknown field", `{"labels": ["A"], "nodes": []}`, errs.ErrCodeInvalidFormat},
		{"cycle", `{"labels": ["A","B"], "edges": [{"from":"A","to":"B"},{"from":"B","to":"A"}]}`, errs.ErrCodeCycle},
		{"unknown label", `{"labels": ["A"], "edges": [{"from":"A","to":"Z"}]}`, errs.ErrCodeUnknownVertex},
		{"undirected", `{"labels": ["A","B"], "edges": [{"from":"A","to":"B","undirected":true}]}`, errs.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGraphJSON(strings.NewReader(tt.in))
			if got := errs.GetCode(err); got != tt.code {
				t.Errorf("ReadGraphJSON() code = %v (%v), want %v", got, err, tt.code)
			}
		})
	}
}

func TestDecodePrior(t *testing.T) {
	labels := []string{"A", "B", "C"}
	docs := map[string]string{
		FormatTOML: "forbidden = [[\"B\", \"A\"]]\nrequired = [[\"A\", \"C\"]]\n",
		FormatYAML: "forbidden:\n  - [B, A]\nrequired:\n  - [A, C]\n",
	}
	for format, doc := range docs {
		t.Run(format, func(t *testing.T) {
			p, err := DecodePrior([]byte(doc), format)
			if err != nil {
				t.Fatal(err)
			}
			fr, err := p.Build(labels)
			if err != nil {
				t.Fatal(err)
			}
			if !fr.IsForbidden(1, 0) || !fr.IsRequired(0, 2) || fr.Len() != 2 {
				t.Errorf("Build() = %v, want forbidden B -> A, required A -> C", fr)
			}
		})
	}
}

func TestDecodePriorErrors(t *testing.T) {
	tests := []struct {
		name, doc, format string
	}{
		{"toml unknown key", "allowed = []\n", FormatTOML},
		{"yaml unknown key", "allowed: []\n", FormatYAML},
		{"short pair", "forbidden = [[\"A\"]]\n", FormatTOML},
		{"json", "{}", "json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodePrior([]byte(tt.doc), tt.format)
			if err == nil {
				_, _, err = p.Pairs()
			}
			if !errs.Is(err, errs.ErrCodeInvalidFormat) {
				t.Errorf("error = %v, want INVALID_FORMAT", err)
			}
		})
	}
}

func TestReadPriorFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prior.yml")
	_ = os.WriteFile(path, []byte("required:\n  - [A, B]\n"), 0o644)
	fr, err := ReadPriorFile(path, []string{"A", "B"})
	if err != nil || !fr.IsRequired(0, 1) {
		t.Errorf("ReadPriorFile() = %v, %v", fr, err)
	}
	if _, err := ReadPriorFile(filepath.Join(dir, "prior.ini"), nil); !errs.Is(err, errs.ErrCodeInvalidFormat) {
		t.Errorf("ReadPriorFile(.ini) error = %v, want INVALID_FORMAT", err)
	}
	if _, err := ReadPriorFile(filepath.Join(dir, "none.toml"), nil); !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("ReadPriorFile(missing) error = %v, want FILE_NOT_FOUND", err)
	}
	_ = os.WriteFile(path, []byte("required:\n  - [A, Z]\n"), 0o644)
	if _, err := ReadPriorFile(path, []string{"A", "B"}); !errs.Is(err, errs.ErrCodeUnknownVertex) {
		t.Errorf("ReadPriorFile(unknown label) error = %v, want UNKNOWN_VERTEX", err)
	}
}
