package io

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/matzehuels/causalhub/pkg/dag"
	errs "github.com/matzehuels/causalhub/pkg/errors"
)

// Graph is the JSON form of a directed or partially directed graph.
type Graph struct {
	Labels []string `json:"labels"`
	Edges  []Edge   `json:"edges"`
}

// Edge is an edge between two labels. Undirected marks a line of a CPDAG.
type Edge struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Undirected bool   `json:"undirected,omitempty"`
}

// ToGraph converts g to its JSON form.
func ToGraph(g dag.Graph) Graph {
	out := Graph{Labels: g.Labels(), Edges: []Edge{}}
	p, mixed := g.(*dag.PDAG)
	for _, e := range g.Edges() {
		out.Edges = append(out.Edges, Edge{
			From:       g.Label(e.From),
			To:         g.Label(e.To),
			Undirected: mixed && p.HasLine(e.From, e.To),
		})
	}
	return out
}

// DAG builds a DAG from the JSON form. Cycles are reported as CYCLE
// errors and undirected edges as INVALID_FORMAT errors.
func (j Graph) DAG() (*dag.DAG, error) {
	edges := make([][2]string, len(j.Edges))
	for i, e := range j.Edges {
		if e.Undirected {
			return nil, errs.New(errs.ErrCodeInvalidFormat, "edge %s — %s is undirected", e.From, e.To)
		}
		edges[i] = [2]string{e.From, e.To}
	}
	return dag.FromEdges(j.Labels, edges)
}

// PDAG builds a partially directed graph from the JSON form.
func (j Graph) PDAG() (*dag.PDAG, error) {
	g, err := dag.NewEmptyPDAG(j.Labels)
	if err != nil {
		return nil, err
	}
	for _, e := range j.Edges {
		idx, err := dag.Indices(g, e.From, e.To)
		if err != nil {
			return nil, err
		}
		add := g.AddArc
		if e.Undirected {
			add = g.AddLine
		}
		if err := add(idx[0], idx[1]); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// MarshalGraph returns the indented JSON encoding of g.
func MarshalGraph(g dag.Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteGraphJSON(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraphJSON writes g to w.
func WriteGraphJSON(w io.Writer, g dag.Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ToGraph(g))
}

// Decode builds the DAG of j, or its PDAG when some edge is undirected.
func (j Graph) Decode() (dag.Graph, error) {
	for _, e := range j.Edges {
		if e.Undirected {
			return j.PDAG()
		}
	}
	return j.DAG()
}

func decodeGraph(r io.Reader) (Graph, error) {
	var j Graph
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&j); err != nil {
		return Graph{}, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode graph")
	}
	return j, nil
}

// ReadGraphJSON decodes a DAG from r.
func ReadGraphJSON(r io.Reader) (*dag.DAG, error) {
	j, err := decodeGraph(r)
	if err != nil {
		return nil, err
	}
	return j.DAG()
}

// ReadGraphFile reads a JSON graph file.
func ReadGraphFile(path string) (*dag.DAG, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGraphJSON(f)
}

// ReadAnyGraphFile reads a JSON DAG or CPDAG file.
func ReadAnyGraphFile(path string) (dag.Graph, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	j, err := decodeGraph(f)
	if err != nil {
		return nil, err
	}
	return j.Decode()
}

// WriteGraphFile writes g to path, or to stdout when path is "-".
func WriteGraphFile(path string, g dag.Graph) error {
	if path == "-" {
		return WriteGraphJSON(os.Stdout, g)
	}
	data, err := MarshalGraph(g)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
