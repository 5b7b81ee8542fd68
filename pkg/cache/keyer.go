package cache

import "time"

// Default TTLs for cached entries.
const (
	// FitTTL is how long a learned graph is kept.
	FitTTL = 7 * 24 * time.Hour
	// RenderTTL is how long a rendered artifact is kept.
	RenderTTL = 24 * time.Hour
)

// FitKeyOpts are the options that change the outcome of a fit.
type FitKeyOpts struct {
	Algorithm     string  `json:"algorithm"`
	Score         string  `json:"score"`
	Family        string  `json:"family"`
	PseudoCount   float64 `json:"pseudo_count"`
	Penalty       float64 `json:"penalty"`
	MaxIterations int     `json:"max_iterations"`
	MaxInDegree   int     `json:"max_in_degree"`
	Shuffle       bool    `json:"shuffle"`
	Seed          uint64  `json:"seed"`
	Init          string  `json:"init"`
	// InitialGraphHash and PriorHash are hashes of the serialized start
	// graph and prior knowledge; empty when absent.
	InitialGraphHash string `json:"initial_graph_hash"`
	PriorHash        string `json:"prior_hash"`
}

// RenderKeyOpts are the options that change a rendered artifact.
type RenderKeyOpts struct {
	Format string `json:"format"`
	Layout string `json:"layout"`
}

// Keyer derives cache keys.
type Keyer interface {
	// FitKey returns the key of a fit of the dataset with the given hash.
	FitKey(dataHash string, opts FitKeyOpts) string
	// RenderKey returns the key of a rendering of the graph with the given
	// hash.
	RenderKey(graphHash string, opts RenderKeyOpts) string
}

// DefaultKeyer hashes inputs and options into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// FitKey returns "fit:v2:<sha256>".
func (DefaultKeyer) FitKey(dataHash string, opts FitKeyOpts) string {
	return hashKey("fit", dataHash, opts)
}

// RenderKey returns "render:v2:<sha256>".
func (DefaultKeyer) RenderKey(graphHash string, opts RenderKeyOpts) string {
	return hashKey("render", graphHash, opts)
}
