// Package nodelink renders graphs as node-link diagrams.
//
// [ToDOT] produces Graphviz DOT source for directed graphs (digraph, "->")
// and undirected skeletons (graph, "--"). Vertices are rounded boxes named
// by their labels; vertices excluded from a sub-graph view are omitted.
// When prior knowledge is supplied, required edges are drawn bold. Edge
// weights, such as per-edge score contributions, become edge labels.
//
// [RenderSVG] and [RenderPNG] lay the DOT out with the dot engine of
// [github.com/goccy/go-graphviz], which runs Graphviz compiled to
// WebAssembly, so no system Graphviz is needed.
package nodelink
