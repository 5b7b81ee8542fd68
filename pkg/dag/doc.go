// Package dag provides the graph model used by structure learning: dense
// adjacency-matrix graphs over a fixed, sorted set of labeled vertices.
//
// # Overview
//
// Every graph is built over a vertex set fixed at construction. Labels are
// sorted and must be unique; vertex i carries the i-th label, so indices
// are stable for the lifetime of the graph and across clones, snapshots and
// sub-graph views. Edges are stored in an N×N boolean matrix, which keeps
// edge queries O(1) and makes cloning a single copy.
//
// # Variants
//
// The package offers one type per capability level:
//
//   - [Undirected]: symmetric adjacency; used for skeletons, moral graphs
//     and constraint-based search
//   - [Directed]: no acyclicity guarantee; used for imported graphs
//   - [DAG]: acyclic at all times, with a maintained topological order
//     (it implements [PartiallyOrdered])
//   - [Snapshot]: immutable DAG view returned by searches and by
//     [DAG.Induced]
//
// Read-only code should accept the [Graph], [DirectedGraph] or
// [PartiallyOrdered] interfaces.
//
// # Mutation
//
// Graphs change only through AddEdge, RemoveEdge and (for DAGs)
// ReverseEdge. A DAG rejects an insertion or reversal that would close a
// directed cycle with an error carrying the CYCLE code and wrapping
// [ErrCycle]; the graph is unchanged afterwards:
//
//	g, _ := dag.New([]string{"A", "B", "C"})
//	_ = g.AddEdge(0, 1) // A -> B
//	_ = g.AddEdge(1, 2) // B -> C
//	err := g.AddEdge(2, 0)
//	errors.Is(err, dag.ErrCycle) // true
//
// [DAG.CanAddEdge] and [DAG.CanReverseEdge] run the same checks without
// mutating, so candidate moves can be screened concurrently.
//
// A reversal is judged on the graph with the reversal fully applied. With
// A→B, A→C and C→B, reversing A→B would produce B→A→C→B, so it is
// rejected even though B does not reach A before the reversal.
//
// # Concurrency
//
// Graphs are not safe for concurrent mutation. Concurrent reads are safe
// while no goroutine mutates. Snapshots never change and can be shared
// freely.
package dag
