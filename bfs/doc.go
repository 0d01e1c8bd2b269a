// Package bfs provides breadth-first traversal over a core.Graph and the
// connected-component decomposition built on it.
//
// BFS explores vertices in non-decreasing hop distance from a start vertex.
// Edge weights are ignored: SNN and KNN graphs are weighted, but reachability
// only depends on the presence of an edge.
//
// Determinism
//
//	core.Graph.NeighborIDs returns neighbors sorted by ID and BFS enqueues them
//	in that order, so the visit order is reproducible. Components are seeded
//	from the lexicographically smallest unvisited vertex.
//
// Complexity (V = |Vertices|, E = |Edges|)
//
//   - Time:   O(V + E)
//   - Memory: O(V)
//
// Errors
//
//   - ErrGraphNil             if the graph pointer is nil.
//   - ErrStartVertexNotFound  if the start vertex does not exist.
//   - ErrOptionViolation      if invalid Option (e.g. negative MaxDepth).
//   - ErrNeighbors            if core.NeighborIDs fails for any vertex.
//   - The context error on cancellation.
package bfs
