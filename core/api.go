// SPDX-License-Identifier: MIT
//
// File: api.go
// Role: Read-only getters for construction flags and the Stats snapshot.
// Policy:
//   - No algorithms or hidden state here.
//   - Concurrency model and invariants are defined in types.go.

package core

// Weighted reports whether non-zero weights are permitted.
// Complexity: O(1).
func (g *Graph) Weighted() bool {
	g.muVert.RLock()
	defer g.muVert.RUnlock()

	return g.weighted
}

// Directed reports whether edges are one-way.
// Complexity: O(1).
func (g *Graph) Directed() bool {
	g.muVert.RLock()
	defer g.muVert.RUnlock()

	return g.directed
}

// Looped reports whether self-loops are permitted.
// Complexity: O(1).
func (g *Graph) Looped() bool {
	g.muVert.RLock()
	defer g.muVert.RUnlock()

	return g.allowLoops
}

// Stats produces a read-only snapshot of flags, catalog sizes, isolated
// vertices and total edge weight.
//
// Implementation:
//   - Stage 1: under muVert, snapshot flags and vertex IDs.
//   - Stage 2: under muEdgeAdj, count edges, sum weights, and count vertices
//     with no adjacency entry in either direction.
//
// Complexity: O(V+E).
func (g *Graph) Stats() *GraphStats {
	g.muVert.RLock()
	stats := GraphStats{
		Directed:    g.directed,
		Weighted:    g.weighted,
		AllowsLoops: g.allowLoops,
		VertexCount: len(g.vertices),
	}
	ids := make([]string, 0, len(g.vertices))
	for id := range g.vertices {
		ids = append(ids, id)
	}
	g.muVert.RUnlock()

	g.muEdgeAdj.RLock()
	defer g.muEdgeAdj.RUnlock()
	stats.EdgeCount = len(g.edges)
	touched := make(map[string]bool, len(ids))
	for _, e := range g.edges {
		stats.TotalWeight += e.Weight
		touched[e.From] = true
		touched[e.To] = true
	}
	for _, id := range ids {
		if !touched[id] {
			stats.IsolatedCount++
		}
	}

	return &stats
}
