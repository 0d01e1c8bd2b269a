// File: methods_adjacent.go
// Role: Neighborhood APIs (Neighbors, NeighborIDs, Strength).
// Determinism:
//   - Neighbors() and NeighborIDs() are sorted by neighbor ID ascending.
// Concurrency:
//   - muVert then muEdgeAdj read locks, the same order as mutators.

package core

import "sort"

// Neighbors returns the adjacent vertices of id with edge weights.
// Directed graphs report out-neighbors only; a self-loop appears once.
//
// Errors: ErrEmptyVertexID, ErrVertexNotFound.
// Complexity: O(d log d).
func (g *Graph) Neighbors(id string) ([]Neighbor, error) {
	if id == "" {
		return nil, ErrEmptyVertexID
	}
	g.muVert.RLock()
	defer g.muVert.RUnlock()
	g.muEdgeAdj.RLock()
	defer g.muEdgeAdj.RUnlock()
	if _, ok := g.vertices[id]; !ok {
		return nil, ErrVertexNotFound
	}
	inner := g.adjacency[id]
	out := make([]Neighbor, 0, len(inner))
	for to, eid := range inner {
		out = append(out, Neighbor{ID: to, Weight: g.edges[eid].Weight})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

// NeighborIDs returns the adjacent vertex IDs of id, sorted ascending.
//
// Errors: ErrEmptyVertexID, ErrVertexNotFound.
// Complexity: O(d log d).
func (g *Graph) NeighborIDs(id string) ([]string, error) {
	nbs, err := g.Neighbors(id)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(nbs))
	for i, nb := range nbs {
		out[i] = nb.ID
	}

	return out, nil
}

// Strength returns the weighted degree of id: the sum of the weights of its
// incident edges (out-edges for directed graphs), a self-loop counted once.
//
// Errors: ErrEmptyVertexID, ErrVertexNotFound.
// Complexity: O(d).
func (g *Graph) Strength(id string) (float64, error) {
	nbs, err := g.Neighbors(id)
	if err != nil {
		return 0, err
	}
	var s float64
	for _, nb := range nbs {
		s += nb.Weight
	}

	return s, nil
}
