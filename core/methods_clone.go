// File: methods_clone.go
// Role: CloneEmpty/Clone/InducedSubgraph.
// Determinism:
//   - Clone preserves edge IDs; InducedSubgraph re-adds edges in Edges() order.

package core

// CloneEmpty returns a new Graph with the same flags and vertices but no edges.
// Complexity: O(V).
func (g *Graph) CloneEmpty() *Graph {
	g.muVert.RLock()
	defer g.muVert.RUnlock()
	out := &Graph{
		directed:   g.directed,
		weighted:   g.weighted,
		allowLoops: g.allowLoops,
		vertices:   make(map[string]*Vertex, len(g.vertices)),
		edges:      make(map[string]*Edge),
		adjacency:  make(map[string]map[string]string),
	}
	for id := range g.vertices {
		out.vertices[id] = &Vertex{ID: id}
	}

	return out
}

// Clone returns a deep copy of g, including edge IDs and the ID counter.
// Complexity: O(V+E).
func (g *Graph) Clone() *Graph {
	out := g.CloneEmpty()
	g.muEdgeAdj.RLock()
	defer g.muEdgeAdj.RUnlock()
	out.nextEdgeID = g.nextEdgeID
	for eid, e := range g.edges {
		cp := *e
		out.edges[eid] = &cp
	}
	for from, inner := range g.adjacency {
		m := make(map[string]string, len(inner))
		for to, eid := range inner {
			m[to] = eid
		}
		out.adjacency[from] = m
	}

	return out
}

// InducedSubgraph returns the subgraph on the vertices in keep (IDs absent from
// g are ignored) with every edge whose endpoints are both kept.
// Complexity: O(V+E log E).
func InducedSubgraph(g *Graph, keep map[string]bool) *Graph {
	out := NewGraph(func(o *Graph) {
		o.directed = g.Directed()
		o.weighted = g.Weighted()
		o.allowLoops = g.Looped()
	})
	for _, id := range g.Vertices() {
		if keep[id] {
			_ = out.AddVertex(id)
		}
	}
	for _, e := range g.Edges() {
		if keep[e.From] && keep[e.To] {
			// Flags are copied from g, so every edge of g is admissible.
			_, _ = out.AddEdge(e.From, e.To, e.Weight)
		}
	}

	return out
}
