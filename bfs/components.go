package bfs

import "github.com/katalvlaran/scflow/core"

// Components partitions the vertices of g into connected components.
//
// Each component is sorted by vertex ID, and components are ordered by size
// descending with ties broken by their smallest ID. Directed edges are
// followed only forward, so pass an undirected graph for weak connectivity.
//
// MaxDepth is ignored. Complexity: O(V + E) plus sorting.
func Components(g *core.Graph, opts ...Option) ([][]string, error) {
	if g == nil {
		return nil, ErrGraphNil
	}
	o, err := resolve(opts)
	if err != nil {
		return nil, err
	}
	o.MaxDepth = 0

	visited := make(map[string]bool, g.VertexCount())
	var comps [][]string
	for _, id := range g.Vertices() {
		if visited[id] {
			continue
		}
		w := newWalker(g, o, visited)
		w.enqueue(id, 0)
		if err := w.loop(); err != nil {
			return nil, err
		}
		comp := w.res.Order
		sortIDs(comp)
		comps = append(comps, comp)
	}
	sortComponents(comps)

	return comps, nil
}
