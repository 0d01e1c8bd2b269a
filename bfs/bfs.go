package bfs

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/scflow/core"
)

// ErrNeighbors is returned when fetching neighbors from the graph fails.
var ErrNeighbors = errors.New("bfs: neighbor iteration error")

type queueItem struct {
	id    string
	depth int
}

// walker encapsulates mutable BFS state.
type walker struct {
	graph   *core.Graph
	opts    Options
	queue   []queueItem
	head    int
	visited map[string]bool
	res     *Result
}

// BFS runs breadth-first search on g starting from startID.
func BFS(g *core.Graph, startID string, opts ...Option) (*Result, error) {
	if g == nil {
		return nil, ErrGraphNil
	}
	o, err := resolve(opts)
	if err != nil {
		return nil, err
	}
	if !g.HasVertex(startID) {
		return nil, fmt.Errorf("%q: %w", startID, ErrStartVertexNotFound)
	}

	w := newWalker(g, o, nil)
	w.enqueue(startID, 0)

	return w.res, w.loop()
}

func newWalker(g *core.Graph, o Options, visited map[string]bool) *walker {
	if visited == nil {
		visited = make(map[string]bool)
	}

	return &walker{
		graph:   g,
		opts:    o,
		visited: visited,
		res:     &Result{Depth: make(map[string]int)},
	}
}

func (w *walker) enqueue(id string, d int) {
	w.visited[id] = true
	w.res.Depth[id] = d
	w.queue = append(w.queue, queueItem{id: id, depth: d})
}

// loop processes the queue until empty, error, or cancellation.
func (w *walker) loop() error {
	for w.head < len(w.queue) {
		if err := w.opts.Ctx.Err(); err != nil {
			return err
		}
		item := w.queue[w.head]
		w.head++
		w.res.Order = append(w.res.Order, item.id)

		next := item.depth + 1
		if w.opts.MaxDepth > 0 && next > w.opts.MaxDepth {
			continue
		}
		neighbors, err := w.graph.NeighborIDs(item.id)
		if err != nil {
			return fmt.Errorf("%w: neighbors of %q: %v", ErrNeighbors, item.id, err)
		}
		for _, nbr := range neighbors {
			if w.visited[nbr] || !w.opts.Keep(item.id, nbr) {
				continue
			}
			w.enqueue(nbr, next)
		}
	}

	return nil
}
