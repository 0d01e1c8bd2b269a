package cluster

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/katalvlaran/scflow/bfs"
	"github.com/katalvlaran/scflow/core"
	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/internal/parallel"
	"github.com/katalvlaran/scflow/internal/rng"
)

const stage = "cluster"

// Sentinel errors; all match diag.ErrInvalidInput.
var (
	// ErrEmptyGraph is returned when the graph has no vertices.
	ErrEmptyGraph = diag.NewSentinel("cluster: graph has no vertices")

	// ErrDirectedGraph is returned for directed input graphs.
	ErrDirectedGraph = diag.NewSentinel("cluster: graph must be undirected")

	// ErrNegativeWeight is returned when an edge weight is negative.
	ErrNegativeWeight = diag.NewSentinel("cluster: negative edge weight")

	// ErrLength is returned when labels and cells differ in length.
	ErrLength = diag.NewSentinel("cluster: labels and cells differ in length")
)

// Options configures Partition.
type Options struct {
	Resolution    float64 `yaml:"resolution"`
	RandomStarts  int     `yaml:"random_starts"`
	MaxIterations int     `yaml:"max_iterations"`
	MaxSweeps     int     `yaml:"max_sweeps"`
	Seed          int64   `yaml:"seed"`
	// GroupSingletons merges one-cell clusters into their best-connected cluster.
	GroupSingletons bool `yaml:"group_singletons"`
	Workers         int  `yaml:"-"`
}

// DefaultOptions returns resolution 0.8, 10 starts of at most 10 levels and singleton grouping.
func DefaultOptions() Options {
	return Options{
		Resolution:      0.8,
		RandomStarts:    10,
		MaxIterations:   10,
		MaxSweeps:       100,
		Seed:            rng.DefaultSeed,
		GroupSingletons: true,
	}
}

func (o Options) validate() error {
	switch {
	case !(o.Resolution > 0) || math.IsInf(o.Resolution, 0):
		return diag.Invalid(stage, "resolution %v must be positive", o.Resolution)
	case o.RandomStarts < 1:
		return diag.Invalid(stage, "RandomStarts %d < 1", o.RandomStarts)
	case o.MaxIterations < 1:
		return diag.Invalid(stage, "MaxIterations %d < 1", o.MaxIterations)
	case o.MaxSweeps < 1:
		return diag.Invalid(stage, "MaxSweeps %d < 1", o.MaxSweeps)
	}

	return nil
}

// Assignment maps every cell to a cluster label.
type Assignment struct {
	Cells      []string    `json:"cells"`
	Labels     []int       `json:"labels"`
	Sizes      []int       `json:"sizes"`
	Modularity float64     `json:"modularity"`
	Resolution float64     `json:"resolution"`
	Start      int         `json:"start"`
	Levels     int         `json:"levels"`
	Components int         `json:"components"`
	Converged  bool        `json:"converged"`
	Report     diag.Report `json:"report"`

	indexOnce sync.Once
	index     map[string]int
}

// NewAssignment builds an assignment from parallel cell and label slices,
// renumbering labels by size. It is used to restore persisted assignments.
func NewAssignment(cells []string, labels []int) (*Assignment, error) {
	if len(cells) != len(labels) {
		return nil, fmt.Errorf("%d cells, %d labels: %w", len(cells), len(labels), ErrLength)
	}
	for _, l := range labels {
		if l < 0 || l >= len(labels) {
			return nil, diag.Invalid(stage, "label %d out of range", l)
		}
	}
	a := &Assignment{Cells: append([]string(nil), cells...)}
	a.Labels, a.Sizes = relabel(labels)

	return a, nil
}

// NumClusters returns the number of distinct labels.
func (a *Assignment) NumClusters() int { return len(a.Sizes) }

// Label returns the cluster of a cell.
func (a *Assignment) Label(cell string) (int, bool) {
	a.indexOnce.Do(func() {
		a.index = make(map[string]int, len(a.Cells))
		for i, c := range a.Cells {
			a.index[c] = i
		}
	})
	i, ok := a.index[cell]
	if !ok {
		return 0, false
	}

	return a.Labels[i], true
}

// Members returns the cells of one cluster in assignment order.
func (a *Assignment) Members(label int) []string {
	var out []string
	for i, l := range a.Labels {
		if l == label {
			out = append(out, a.Cells[i])
		}
	}

	return out
}

// Partition clusters an undirected weighted graph.
//
// Errors: ErrEmptyGraph, ErrDirectedGraph, ErrNegativeWeight, invalid options,
// or ctx cancellation.
func Partition(ctx context.Context, g *core.Graph, opts Options) (*Assignment, error) {
	if g == nil || g.VertexCount() == 0 {
		return nil, ErrEmptyGraph
	}
	if g.Directed() {
		return nil, ErrDirectedGraph
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	nw, ids, err := fromGraph(g)
	if err != nil {
		return nil, err
	}

	type outcome struct {
		labels    []int
		q         float64
		levels    int
		converged bool
	}
	runs := make([]outcome, opts.RandomStarts)
	err = parallel.For(ctx, opts.RandomStarts, opts.Workers, func(s int) error {
		r := rng.Derive(opts.Seed, uint64(s))
		labels, levels, ok := nw.louvain(r, opts)
		runs[s] = outcome{labels: labels, q: nw.modularity(labels, opts.Resolution), levels: levels, converged: ok}
		return nil
	})
	if err != nil {
		return nil, err
	}
	best := 0
	for s := 1; s < len(runs); s++ {
		if runs[s].q > runs[best].q {
			best = s
		}
	}
	win := runs[best]

	a := &Assignment{
		Cells:      ids,
		Resolution: opts.Resolution,
		Start:      best,
		Levels:     win.levels,
		Converged:  win.converged,
	}
	labels := win.labels
	if !win.converged {
		a.Report.NotConverged(stage, "modularity optimization hit its iteration cap (start %d)", best)
	}
	if opts.GroupSingletons {
		labels = nw.groupSingletons(labels)
	}
	a.Labels, a.Sizes = relabel(labels)
	a.Modularity = nw.modularity(a.Labels, opts.Resolution)

	comps, err := bfs.Components(g, bfs.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	a.Components = len(comps)
	if a.NumClusters() == 1 && len(ids) > 1 {
		a.Report.Degenerate(stage, "all %d cells fell into one cluster", len(ids))
	}

	return a, nil
}

// groupSingletons moves every one-vertex cluster with neighbors into the
// multi-vertex cluster of highest mean connectivity. Ties go to the cluster
// whose first member comes first.
func (nw *network) groupSingletons(labels []int) []int {
	size := make([]int, len(labels))
	for _, l := range labels {
		size[l]++
	}
	out := slices.Clone(labels)
	sum := make([]float64, len(labels))
	var touched []int
	for i, l := range labels {
		if size[l] != 1 {
			continue
		}
		touched = touched[:0]
		for _, a := range nw.adj[i] {
			c := labels[a.to]
			if size[c] < 2 {
				continue
			}
			if sum[c] == 0 {
				touched = append(touched, c)
			}
			sum[c] += a.w
		}
		best, bestConn := -1, 0.0
		for _, c := range touched {
			conn := sum[c] / float64(size[c])
			if conn > bestConn || (conn == bestConn && best >= 0 && firstBefore(labels, c, best)) {
				best, bestConn = c, conn
			}
		}
		for _, c := range touched {
			sum[c] = 0
		}
		if best >= 0 {
			out[i] = best
		}
	}

	return out
}

// firstBefore reports whether label a's first member precedes label b's.
func firstBefore(labels []int, a, b int) bool {
	for _, l := range labels {
		switch l {
		case a:
			return true
		case b:
			return false
		}
	}

	return false
}

// relabel renumbers labels 0..c-1 by size descending, ties by first member.
func relabel(labels []int) ([]int, []int) {
	first := make(map[int]int)
	count := make(map[int]int)
	for i, l := range labels {
		if _, ok := first[l]; !ok {
			first[l] = i
		}
		count[l]++
	}
	keys := make([]int, 0, len(first))
	for l := range first {
		keys = append(keys, l)
	}
	slices.SortFunc(keys, func(x, y int) int {
		if count[x] != count[y] {
			return count[y] - count[x]
		}
		return first[x] - first[y]
	})
	remap := make(map[int]int, len(keys))
	sizes := make([]int, len(keys))
	for newID, l := range keys {
		remap[l] = newID
		sizes[newID] = count[l]
	}
	out := make([]int, len(labels))
	for i, l := range labels {
		out[i] = remap[l]
	}

	return out, sizes
}
