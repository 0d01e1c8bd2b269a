package neighbors

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/katalvlaran/scflow/core"
	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/internal/parallel"
	"github.com/katalvlaran/scflow/matrix"
)

// DefaultPrune drops SNN edges with Jaccard overlap below 1/15.
const DefaultPrune = 1.0 / 15

// Options configures Build.
type Options struct {
	K int
	// Dims is the number of leading embedding columns used; 0 means all.
	Dims    int
	Prune   float64
	Workers int
}

// DefaultOptions returns k=20, all dimensions and the 1/15 prune threshold.
func DefaultOptions() Options {
	return Options{K: 20, Prune: DefaultPrune}
}

// KNN holds the k nearest neighbors of every cell.
type KNN struct {
	IDs []string
	K   int
	// Neighbors[i] lists the indices of the k nearest cells to cell i.
	Neighbors [][]int
	Distances [][]float64
}

// FindKNN queries idx for every point in parallel.
func FindKNN(ctx context.Context, idx Index, k, workers int) (*KNN, error) {
	if idx == nil || idx.Len() == 0 {
		return nil, ErrEmpty
	}
	n := idx.Len()
	if k < 1 || k > n-1 {
		return nil, fmt.Errorf("k=%d with %d cells: %w", k, n, ErrBadK)
	}
	out := &KNN{
		IDs:       make([]string, n),
		K:         k,
		Neighbors: make([][]int, n),
		Distances: make([][]float64, n),
	}
	err := parallel.For(ctx, n, workers, func(i int) error {
		hits, err := idx.Query(i, k)
		if err != nil {
			return err
		}
		out.IDs[i] = idx.ID(i)
		nb, dist := make([]int, k), make([]float64, k)
		for j, h := range hits {
			nb[j], dist[j] = h.Index, h.Distance
		}
		out.Neighbors[i], out.Distances[i] = nb, dist
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Graph returns the directed KNN graph with distances as edge weights.
func (k *KNN) Graph() (*core.Graph, error) {
	g := core.NewGraph(core.WithDirected(true), core.WithWeighted())
	for _, id := range k.IDs {
		if err := g.AddVertex(id); err != nil {
			return nil, err
		}
	}
	for i, nb := range k.Neighbors {
		for j, other := range nb {
			if _, err := g.AddEdge(k.IDs[i], k.IDs[other], k.Distances[i][j]); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

// SNN converts KNN lists into the pruned, undirected shared-nearest-neighbor
// graph. Every pair of cells whose neighbor sets intersect is a candidate
// edge, so each KNN pair is scored together with the cells two hops apart.
func SNN(ctx context.Context, knn *KNN, prune float64, workers int) (*core.Graph, error) {
	if knn == nil || len(knn.IDs) == 0 {
		return nil, ErrEmpty
	}
	if prune < 0 || prune > 1 || math.IsNaN(prune) {
		return nil, diag.Invalid(stage, "prune %v outside [0,1]", prune)
	}
	n := len(knn.IDs)
	sets := make([][]int, n)
	// holders[j] lists the cells whose neighbor set contains j.
	holders := make([][]int, n)
	for i, nb := range knn.Neighbors {
		s := make([]int, 0, len(nb)+1)
		s = append(s, i)
		s = append(s, nb...)
		sets[i] = s
		for _, j := range s {
			holders[j] = append(holders[j], i)
		}
	}

	edges := make([][]weighted, n)
	err := parallel.For(ctx, n, workers, func(i int) error {
		shared := make(map[int]int)
		for _, j := range sets[i] {
			for _, other := range holders[j] {
				if other > i {
					shared[other]++
				}
			}
		}
		out := make([]weighted, 0, len(shared))
		for other, inter := range shared {
			w := float64(inter) / float64(len(sets[i])+len(sets[other])-inter)
			if w >= prune {
				out = append(out, weighted{to: other, w: w})
			}
		}
		slices.SortFunc(out, func(a, b weighted) int { return a.to - b.to })
		edges[i] = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	g := core.NewGraph(core.WithWeighted())
	for _, id := range knn.IDs {
		if err = g.AddVertex(id); err != nil {
			return nil, err
		}
	}
	for i, out := range edges {
		for _, e := range out {
			if _, err = g.AddEdge(knn.IDs[i], knn.IDs[e.to], e.w); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

type weighted struct {
	to int
	w  float64
}

// Build runs the index, KNN and SNN steps over an embedding (cells × d).
func Build(ctx context.Context, ids []string, points *matrix.Dense, opts Options) (*KNN, *core.Graph, error) {
	idx, err := NewBruteForce(ids, points, opts.Dims)
	if err != nil {
		return nil, nil, err
	}
	knn, err := FindKNN(ctx, idx, opts.K, opts.Workers)
	if err != nil {
		return nil, nil, err
	}
	g, err := SNN(ctx, knn, opts.Prune, opts.Workers)
	if err != nil {
		return nil, nil, err
	}

	return knn, g, nil
}
