package cluster

import (
	"context"

	"github.com/katalvlaran/scflow/core"
	"github.com/katalvlaran/scflow/matrix"
	"github.com/katalvlaran/scflow/neighbors"
)

// FindOptions composes neighbor-graph construction and partitioning.
type FindOptions struct {
	Neighbors neighbors.Options
	Cluster   Options
	// RetainGraph keeps the SNN graph on the result so it can be
	// partitioned again at another resolution.
	RetainGraph bool
}

// DefaultFindOptions returns the neighbor and cluster defaults with the graph retained.
func DefaultFindOptions() FindOptions {
	return FindOptions{
		Neighbors:   neighbors.DefaultOptions(),
		Cluster:     DefaultOptions(),
		RetainGraph: true,
	}
}

// Found is the outcome of FindClusters.
type Found struct {
	Assignment *Assignment
	KNN        *neighbors.KNN
	// Graph is the SNN graph, nil unless RetainGraph was set.
	Graph *core.Graph
}

// FindClusters builds the SNN graph over points (cells × d) and partitions it.
func FindClusters(ctx context.Context, ids []string, points *matrix.Dense, opts FindOptions) (*Found, error) {
	if opts.Neighbors.Workers == 0 {
		opts.Neighbors.Workers = opts.Cluster.Workers
	}
	knn, g, err := neighbors.Build(ctx, ids, points, opts.Neighbors)
	if err != nil {
		return nil, err
	}
	a, err := Partition(ctx, g, opts.Cluster)
	if err != nil {
		return nil, err
	}
	out := &Found{Assignment: a, KNN: knn}
	if opts.RetainGraph {
		out.Graph = g
	}

	return out, nil
}
