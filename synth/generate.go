// SPDX-License-Identifier: MIT
// Package: scflow/synth
//
// generate.go: Generate(cells, genes, opts...).
//
// Layout of the gene axis (stable):
//   • [0, clusters·markers)       markers, cluster c owns [c·markers, (c+1)·markers)
//   • [.., genes-mitoGenes)        background genes
//   • [genes-mitoGenes, genes)     mitochondrial genes "MT-<i>"
//
// Cells are assigned to clusters round-robin so cluster sizes differ by at
// most one; damaged cells are drawn independently with probability damagedFrac.
//
// Determinism: draws happen in a fixed order (gene rates, then per cell:
// depth, damage flag, counts in gene order).

package synth

import (
	"strconv"

	"github.com/katalvlaran/scflow/expr"
	"github.com/katalvlaran/scflow/meta"
)

const methodGenerate = "Generate"

// Metadata column names written by Generate.
const (
	ColumnCluster = "planted_cluster"
	ColumnDepth   = "depth"
	ColumnDamaged = "damaged"
)

// Dataset is a synthetic experiment with its ground truth.
type Dataset struct {
	Counts *expr.Matrix
	// Meta carries the planted cluster, sequencing depth and damage flag per cell.
	Meta *meta.Table
	// Truth is the planted cluster of each cell, in cell order.
	Truth []int
	// Markers lists the planted marker genes of each cluster.
	Markers [][]string
}

// Generate builds a dataset of the given size.
//
// Errors: ErrTooSmall (cells < 2·clusters or genes < 1), ErrTooManyMarkers.
// Complexity: O(cells · genes).
func Generate(cells, genes int, opts ...Option) (*Dataset, error) {
	cfg := newConfig(opts...)
	if genes < 1 || cells < 2*cfg.clusters {
		return nil, synthErrorf(methodGenerate, "cells=%d genes=%d clusters=%d: %w",
			cells, genes, cfg.clusters, ErrTooSmall)
	}
	nMarkers := cfg.clusters * cfg.markers
	if nMarkers+cfg.mitoGenes > genes {
		return nil, synthErrorf(methodGenerate, "%d markers + %d mito > %d genes: %w",
			nMarkers, cfg.mitoGenes, genes, ErrTooManyMarkers)
	}

	r := cfg.rng
	geneIDs := make([]string, genes)
	rates := make([]float64, genes)
	mitoStart := genes - cfg.mitoGenes
	for g := range geneIDs {
		if g >= mitoStart {
			geneIDs[g] = MitoPrefix + strconv.Itoa(g-mitoStart)
		} else {
			geneIDs[g] = cfg.geneID(g)
		}
		rates[g] = uniform(r, cfg.baseLow, cfg.baseHigh)
	}
	markers := make([][]string, cfg.clusters)
	for c := range markers {
		markers[c] = append([]string(nil), geneIDs[c*cfg.markers:(c+1)*cfg.markers]...)
	}

	cellIDs := make([]string, cells)
	truth := make([]int, cells)
	depth := make([]float64, cells)
	clusterCol := make([]string, cells)
	damagedCol := make([]string, cells)
	var entries []expr.Entry
	for c := 0; c < cells; c++ {
		cellIDs[c] = cfg.cellID(c)
		k := c % cfg.clusters
		truth[c] = k
		clusterCol[c] = strconv.Itoa(k)
		depth[c] = uniform(r, cfg.depthLow, cfg.depthHigh)
		damaged := cfg.damagedFrac > 0 && r.Float64() < cfg.damagedFrac
		damagedCol[c] = strconv.FormatBool(damaged)

		for g := 0; g < genes; g++ {
			lambda := depth[c] * rates[g]
			switch {
			case g < nMarkers && g/cfg.markers == k:
				lambda *= cfg.foldChange
			case g >= mitoStart && damaged:
				lambda *= cfg.damageFold
			}
			if v := poisson(r, lambda); v > 0 {
				entries = append(entries, expr.Entry{Gene: g, Cell: c, Value: v})
			}
		}
	}

	m, err := expr.New(geneIDs, cellIDs, entries)
	if err != nil {
		return nil, synthErrorf(methodGenerate, "%w", err)
	}
	md, err := meta.NewTable(cellIDs)
	if err == nil {
		md, err = md.WithCategorical(ColumnCluster, clusterCol)
	}
	if err == nil {
		md, err = md.WithNumeric(ColumnDepth, depth)
	}
	if err == nil {
		md, err = md.WithCategorical(ColumnDamaged, damagedCol)
	}
	if err != nil {
		return nil, synthErrorf(methodGenerate, "%w", err)
	}

	return &Dataset{Counts: m, Meta: md, Truth: truth, Markers: markers}, nil
}
