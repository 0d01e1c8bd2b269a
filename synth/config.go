// SPDX-License-Identifier: MIT
// Package: scflow/synth
//
// config.go: internal configuration and deterministic defaults.
//
// Deterministic defaults:
//   • rng          = seeded with rng.DefaultSeed
//   • clusters     = 2
//   • markers      = 5 per cluster at 4× fold change
//   • mito genes   = 3, damaged fraction 0
//   • base rate    = U[0.5, 3]
//   • depth        = U[0.5, 1.5]
//   • cell IDs     = "cell-0000", gene IDs "gene-000", mito "MT-0"

package synth

import (
	"fmt"
	"math/rand"

	"github.com/katalvlaran/scflow/internal/rng"
)

type config struct {
	rng *rand.Rand

	clusters   int
	markers    int
	foldChange float64

	mitoGenes   int
	damagedFrac float64
	damageFold  float64

	baseLow, baseHigh   float64
	depthLow, depthHigh float64

	cellID func(int) string
	geneID func(int) string
}

const (
	defaultClusters   = 2
	defaultMarkers    = 5
	defaultFoldChange = 4.0
	defaultMitoGenes  = 3
	defaultDamageFold = 10.0
	defaultBaseLow    = 0.5
	defaultBaseHigh   = 3.0
	defaultDepthLow   = 0.5
	defaultDepthHigh  = 1.5

	// MitoPrefix starts the identifiers of mitochondrial genes.
	MitoPrefix = "MT-"
)

// CellID renders a cell index as "cell-0000".
func CellID(i int) string { return fmt.Sprintf("cell-%04d", i) }

// GeneID renders a gene index as "gene-000".
func GeneID(i int) string { return fmt.Sprintf("gene-%03d", i) }

func newConfig(opts ...Option) config {
	cfg := config{
		rng:        rng.FromSeed(rng.DefaultSeed),
		clusters:   defaultClusters,
		markers:    defaultMarkers,
		foldChange: defaultFoldChange,
		mitoGenes:  defaultMitoGenes,
		damageFold: defaultDamageFold,
		baseLow:    defaultBaseLow,
		baseHigh:   defaultBaseHigh,
		depthLow:   defaultDepthLow,
		depthHigh:  defaultDepthHigh,
		cellID:     CellID,
		geneID:     GeneID,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}
