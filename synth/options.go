// SPDX-License-Identifier: MIT
// Package: scflow/synth
//
// options.go: functional options for Generate.
//
// Contract:
//   • Option constructors VALIDATE and PANIC on meaningless inputs.
//   • Determinism is explicit: seeding is done via WithSeed or WithRand.

package synth

import (
	"math/rand"

	"github.com/katalvlaran/scflow/internal/rng"
)

// Option customizes Generate.
type Option func(*config)

// WithSeed seeds the generator (0 means rng.DefaultSeed).
func WithSeed(seed int64) Option {
	return func(c *config) { c.rng = rng.FromSeed(seed) }
}

// WithRand provides an explicit RNG. Panics on nil.
func WithRand(r *rand.Rand) Option {
	if r == nil {
		panic("synth: WithRand(nil)")
	}
	return func(c *config) { c.rng = r }
}

// WithClusters sets the number of planted clusters. Panics if k < 1.
func WithClusters(k int) Option {
	if k < 1 {
		panic("synth: WithClusters(k<1)")
	}
	return func(c *config) { c.clusters = k }
}

// WithMarkers plants n marker genes per cluster expressed fold× higher in it.
// Panics if n < 0 or fold <= 0.
func WithMarkers(n int, fold float64) Option {
	if n < 0 || !(fold > 0) {
		panic("synth: WithMarkers(n<0 or fold<=0)")
	}
	return func(c *config) { c.markers, c.foldChange = n, fold }
}

// WithMito sets the number of mitochondrial genes and the fraction of
// damaged cells whose mitochondrial rate is multiplied by fold.
// Panics if n < 0, frac outside [0,1] or fold <= 0.
func WithMito(n int, frac, fold float64) Option {
	if n < 0 || frac < 0 || frac > 1 || !(fold > 0) {
		panic("synth: WithMito(bad arguments)")
	}
	return func(c *config) { c.mitoGenes, c.damagedFrac, c.damageFold = n, frac, fold }
}

// WithBaseRate sets the per-gene base rate interval. Panics unless 0 <= low <= high.
func WithBaseRate(low, high float64) Option {
	if low < 0 || high < low {
		panic("synth: WithBaseRate(require 0 <= low <= high)")
	}
	return func(c *config) { c.baseLow, c.baseHigh = low, high }
}

// WithDepth sets the per-cell depth interval. Panics unless 0 < low <= high.
func WithDepth(low, high float64) Option {
	if !(low > 0) || high < low {
		panic("synth: WithDepth(require 0 < low <= high)")
	}
	return func(c *config) { c.depthLow, c.depthHigh = low, high }
}

// WithIDs overrides the cell and gene identifier schemes. Panics on nil.
func WithIDs(cell, gene func(int) string) Option {
	if cell == nil || gene == nil {
		panic("synth: WithIDs(nil)")
	}
	return func(c *config) { c.cellID, c.geneID = cell, gene }
}
