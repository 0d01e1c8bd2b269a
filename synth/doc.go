// Package synth generates seeded synthetic count matrices with planted
// structure: a known cluster per cell, marker genes up-regulated in one
// cluster, mitochondrial genes and optionally damaged cells with a high
// mitochondrial fraction.
//
// Model:
//
//	rate(g)        ~ U[BaseRateLow, BaseRateHigh], drawn once per gene
//	depth(c)       ~ U[DepthLow, DepthHigh], drawn once per cell
//	count(g, c)    ~ Poisson(depth(c) · rate(g) · fold(g, c))
//
// fold(g, c) is FoldChange when g is a marker of the cluster of c, the
// damage multiplier for mitochondrial genes in damaged cells, and 1 otherwise.
//
// Guarantees:
//
//   - Determinism: the same sizes, options and seed produce identical datasets.
//   - Option constructors validate and panic on meaningless values; Generate
//     itself never panics and returns sentinel errors.
package synth
