// Package de finds marker genes: genes whose expression differs between the
// cells of one cluster and the rest (or a second group).
//
// For every (gene, group) pair the engine computes the detection rates
// pct.1 and pct.2 (fraction of cells with a non-zero value), the average
// log fold-change
//
//	avg_logFC = ln(mean(expm1(a)) + 1) − ln(mean(expm1(b)) + 1)
//
// and, only for genes that pass the cheap pre-filters, a p-value from a
// pluggable Tester. Three testers are registered:
//
//	"bimod"   likelihood-ratio test of a zero/non-zero plus normal mixture,
//	          χ² with 3 degrees of freedom (default)
//	"wilcox"  Wilcoxon rank-sum, normal approximation with tie and
//	          continuity correction
//	"t"       Welch two-sample t-test
//
// Adjusted p-values use the Bonferroni correction over the number of genes
// in the input matrix, capped at 1.
package de
