// Package scflow turns a genes × cells count matrix into cell clusters and
// their marker genes.
//
// 🚀 What is scflow?
//
//	A deterministic, data-parallel pipeline for single-cell RNA-seq:
//		• Quality control: per-cell metrics, threshold filtering, gene filtering
//		• Normalization: library-size scaling with log1p
//		• Variable genes: binned dispersion z-scores
//		• Scaling: covariate regression, centering, clipping
//		• PCA: randomized, exact SVD or Jacobi solvers
//		• Clustering: KNN → shared-nearest-neighbor graph → Louvain modularity
//		• Markers: bimod likelihood-ratio, Wilcoxon or Welch tests per cluster
//
// ✨ Guarantees
//
//   - Every stage is a pure function: inputs are never mutated.
//   - Same input, configuration and seed give the same output for any
//     worker count.
//   - Bad input fails fast with an error matching diag.ErrInvalidInput;
//     degenerate data and non-convergence travel as warnings in a diag.Report.
//
// Packages:
//
//	expr/                            immutable sparse expression matrix (CSC + lazy CSR)
//	meta/                            copy-on-write cell metadata
//	qc/ normalize/ hvg/ scale/ pca/  the numeric stages
//	core/ bfs/                       string-keyed graphs and connected components
//	neighbors/                       exact KNN index and SNN graph
//	cluster/                         modularity optimisation with seeded random starts
//	de/                              differential expression and marker tables
//	annotate/                        human-readable cluster names
//	matrix/                          dense kernels (products, Jacobi eigen, covariance)
//	synth/                           seeded synthetic experiments with planted truth
//	pipeline/                        stage orchestration, logging, metrics, re-entry
//	store/                           bbolt persistence of complete runs
//	cmd/scflow                       command line
//
// Quick start:
//
//	ds, _ := synth.Generate(300, 200, synth.WithClusters(3), synth.WithSeed(1))
//	p, _ := pipeline.New(pipeline.Default())
//	res, _ := p.Run(ctx, ds.Counts, ds.Meta)
//	top, _ := res.Markers.TopN(10, de.SortPValue)
package scflow
