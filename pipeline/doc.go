// Package pipeline chains the analysis stages into one run:
//
//	qc → normalize → hvg → scale → pca → neighbors/cluster → de
//
// Every stage is a pure function of its inputs; the pipeline only threads
// results forward, records per-stage warnings and timing, and keeps
// retained runs in memory so they can be re-entered:
//
//	Rescale    re-runs scale → pca → cluster → de with new covariates.
//	Recluster  partitions a retained SNN graph at another resolution and
//	           recomputes markers; upstream stages are reused as is.
//	Annotate   attaches human-readable cluster names without touching labels.
//
// Logging goes through a caller-supplied *zap.Logger (a no-op logger by
// default) and metrics through a caller-supplied prometheus.Registerer.
// Stage packages themselves never log.
package pipeline
