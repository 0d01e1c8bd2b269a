package pipeline

import "github.com/katalvlaran/scflow/diag"

// Sentinel errors; all match diag.ErrInvalidInput.
var (
	// ErrConfig is returned by Validate and Load for an unusable configuration.
	ErrConfig = diag.NewSentinel("pipeline: invalid configuration")

	// ErrUnknownRun is returned when a run identifier is not retained.
	ErrUnknownRun = diag.NewSentinel("pipeline: unknown run")

	// ErrGraphNotRetained is returned by Recluster for a run without its SNN graph.
	ErrGraphNotRetained = diag.NewSentinel("pipeline: neighbor graph was not retained")

	// ErrUnknownChannel is returned by ColorChannel for a name that is neither
	// a metadata column nor a gene.
	ErrUnknownChannel = diag.NewSentinel("pipeline: unknown color channel")
)
