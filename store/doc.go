// Package store persists pipeline results in a single bbolt file.
//
// A result is flattened into a Snapshot (sparse matrices as triplets, dense
// matrices as row-major slices, the neighbor graph as a sorted edge list,
// the configuration as YAML) and stored as JSON under its
// run identifier. A separate bucket keeps small summaries so List never
// decodes full snapshots.
//
// Every float64 that crosses the boundary is finite, so the JSON encoding
// round-trips values exactly and a loaded result reclusters to the same
// assignment as the original.
package store
