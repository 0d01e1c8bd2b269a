// Package expr holds the sparse expression matrix: genes × cells, with
// unique identifiers on both axes.
//
// Storage is compressed by cell (CSC) because almost every stage walks one
// cell at a time (QC metrics, normalization). A gene-major copy (CSR) is built
// lazily on the first row access and cached; both are read-only after
// construction, so a *Matrix is safe for concurrent readers.
//
// A Matrix never changes after New returns. Derivations (Subset, MapColumns)
// build new matrices; identifiers and index slices are never shared mutably.
package expr
