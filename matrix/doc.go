// SPDX-License-Identifier: MIT

// Package matrix provides the dense numeric kernels shared by the scaling,
// reduction and neighbor stages: a row-major Dense type, products, column
// statistics and a symmetric Jacobi eigen solver.
//
// Layout:
//   - Dense stores r×c float64 values in one flat row-major slice.
//     In scflow a Dense is usually genes×cells (scaled data) or cells×k
//     (PCA scores); Row(i) returns a read-only view of one gene or one cell.
//
// Policy:
//   - Every public operation validates shape and returns a sentinel error
//     wrapped with the operation tag ("Mul: matrix: dimension mismatch").
//   - Kernels never mutate their inputs; results are freshly allocated.
//   - NaN/±Inf is rejected on ingestion (NewDenseFrom, Set) and by
//     ValidateFinite, so stage outputs can be checked before they cross a
//     stage boundary.
//
// Determinism:
//   - Fixed i→j→k traversal in every loop; no randomness, no map iteration.
//
// AI-Hints:
//   - Use Row(i) for zero-copy reads in tight loops; treat the slice as read-only.
//   - Eigen is O(n³) per sweep; keep it for small covariance matrices
//     (e.g. a few hundred variable genes) and prefer an SVD for larger inputs.
package matrix
