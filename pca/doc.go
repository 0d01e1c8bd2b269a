// Package pca reduces scaled expression to a low-rank embedding.
//
// Cells are observations and genes are features. Each gene is centered
// across cells, then the top-k singular triplets of the cells × genes matrix
// X = U·Σ·Vᵀ give:
//
//	scores        U·Σ          (cells × k)
//	loadings      V            (genes × k)
//	stddev        σ / √(n−1)
//	variance      σ² / ‖X‖²_F
//
// Solvers:
//
//	"randomized"  seeded Gaussian sketch plus subspace iteration (default).
//	              Stops when the top-k singular values change by less than
//	              Tolerance (relative) or after MaxIterations; the latter is
//	              reported as NumericInstability with the best-effort result.
//	"svd"         exact thin SVD (gonum).
//	"jacobi"      covariance matrix plus the symmetric Jacobi eigen kernel.
//
// Every component is sign-normalized so that its largest-magnitude loading
// is positive, which makes embeddings comparable across solvers and runs.
package pca
