// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//   - Column centering and sample covariance as deterministic compositions
//     over the canonical kernels.
//
// Exposed API:
//   - CenterColumns(X) -> (Xc, means)
//   - Covariance(X)    -> (Cov, means)   // (Xcᵀ Xc)/(r-1)

package matrix

// CenterColumns subtracts the per-column mean from every element.
//
// Returns a centered copy (r×c) and the column means (len c).
// Errors: ErrNilMatrix.
// Complexity: O(r*c).
func CenterColumns(x *Dense) (*Dense, []float64, error) {
	if err := ValidateNotNil(x); err != nil {
		return nil, nil, matrixErrorf(opCenterColumns, err)
	}
	means := make([]float64, x.c)
	var i, j int
	for i = 0; i < x.r; i++ {
		row := x.data[i*x.c : (i+1)*x.c]
		for j = range row {
			means[j] += row[j]
		}
	}
	inv := 1.0 / float64(x.r)
	for j = range means {
		means[j] *= inv
	}
	out := x.Clone()
	for i = 0; i < x.r; i++ {
		row := out.data[i*x.c : (i+1)*x.c]
		for j = range row {
			row[j] -= means[j]
		}
	}

	return out, means, nil
}

// Covariance computes the sample covariance of the columns of x.
// Observations are rows; r must be at least 2.
//
// Errors: ErrNilMatrix, ErrDimensionMismatch (r<2).
// Complexity: O(r*c²).
func Covariance(x *Dense) (*Dense, []float64, error) {
	if err := ValidateNotNil(x); err != nil {
		return nil, nil, matrixErrorf(opCovariance, err)
	}
	if x.r < 2 {
		return nil, nil, matrixErrorf(opCovariance, ErrDimensionMismatch)
	}
	xc, means, err := CenterColumns(x)
	if err != nil {
		return nil, nil, matrixErrorf(opCovariance, err)
	}
	g, err := MulTransA(xc, xc)
	if err != nil {
		return nil, nil, matrixErrorf(opCovariance, err)
	}
	scale := 1.0 / float64(x.r-1)
	for i := range g.data {
		g.data[i] *= scale
	}
	// Exact symmetry for the Jacobi validator.
	n := g.r
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := 0.5 * (g.data[i*n+j] + g.data[j*n+i])
			g.data[i*n+j], g.data[j*n+i] = v, v
		}
	}

	return g, means, nil
}
