// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//   - Canonical products (Mul, MulTransA, MatVec) and the symmetric Jacobi
//     eigen solver used by the exact covariance PCA path.
//
// Determinism & Performance:
//   - i→k→j loop order in Mul keeps the inner loop contiguous on both operands.
//   - Jacobi pivots on the largest off-diagonal element; ties resolve to the
//     first (p,q) in row-major scan order.

package matrix

import (
	"math"
	"sort"
)

// DefaultEpsilon replaces a zero Jacobi tolerance.
const DefaultEpsilon = 1e-9

// Mul returns a·b.
// Errors: ErrNilMatrix, ErrDimensionMismatch.
// Complexity: O(r·k·c).
func Mul(a, b *Dense) (*Dense, error) {
	if err := ValidateMulCompatible(a, b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	out := &Dense{r: a.r, c: b.c, data: make([]float64, a.r*b.c)}
	var i, k, j int
	for i = 0; i < a.r; i++ {
		orow := out.data[i*b.c : (i+1)*b.c]
		for k = 0; k < a.c; k++ {
			aik := a.data[i*a.c+k]
			if aik == 0 {
				continue
			}
			brow := b.data[k*b.c : (k+1)*b.c]
			for j = range brow {
				orow[j] += aik * brow[j]
			}
		}
	}

	return out, nil
}

// MulTransA returns aᵀ·b without materialising aᵀ.
// Errors: ErrNilMatrix, ErrDimensionMismatch (a.Rows != b.Rows).
// Complexity: O(r·ca·cb).
func MulTransA(a, b *Dense) (*Dense, error) {
	if a == nil || b == nil {
		return nil, matrixErrorf(opMulTransA, ErrNilMatrix)
	}
	if a.r != b.r {
		return nil, matrixErrorf(opMulTransA, ErrDimensionMismatch)
	}
	out := &Dense{r: a.c, c: b.c, data: make([]float64, a.c*b.c)}
	var k, i, j int
	for k = 0; k < a.r; k++ {
		arow := a.data[k*a.c : (k+1)*a.c]
		brow := b.data[k*b.c : (k+1)*b.c]
		for i = range arow {
			aki := arow[i]
			if aki == 0 {
				continue
			}
			orow := out.data[i*b.c : (i+1)*b.c]
			for j = range brow {
				orow[j] += aki * brow[j]
			}
		}
	}

	return out, nil
}

// MatVec returns m·x.
// Errors: ErrNilMatrix, ErrDimensionMismatch (len(x) != Cols).
// Complexity: O(r·c).
func MatVec(m *Dense, x []float64) ([]float64, error) {
	if m == nil {
		return nil, matrixErrorf(opMatVec, ErrNilMatrix)
	}
	if len(x) != m.c {
		return nil, matrixErrorf(opMatVec, ErrDimensionMismatch)
	}
	out := make([]float64, m.r)
	for i := 0; i < m.r; i++ {
		var s float64
		row := m.data[i*m.c : (i+1)*m.c]
		for j, v := range row {
			s += v * x[j]
		}
		out[i] = s
	}

	return out, nil
}

// Eigen computes eigenvalues and eigenvectors of a symmetric matrix with the
// cyclic-pivot Jacobi method.
//
// Implementation:
//   - Stage 1: ValidateSymmetric(m, tol); copy m into A, Q = I.
//   - Stage 2: up to maxIter rotations; each picks the largest |A[p,q]| and
//     annihilates it, accumulating the rotation into Q.
//   - Stage 3: converged when max off-diagonal < tol, else ErrMatrixEigenFailed.
//   - Stage 4: sort eigenpairs by eigenvalue descending (stable on index).
//
// Returns:
//   - values: eigenvalues, descending.
//   - vectors: n×n, column j is the unit eigenvector for values[j].
//
// Complexity: O(n²) per rotation (pivot scan + row update).
func Eigen(m *Dense, tol float64, maxIter int) ([]float64, *Dense, error) {
	if err := ValidateSymmetric(m, tol); err != nil {
		return nil, nil, matrixErrorf(opEigen, err)
	}
	tol = math.Abs(tol)
	if tol == 0 {
		tol = DefaultEpsilon
	}
	n := m.r
	a := m.Clone()
	q := &Dense{r: n, c: n, data: make([]float64, n*n)}
	var i, j int
	for i = 0; i < n; i++ {
		q.data[i*n+i] = 1.0
	}

	var (
		iter, p, qq        int
		maxOff, off        float64
		app, aqq, apq      float64
		aip, aiq, qip, qiq float64
		theta, t, c, s     float64
	)
	for iter = 0; iter < maxIter; iter++ {
		maxOff = 0
		for i = 0; i < n; i++ {
			base := i * n
			for j = i + 1; j < n; j++ {
				off = math.Abs(a.data[base+j])
				if off > maxOff {
					maxOff, p, qq = off, i, j
				}
			}
		}
		if maxOff < tol {
			break
		}
		app = a.data[p*n+p]
		aqq = a.data[qq*n+qq]
		apq = a.data[p*n+qq]

		theta = (aqq - app) / (2 * apq)
		t = math.Copysign(1.0/(math.Abs(theta)+math.Hypot(theta, 1)), theta)
		c = 1.0 / math.Sqrt(t*t+1)
		s = t * c

		for i = 0; i < n; i++ {
			if i == p || i == qq {
				continue
			}
			aip = a.data[i*n+p]
			aiq = a.data[i*n+qq]
			nip := c*aip - s*aiq
			niq := s*aip + c*aiq
			a.data[i*n+p], a.data[p*n+i] = nip, nip
			a.data[i*n+qq], a.data[qq*n+i] = niq, niq
		}
		a.data[p*n+p] = c*c*app - 2*c*s*apq + s*s*aqq
		a.data[qq*n+qq] = s*s*app + 2*c*s*apq + c*c*aqq
		a.data[p*n+qq], a.data[qq*n+p] = 0, 0

		for i = 0; i < n; i++ {
			qip = q.data[i*n+p]
			qiq = q.data[i*n+qq]
			q.data[i*n+p] = c*qip - s*qiq
			q.data[i*n+qq] = s*qip + c*qiq
		}
	}

	maxOff = 0
	for i = 0; i < n; i++ {
		for j = i + 1; j < n; j++ {
			if off = math.Abs(a.data[i*n+j]); off > maxOff {
				maxOff = off
			}
		}
	}
	if maxOff >= tol {
		return nil, nil, matrixErrorf(opEigen, ErrMatrixEigenFailed)
	}

	order := make([]int, n)
	for i = range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		return a.data[order[x]*n+order[x]] > a.data[order[y]*n+order[y]]
	})
	values := make([]float64, n)
	vectors := &Dense{r: n, c: n, data: make([]float64, n*n)}
	for j = 0; j < n; j++ {
		src := order[j]
		values[j] = a.data[src*n+src]
		for i = 0; i < n; i++ {
			vectors.data[i*n+j] = q.data[i*n+src]
		}
	}

	return values, vectors, nil
}
