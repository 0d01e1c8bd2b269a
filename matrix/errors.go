// SPDX-License-Identifier: MIT
// Package matrix: sentinel error set.
// Every message is prefixed with "matrix: ..." and all sentinels that describe
// caller mistakes also match diag.ErrInvalidInput through errors.Is.

package matrix

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/scflow/diag"
)

var (
	// ErrBadShape is returned when a requested shape is invalid (r<=0 or c<=0).
	ErrBadShape = diag.NewSentinel("matrix: invalid shape")

	// ErrOutOfRange indicates that a row or column index is outside valid bounds.
	ErrOutOfRange = diag.NewSentinel("matrix: index out of range")

	// ErrDimensionMismatch indicates incompatible operand dimensions.
	ErrDimensionMismatch = diag.NewSentinel("matrix: dimension mismatch")

	// ErrAsymmetry signals that a matrix expected to be symmetric is not,
	// within the supplied tolerance.
	ErrAsymmetry = diag.NewSentinel("matrix: matrix is not symmetric within eps")

	// ErrNaNInf signals a NaN or ±Inf value where finite values are required.
	ErrNaNInf = diag.NewSentinel("matrix: NaN or Inf encountered")

	// ErrNilMatrix indicates that a nil *Dense was used.
	ErrNilMatrix = diag.NewSentinel("matrix: nil receiver")

	// ErrMatrixEigenFailed indicates that the Jacobi routine did not reach the
	// tolerance within the iteration cap. It is a numeric condition, not an
	// input error, so it does not wrap diag.ErrInvalidInput.
	ErrMatrixEigenFailed = errors.New("matrix: eigen decomposition failed")
)

// Operation tags used in error wrapping.
const (
	opNewDense      = "NewDense"
	opNewDenseFrom  = "NewDenseFrom"
	opAt            = "At"
	opSet           = "Set"
	opMul           = "Mul"
	opMulTransA     = "MulTransA"
	opMatVec        = "MatVec"
	opSubmatrix     = "Submatrix"
	opEigen         = "Eigen"
	opCenterColumns = "CenterColumns"
	opCovariance    = "Covariance"
	opFinite        = "ValidateFinite"
)

// matrixErrorf wraps err with the operation tag.
// Always gate calls with `if err != nil { return nil, matrixErrorf(tag, err) }`.
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}
