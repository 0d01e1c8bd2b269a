// SPDX-License-Identifier: MIT

package matrix

import (
	"fmt"
	"math"
	"strings"
)

// Dense is a row-major matrix of float64 values.
// r is rows, c is columns, and data holds r*c elements in row-major order.
type Dense struct {
	r, c int       // number of rows and columns
	data []float64 // flat backing storage, len == r*c
}

// NewDense creates an r×c Dense matrix initialized to zeros.
// Complexity: O(r*c) time and memory.
func NewDense(rows, cols int) (*Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, matrixErrorf(opNewDense, ErrBadShape)
	}

	return &Dense{r: rows, c: cols, data: make([]float64, rows*cols)}, nil
}

// NewDenseFrom wraps a row-major slice of length rows*cols.
// The slice is copied; NaN/±Inf values are rejected.
// Complexity: O(r*c).
func NewDenseFrom(rows, cols int, data []float64) (*Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, matrixErrorf(opNewDenseFrom, ErrBadShape)
	}
	if len(data) != rows*cols {
		return nil, matrixErrorf(opNewDenseFrom, ErrDimensionMismatch)
	}
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, matrixErrorf(opNewDenseFrom, ErrNaNInf)
		}
	}
	cp := make([]float64, len(data))
	copy(cp, data)

	return &Dense{r: rows, c: cols, data: cp}, nil
}

// Rows returns the number of rows.
func (m *Dense) Rows() int { return m.r }

// Cols returns the number of columns.
func (m *Dense) Cols() int { return m.c }

// Shape returns (rows, cols).
func (m *Dense) Shape() (rows, cols int) { return m.r, m.c }

func (m *Dense) indexOf(tag string, row, col int) (int, error) {
	if row < 0 || row >= m.r || col < 0 || col >= m.c {
		return 0, fmt.Errorf("Dense.%s(%d,%d): %w", tag, row, col, ErrOutOfRange)
	}

	return row*m.c + col, nil
}

// At retrieves the element at (row, col).
// Complexity: O(1).
func (m *Dense) At(row, col int) (float64, error) {
	idx, err := m.indexOf(opAt, row, col)
	if err != nil {
		return 0, err
	}

	return m.data[idx], nil
}

// Set assigns v at (row, col). NaN/±Inf is rejected.
// Complexity: O(1).
func (m *Dense) Set(row, col int, v float64) error {
	idx, err := m.indexOf(opSet, row, col)
	if err != nil {
		return err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("Dense.%s(%d,%d): %w", opSet, row, col, ErrNaNInf)
	}
	m.data[idx] = v

	return nil
}

// Row returns row i as a slice aliasing the backing storage.
// Callers must treat it as read-only. Panics on an out-of-range index,
// matching slice semantics.
// Complexity: O(1).
func (m *Dense) Row(i int) []float64 {
	return m.data[i*m.c : (i+1)*m.c : (i+1)*m.c]
}

// RowInto copies row i into dst (grown if needed) and returns it.
// It lets a Dense act as a row source for the scaling stage.
func (m *Dense) RowInto(i int, dst []float64) []float64 {
	if cap(dst) < m.c {
		dst = make([]float64, m.c)
	}
	dst = dst[:m.c]
	copy(dst, m.Row(i))

	return dst
}

// Col copies column j into a new slice.
// Complexity: O(r).
func (m *Dense) Col(j int) []float64 {
	out := make([]float64, m.r)
	for i := 0; i < m.r; i++ {
		out[i] = m.data[i*m.c+j]
	}

	return out
}

// Data exposes the row-major backing slice (read-only by convention).
func (m *Dense) Data() []float64 { return m.data }

// Clone returns a deep copy.
// Complexity: O(r*c).
func (m *Dense) Clone() *Dense {
	cp := make([]float64, len(m.data))
	copy(cp, m.data)

	return &Dense{r: m.r, c: m.c, data: cp}
}

// T returns the transpose as a new Dense.
// Complexity: O(r*c).
func (m *Dense) T() *Dense {
	out := &Dense{r: m.c, c: m.r, data: make([]float64, len(m.data))}
	var i, j int
	for i = 0; i < m.r; i++ {
		base := i * m.c
		for j = 0; j < m.c; j++ {
			out.data[j*m.r+i] = m.data[base+j]
		}
	}

	return out
}

// Submatrix returns the leading rows×cols block as a copy.
// Complexity: O(rows*cols).
func (m *Dense) Submatrix(rows, cols int) (*Dense, error) {
	if rows <= 0 || cols <= 0 || rows > m.r || cols > m.c {
		return nil, matrixErrorf(opSubmatrix, ErrOutOfRange)
	}
	out := &Dense{r: rows, c: cols, data: make([]float64, rows*cols)}
	for i := 0; i < rows; i++ {
		copy(out.data[i*cols:(i+1)*cols], m.data[i*m.c:i*m.c+cols])
	}

	return out, nil
}

// String implements fmt.Stringer for debugging.
func (m *Dense) String() string {
	var sb strings.Builder
	for i := 0; i < m.r; i++ {
		sb.WriteByte('[')
		for j := 0; j < m.c; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%g", m.data[i*m.c+j])
		}
		sb.WriteString("]\n")
	}

	return sb.String()
}
