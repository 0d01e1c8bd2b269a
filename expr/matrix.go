package expr

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/internal/parallel"
)

// Sentinel errors; all match diag.ErrInvalidInput.
var (
	// ErrEmptyAxis is returned when a matrix has no genes or no cells.
	ErrEmptyAxis = diag.NewSentinel("expr: empty gene or cell axis")

	// ErrDuplicateID is returned for repeated or empty identifiers on an axis.
	ErrDuplicateID = diag.NewSentinel("expr: duplicate or empty identifier")

	// ErrIndexOutOfRange is returned for an entry or subset index outside the axis.
	ErrIndexOutOfRange = diag.NewSentinel("expr: index out of range")

	// ErrBadValue is returned for negative, NaN or ±Inf values.
	ErrBadValue = diag.NewSentinel("expr: value must be finite and non-negative")

	// ErrRagged is returned by FromDense when rows differ in length.
	ErrRagged = diag.NewSentinel("expr: ragged dense input")
)

// Entry is one (gene, cell, value) triplet.
type Entry struct {
	Gene  int
	Cell  int
	Value float64
}

// Matrix is an immutable sparse genes × cells matrix.
type Matrix struct {
	genes   []string
	cells   []string
	geneIdx map[string]int
	cellIdx map[string]int

	// CSC: column c occupies colPtr[c]:colPtr[c+1] of rowIdx/vals, rows ascending.
	colPtr []int
	rowIdx []int
	vals   []float64

	csrOnce sync.Once
	rowPtr  []int
	colIdx  []int
	rvals   []float64
}

func indexIDs(ids []string, axis string) (map[string]int, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s: %w", axis, ErrEmptyAxis)
	}
	m := make(map[string]int, len(ids))
	for i, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("%s %d: %w", axis, i, ErrDuplicateID)
		}
		if _, dup := m[id]; dup {
			return nil, fmt.Errorf("%s %q: %w", axis, id, ErrDuplicateID)
		}
		m[id] = i
	}

	return m, nil
}

func checkValue(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return ErrBadValue
	}

	return nil
}

// New builds a matrix from triplets. Duplicate coordinates are summed and
// explicit zeros are dropped. Identifier slices are copied.
//
// Errors: ErrEmptyAxis, ErrDuplicateID, ErrIndexOutOfRange, ErrBadValue.
// Complexity: O(nnz log nnz).
func New(genes, cells []string, entries []Entry) (*Matrix, error) {
	gi, err := indexIDs(genes, "gene")
	if err != nil {
		return nil, err
	}
	ci, err := indexIDs(cells, "cell")
	if err != nil {
		return nil, err
	}
	es := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Gene < 0 || e.Gene >= len(genes) || e.Cell < 0 || e.Cell >= len(cells) {
			return nil, fmt.Errorf("entry (%d,%d): %w", e.Gene, e.Cell, ErrIndexOutOfRange)
		}
		if err := checkValue(e.Value); err != nil {
			return nil, fmt.Errorf("entry (%d,%d)=%v: %w", e.Gene, e.Cell, e.Value, err)
		}
		es = append(es, e)
	}
	sort.Slice(es, func(a, b int) bool {
		if es[a].Cell != es[b].Cell {
			return es[a].Cell < es[b].Cell
		}
		return es[a].Gene < es[b].Gene
	})

	m := &Matrix{
		genes:   append([]string(nil), genes...),
		cells:   append([]string(nil), cells...),
		geneIdx: gi,
		cellIdx: ci,
		colPtr:  make([]int, len(cells)+1),
		rowIdx:  make([]int, 0, len(es)),
		vals:    make([]float64, 0, len(es)),
	}
	for k := 0; k < len(es); {
		e := es[k]
		sum := e.Value
		k++
		for k < len(es) && es[k].Cell == e.Cell && es[k].Gene == e.Gene {
			sum += es[k].Value
			k++
		}
		if sum == 0 {
			continue
		}
		m.rowIdx = append(m.rowIdx, e.Gene)
		m.vals = append(m.vals, sum)
		m.colPtr[e.Cell+1]++
	}
	for c := 0; c < len(cells); c++ {
		m.colPtr[c+1] += m.colPtr[c]
	}

	return m, nil
}

// FromDense builds a matrix from gene-major dense rows (rows[g][c]).
//
// Errors: as New, plus ErrRagged.
func FromDense(genes, cells []string, rows [][]float64) (*Matrix, error) {
	if len(rows) != len(genes) {
		return nil, fmt.Errorf("%d rows for %d genes: %w", len(rows), len(genes), ErrRagged)
	}
	var entries []Entry
	for g, row := range rows {
		if len(row) != len(cells) {
			return nil, fmt.Errorf("row %d has %d values for %d cells: %w", g, len(row), len(cells), ErrRagged)
		}
		for c, v := range row {
			if v != 0 {
				entries = append(entries, Entry{Gene: g, Cell: c, Value: v})
			}
		}
	}

	return New(genes, cells, entries)
}

// NumGenes returns the number of genes (rows).
func (m *Matrix) NumGenes() int { return len(m.genes) }

// NumCells returns the number of cells (columns).
func (m *Matrix) NumCells() int { return len(m.cells) }

// NNZ returns the number of stored non-zero values.
func (m *Matrix) NNZ() int { return len(m.vals) }

// Genes returns a copy of the gene identifiers.
func (m *Matrix) Genes() []string { return append([]string(nil), m.genes...) }

// Cells returns a copy of the cell identifiers.
func (m *Matrix) Cells() []string { return append([]string(nil), m.cells...) }

// Gene returns the identifier of gene g.
func (m *Matrix) Gene(g int) string { return m.genes[g] }

// Cell returns the identifier of cell c.
func (m *Matrix) Cell(c int) string { return m.cells[c] }

// GeneIndex looks up a gene identifier.
func (m *Matrix) GeneIndex(id string) (int, bool) {
	i, ok := m.geneIdx[id]
	return i, ok
}

// CellIndex looks up a cell identifier.
func (m *Matrix) CellIndex(id string) (int, bool) {
	i, ok := m.cellIdx[id]
	return i, ok
}

// At returns the value at (g, c); absent entries are zero.
// Complexity: O(log nnz(c)).
func (m *Matrix) At(g, c int) float64 {
	lo, hi := m.colPtr[c], m.colPtr[c+1]
	rows := m.rowIdx[lo:hi]
	k := sort.SearchInts(rows, g)
	if k < len(rows) && rows[k] == g {
		return m.vals[lo+k]
	}

	return 0
}

// Column returns the non-zero gene indices (ascending) and values of cell c.
// The slices alias internal storage and must not be modified.
func (m *Matrix) Column(c int) (genes []int, vals []float64) {
	lo, hi := m.colPtr[c], m.colPtr[c+1]
	return m.rowIdx[lo:hi:hi], m.vals[lo:hi:hi]
}

// ColumnSums returns the total of each cell.
func (m *Matrix) ColumnSums() []float64 {
	out := make([]float64, len(m.cells))
	for c := range out {
		_, vals := m.Column(c)
		for _, v := range vals {
			out[c] += v
		}
	}

	return out
}

func (m *Matrix) buildCSR() {
	m.csrOnce.Do(func() {
		nG := len(m.genes)
		rowPtr := make([]int, nG+1)
		for _, g := range m.rowIdx {
			rowPtr[g+1]++
		}
		for g := 0; g < nG; g++ {
			rowPtr[g+1] += rowPtr[g]
		}
		next := append([]int(nil), rowPtr[:nG]...)
		colIdx := make([]int, len(m.vals))
		rvals := make([]float64, len(m.vals))
		// Cells are visited in order, so each row's columns come out ascending.
		for c := 0; c < len(m.cells); c++ {
			for k := m.colPtr[c]; k < m.colPtr[c+1]; k++ {
				g := m.rowIdx[k]
				colIdx[next[g]] = c
				rvals[next[g]] = m.vals[k]
				next[g]++
			}
		}
		m.rowPtr, m.colIdx, m.rvals = rowPtr, colIdx, rvals
	})
}

// RowSparse returns the non-zero cell indices (ascending) and values of gene g.
// The slices alias internal storage and must not be modified.
func (m *Matrix) RowSparse(g int) (cells []int, vals []float64) {
	m.buildCSR()
	lo, hi := m.rowPtr[g], m.rowPtr[g+1]
	return m.colIdx[lo:hi:hi], m.rvals[lo:hi:hi]
}

// RowInto writes the dense row of gene g into dst (grown if needed) and returns it.
func (m *Matrix) RowInto(g int, dst []float64) []float64 {
	n := len(m.cells)
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	clear(dst)
	cells, vals := m.RowSparse(g)
	for k, c := range cells {
		dst[c] = vals[k]
	}

	return dst
}

// Rows returns the number of genes; it lets a Matrix serve as a row source.
func (m *Matrix) Rows() int { return len(m.genes) }

// Subset returns the matrix restricted to the given gene and cell indices, in
// the given order. A nil slice keeps the whole axis.
//
// Errors: ErrEmptyAxis, ErrIndexOutOfRange, ErrDuplicateID (repeated index).
func (m *Matrix) Subset(geneIdx, cellIdx []int) (*Matrix, error) {
	if geneIdx == nil {
		geneIdx = identity(len(m.genes))
	}
	if cellIdx == nil {
		cellIdx = identity(len(m.cells))
	}
	newRow := make([]int, len(m.genes))
	for i := range newRow {
		newRow[i] = -1
	}
	genes := make([]string, len(geneIdx))
	for k, g := range geneIdx {
		if g < 0 || g >= len(m.genes) {
			return nil, fmt.Errorf("gene index %d: %w", g, ErrIndexOutOfRange)
		}
		newRow[g] = k
		genes[k] = m.genes[g]
	}
	cells := make([]string, len(cellIdx))
	for k, c := range cellIdx {
		if c < 0 || c >= len(m.cells) {
			return nil, fmt.Errorf("cell index %d: %w", c, ErrIndexOutOfRange)
		}
		cells[k] = m.cells[c]
	}
	var entries []Entry
	for k, c := range cellIdx {
		rows, vals := m.Column(c)
		for j, g := range rows {
			if nr := newRow[g]; nr >= 0 {
				entries = append(entries, Entry{Gene: nr, Cell: k, Value: vals[j]})
			}
		}
	}

	return New(genes, cells, entries)
}

// ColumnFunc maps the non-zero values of one cell into out (same length as vals).
type ColumnFunc func(cell int, genes []int, vals []float64, out []float64) error

// MapColumns applies fn to every cell in parallel and returns a new matrix with
// the same sparsity pattern (zeros produced by fn are dropped). Output values
// must be finite and non-negative.
func (m *Matrix) MapColumns(ctx context.Context, workers int, fn ColumnFunc) (*Matrix, error) {
	out := make([]float64, len(m.vals))
	err := parallel.For(ctx, len(m.cells), workers, func(c int) error {
		lo, hi := m.colPtr[c], m.colPtr[c+1]
		if err := fn(c, m.rowIdx[lo:hi:hi], m.vals[lo:hi:hi], out[lo:hi:hi]); err != nil {
			return err
		}
		for k := lo; k < hi; k++ {
			if err := checkValue(out[k]); err != nil {
				return fmt.Errorf("cell %q gene %q: %w", m.cells[c], m.genes[m.rowIdx[k]], err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &Matrix{
		genes:   m.genes,
		cells:   m.cells,
		geneIdx: m.geneIdx,
		cellIdx: m.cellIdx,
		colPtr:  make([]int, len(m.cells)+1),
		rowIdx:  make([]int, 0, len(m.vals)),
		vals:    make([]float64, 0, len(m.vals)),
	}
	for c := 0; c < len(m.cells); c++ {
		for k := m.colPtr[c]; k < m.colPtr[c+1]; k++ {
			if out[k] == 0 {
				continue
			}
			res.rowIdx = append(res.rowIdx, m.rowIdx[k])
			res.vals = append(res.vals, out[k])
		}
		res.colPtr[c+1] = len(res.vals)
	}

	return res, nil
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}

	return out
}
