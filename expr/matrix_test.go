package expr_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/expr"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fixture(t *testing.T) *expr.Matrix {
	t.Helper()
	m, err := expr.FromDense(
		[]string{"g1", "g2", "MT-1"},
		[]string{"c1", "c2", "c3", "c4"},
		[][]float64{
			{1, 0, 3, 0},
			{0, 0, 5, 2},
			{4, 0, 0, 1},
		},
	)
	require.NoError(t, err)

	return m
}

func TestNewSumsDuplicatesAndDropsZeros(t *testing.T) {
	m, err := expr.New([]string{"a", "b"}, []string{"x", "y"}, []expr.Entry{
		{Gene: 1, Cell: 0, Value: 2},
		{Gene: 1, Cell: 0, Value: 3},
		{Gene: 0, Cell: 1, Value: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, m.At(1, 0))
	assert.Equal(t, 0.0, m.At(0, 1))
	assert.Equal(t, 1, m.NNZ())
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		genes   []string
		cells   []string
		entries []expr.Entry
		want    error
	}{
		{"no genes", nil, []string{"c"}, nil, expr.ErrEmptyAxis},
		{"duplicate cell", []string{"g"}, []string{"c", "c"}, nil, expr.ErrDuplicateID},
		{"empty gene id", []string{""}, []string{"c"}, nil, expr.ErrDuplicateID},
		{"out of range", []string{"g"}, []string{"c"}, []expr.Entry{{Gene: 1, Cell: 0, Value: 1}}, expr.ErrIndexOutOfRange},
		{"negative", []string{"g"}, []string{"c"}, []expr.Entry{{Value: -1}}, expr.ErrBadValue},
		{"nan", []string{"g"}, []string{"c"}, []expr.Entry{{Value: math.NaN()}}, expr.ErrBadValue},
		{"inf", []string{"g"}, []string{"c"}, []expr.Entry{{Value: math.Inf(1)}}, expr.ErrBadValue},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := expr.New(tc.genes, tc.cells, tc.entries)
			require.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, diag.ErrInvalidInput)
		})
	}

	_, err := expr.FromDense([]string{"g"}, []string{"a", "b"}, [][]float64{{1}})
	assert.ErrorIs(t, err, expr.ErrRagged)
}

func TestAccessors(t *testing.T) {
	m := fixture(t)
	assert.Equal(t, 3, m.NumGenes())
	assert.Equal(t, 4, m.NumCells())
	assert.Equal(t, 6, m.NNZ())

	g, ok := m.GeneIndex("MT-1")
	require.True(t, ok)
	assert.Equal(t, 2, g)
	_, ok = m.CellIndex("nope")
	assert.False(t, ok)

	rows, vals := m.Column(2)
	assert.Equal(t, []int{0, 1}, rows)
	assert.Equal(t, []float64{3, 5}, vals)

	cells, rvals := m.RowSparse(1)
	assert.Equal(t, []int{2, 3}, cells)
	assert.Equal(t, []float64{5, 2}, rvals)
	assert.Equal(t, []float64{4, 0, 0, 1}, m.RowInto(2, nil))

	assert.Equal(t, []float64{5, 0, 8, 3}, m.ColumnSums())
}

func TestSubsetReordersAndKeepsInputIntact(t *testing.T) {
	m := fixture(t)
	sub, err := m.Subset([]int{2, 0}, []int{3, 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"MT-1", "g1"}, sub.Genes())
	assert.Equal(t, []string{"c4", "c1"}, sub.Cells())
	assert.Equal(t, 1.0, sub.At(0, 0))
	assert.Equal(t, 4.0, sub.At(0, 1))
	assert.Equal(t, 1.0, sub.At(1, 1))
	assert.Equal(t, 3, m.NumGenes())

	_, err = m.Subset([]int{0, 0}, nil)
	assert.ErrorIs(t, err, expr.ErrDuplicateID)
	_, err = m.Subset([]int{}, nil)
	assert.ErrorIs(t, err, expr.ErrEmptyAxis)
}

func TestMapColumns(t *testing.T) {
	m := fixture(t)
	doubled, err := m.MapColumns(context.Background(), 2, func(_ int, _ []int, vals, out []float64) error {
		for k, v := range vals {
			out[k] = 2 * v
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, doubled.At(1, 2))
	assert.Equal(t, 5.0, m.At(1, 2))

	_, err = m.MapColumns(context.Background(), 2, func(_ int, _ []int, vals, out []float64) error {
		for k := range vals {
			out[k] = math.NaN()
		}
		return nil
	})
	assert.ErrorIs(t, err, expr.ErrBadValue)
}
