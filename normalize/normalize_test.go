package normalize_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/expr"
	"github.com/katalvlaran/scflow/normalize"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLogScale(t *testing.T) {
	m, err := expr.FromDense([]string{"a", "b"}, []string{"c1", "c2"}, [][]float64{{1, 0}, {3, 4}})
	require.NoError(t, err)

	out, err := normalize.Run(context.Background(), m, normalize.DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, math.Log1p(0.25*1e4), out.At(0, 0), 1e-12)
	assert.InDelta(t, math.Log1p(0.75*1e4), out.At(1, 0), 1e-12)
	assert.InDelta(t, math.Log1p(1e4), out.At(1, 1), 1e-12)
	assert.Equal(t, 0.0, out.At(0, 1))
	assert.Equal(t, 1.0, m.At(0, 0))
}

func TestRelativeCounts(t *testing.T) {
	m, err := expr.FromDense([]string{"a", "b"}, []string{"c"}, [][]float64{{1}, {1}})
	require.NoError(t, err)
	out, err := normalize.Run(context.Background(), m, normalize.Options{Method: normalize.RelativeCounts, ScaleFactor: 100})
	require.NoError(t, err)
	assert.Equal(t, 50.0, out.At(0, 0))
}

func TestScaleInvariancePerCell(t *testing.T) {
	base := [][]float64{{3, 7}, {0, 2}, {5, 1}}
	scaled := make([][]float64, len(base))
	for g, row := range base {
		scaled[g] = []float64{row[0] * 17.5, row[1]}
	}
	genes, cells := []string{"g1", "g2", "g3"}, []string{"c1", "c2"}
	m1, err := expr.FromDense(genes, cells, base)
	require.NoError(t, err)
	m2, err := expr.FromDense(genes, cells, scaled)
	require.NoError(t, err)

	o1, err := normalize.Run(context.Background(), m1, normalize.DefaultOptions())
	require.NoError(t, err)
	o2, err := normalize.Run(context.Background(), m2, normalize.DefaultOptions())
	require.NoError(t, err)
	for g := range genes {
		for c := range cells {
			assert.InDelta(t, o1.At(g, c), o2.At(g, c), 1e-12)
		}
	}
}

func TestErrors(t *testing.T) {
	m, err := expr.FromDense([]string{"a"}, []string{"full", "empty"}, [][]float64{{2, 0}})
	require.NoError(t, err)

	_, err = normalize.Run(context.Background(), m, normalize.DefaultOptions())
	require.ErrorIs(t, err, normalize.ErrEmptyCell)
	assert.ErrorIs(t, err, diag.ErrInvalidInput)
	assert.Contains(t, err.Error(), "empty")

	_, err = normalize.Run(context.Background(), m, normalize.Options{Method: "bogus", ScaleFactor: 1})
	assert.ErrorIs(t, err, normalize.ErrUnknownMethod)
	_, err = normalize.Run(context.Background(), m, normalize.Options{ScaleFactor: 0})
	assert.ErrorIs(t, err, normalize.ErrScaleFactor)
}
