package pca_test

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/matrix"
	"github.com/katalvlaran/scflow/pca"
	"github.com/katalvlaran/scflow/scale"
)

// lowRank builds a genes × cells matrix with three planted factors of
// decreasing strength plus small noise.
func lowRank(t *testing.T, genes, cells int) *scale.Result {
	t.Helper()
	r := rand.New(rand.NewSource(7))
	strength := []float64{10, 5, 2.5}
	load := make([][]float64, len(strength))
	score := make([][]float64, len(strength))
	for f := range strength {
		load[f] = make([]float64, genes)
		score[f] = make([]float64, cells)
		for g := range load[f] {
			load[f][g] = r.NormFloat64()
		}
		for c := range score[f] {
			score[f][c] = r.NormFloat64() * strength[f]
		}
	}
	data := make([]float64, genes*cells)
	for g := 0; g < genes; g++ {
		for c := 0; c < cells; c++ {
			v := 0.1 * r.NormFloat64()
			for f := range strength {
				v += load[f][g] * score[f][c]
			}
			data[g*cells+c] = v
		}
	}
	d, err := matrix.NewDenseFrom(genes, cells, data)
	require.NoError(t, err)

	res := &scale.Result{Data: d}
	for g := 0; g < genes; g++ {
		res.GeneIDs = append(res.GeneIDs, fmt.Sprintf("g%02d", g))
	}
	for c := 0; c < cells; c++ {
		res.CellIDs = append(res.CellIDs, fmt.Sprintf("c%02d", c))
	}
	return res
}

func run(t *testing.T, data *scale.Result, solver string, k int) *pca.Embedding {
	t.Helper()
	opts := pca.DefaultOptions()
	opts.Solver = solver
	opts.Components = k
	opts.Oversample = 5
	e, err := pca.Run(data, opts)
	require.NoError(t, err)
	return e
}

func TestSolversAgree(t *testing.T) {
	data := lowRank(t, 40, 30)
	ref := run(t, data, pca.ExactSVD, 3)
	require.True(t, ref.Converged)

	for _, solver := range []string{pca.Randomized, pca.Jacobi} {
		t.Run(solver, func(t *testing.T) {
			e := run(t, data, solver, 3)
			require.True(t, e.Converged)
			require.Equal(t, 3, e.K())
			for j := 0; j < 3; j++ {
				assert.InDelta(t, ref.StdDev[j], e.StdDev[j], 1e-5*ref.StdDev[j])
				corr := stat.Correlation(ref.Scores.Col(j), e.Scores.Col(j), nil)
				assert.Greater(t, corr, 0.9999, "pc %d", j)
			}
		})
	}
}

func TestVarianceOrdering(t *testing.T) {
	e := run(t, lowRank(t, 40, 30), pca.ExactSVD, 10)
	var sum float64
	for j := 0; j < e.K(); j++ {
		sum += e.VarianceRatio[j]
		if j > 0 {
			assert.LessOrEqual(t, e.StdDev[j], e.StdDev[j-1])
			assert.LessOrEqual(t, e.VarianceRatio[j], e.VarianceRatio[j-1])
		}
	}
	assert.LessOrEqual(t, sum, 1+1e-12)
	assert.Greater(t, e.VarianceRatio[0], 0.5)
}

func TestSignConvention(t *testing.T) {
	for _, solver := range []string{pca.ExactSVD, pca.Randomized, pca.Jacobi} {
		e := run(t, lowRank(t, 40, 30), solver, 3)
		for j := 0; j < 3; j++ {
			col := e.Loadings.Col(j)
			best := 0
			for i, v := range col {
				if math.Abs(v) > math.Abs(col[best]) {
					best = i
				}
			}
			assert.Positive(t, col[best], "%s pc %d", solver, j)
		}
	}
}

func TestComponentsCapped(t *testing.T) {
	e := run(t, lowRank(t, 8, 20), pca.ExactSVD, 50)
	assert.Equal(t, 8, e.K())
	assert.Equal(t, diag.StatusDegenerate, e.Report.Status())
}

func TestReconstructionErrorDecreases(t *testing.T) {
	data := lowRank(t, 12, 30)
	e := run(t, data, pca.ExactSVD, 12)
	prev := math.Inf(1)
	for k := 1; k <= 12; k++ {
		errK, err := pca.ReconstructionError(data.Data, e, k)
		require.NoError(t, err)
		assert.LessOrEqual(t, errK, prev+1e-9, "k=%d", k)
		prev = errK
	}
	assert.InDelta(t, 0, prev, 1e-8)

	_, err := e.Reconstruct(13)
	assert.ErrorIs(t, err, pca.ErrComponent)
}

func TestRandomizedDeterministic(t *testing.T) {
	data := lowRank(t, 40, 30)
	a := run(t, data, pca.Randomized, 3)
	b := run(t, data, pca.Randomized, 3)
	assert.Equal(t, a.Scores.Data(), b.Scores.Data())
	assert.Equal(t, a.Iterations, b.Iterations)
}

func TestRandomizedNotConverged(t *testing.T) {
	opts := pca.DefaultOptions()
	opts.Components = 3
	opts.Oversample = 2
	opts.MaxIterations = 1
	e, err := pca.Run(lowRank(t, 40, 30), opts)
	require.NoError(t, err)
	assert.False(t, e.Converged)
	assert.Equal(t, diag.StatusNotConverged, e.Report.Status())
	assert.Equal(t, 3, e.K())
}

func TestInvalidOptions(t *testing.T) {
	data := lowRank(t, 10, 10)
	tests := []struct {
		name   string
		mutate func(*pca.Options)
	}{
		{"zero components", func(o *pca.Options) { o.Components = 0 }},
		{"zero tolerance", func(o *pca.Options) { o.Tolerance = 0 }},
		{"unknown solver", func(o *pca.Options) { o.Solver = "lanczos" }},
		{"negative oversample", func(o *pca.Options) { o.Oversample = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := pca.DefaultOptions()
			tc.mutate(&opts)
			_, err := pca.Run(data, opts)
			assert.ErrorIs(t, err, diag.ErrInvalidInput)
		})
	}

	_, err := pca.Run(nil, pca.DefaultOptions())
	assert.ErrorIs(t, err, diag.ErrInvalidInput)
}

func TestTopGenes(t *testing.T) {
	e := run(t, lowRank(t, 40, 30), pca.ExactSVD, 3)
	top, err := e.TopGenes(0, 5)
	require.NoError(t, err)
	require.Len(t, top, 5)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, math.Abs(top[i-1].Loading), math.Abs(top[i].Loading))
	}
	assert.Positive(t, top[0].Loading)

	pos, neg, err := e.TopGenesBySign(1, 3)
	require.NoError(t, err)
	for _, g := range pos {
		assert.Positive(t, g.Loading)
	}
	for _, g := range neg {
		assert.Negative(t, g.Loading)
	}

	_, err = e.TopGenes(3, 1)
	assert.ErrorIs(t, err, pca.ErrComponent)

	coords, err := e.Coordinates(2)
	require.NoError(t, err)
	assert.Equal(t, 30, coords.Rows())
	assert.Equal(t, 2, coords.Cols())
}
