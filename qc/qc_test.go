package qc_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/expr"
	"github.com/katalvlaran/scflow/meta"
	"github.com/katalvlaran/scflow/qc"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// counts: 4 genes × 5 cells; "mt-co1" matches the MT- prefix case-insensitively.
func counts(t *testing.T) *expr.Matrix {
	t.Helper()
	m, err := expr.FromDense(
		[]string{"ACTB", "mt-co1", "CD3E", "RARE"},
		[]string{"c1", "c2", "c3", "c4", "c5"},
		[][]float64{
			{10, 5, 0, 8, 1},
			{0, 5, 0, 2, 0},
			{10, 0, 1, 0, 1},
			{0, 0, 1, 0, 0},
		},
	)
	require.NoError(t, err)

	return m
}

func TestMetrics(t *testing.T) {
	m := counts(t)
	tbl, err := qc.Metrics(context.Background(), m, nil, qc.DefaultOptions())
	require.NoError(t, err)

	nGenes, err := tbl.Numeric(qc.MetricNGenes)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2, 2, 2, 2}, nGenes)

	nCounts, err := tbl.Numeric(qc.MetricNCounts)
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 10, 2, 10, 2}, nCounts)

	mito, err := tbl.Numeric(qc.MetricPercentMito)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 0, 0.2, 0}, mito)
}

func TestMitoFractionWithoutMatchingGenesIsZero(t *testing.T) {
	m, err := expr.FromDense([]string{"A", "B"}, []string{"x", "y"}, [][]float64{{1, 2}, {3, 0}})
	require.NoError(t, err)
	tbl, err := qc.Metrics(context.Background(), m, nil, qc.DefaultOptions())
	require.NoError(t, err)
	mito, err := tbl.Numeric(qc.MetricPercentMito)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, mito)
}

func TestRunFiltersCellsThenGenes(t *testing.T) {
	m := counts(t)
	opts := qc.DefaultOptions()
	opts.Thresholds = map[string]qc.Bounds{
		qc.MetricNCounts:     {Low: 5, High: math.Inf(1)},
		qc.MetricPercentMito: {Low: math.Inf(-1), High: 0.3},
	}
	opts.MinCells = 1

	res, err := qc.Run(context.Background(), m, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c4"}, res.Matrix.Cells())
	assert.Equal(t, []string{"c2", "c3", "c5"}, res.DroppedCells)
	// RARE is only expressed in dropped c3.
	assert.Equal(t, []string{"ACTB", "mt-co1", "CD3E"}, res.Matrix.Genes())
	assert.Equal(t, []string{"RARE"}, res.DroppedGenes)
	assert.Equal(t, 2, res.Metrics.Len())

	// input untouched
	assert.Equal(t, 5, m.NumCells())
	assert.Equal(t, 1.0, m.At(3, 2))
}

func TestRetainedCellsSatisfyBounds(t *testing.T) {
	m := counts(t)
	bounds := qc.Bounds{Low: 2, High: 10}
	opts := qc.DefaultOptions()
	opts.Thresholds = map[string]qc.Bounds{qc.MetricNCounts: bounds}
	opts.MinCells = 0

	res, err := qc.Run(context.Background(), m, nil, opts)
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Matrix.NumCells(), m.NumCells())
	got, err := res.Metrics.Numeric(qc.MetricNCounts)
	require.NoError(t, err)
	for _, v := range got {
		assert.True(t, bounds.Contains(v), "n_counts %v outside bounds", v)
	}
	// inclusive bounds keep 2 and 10
	assert.Equal(t, []string{"c2", "c3", "c4", "c5"}, res.Matrix.Cells())
}

func TestThresholdOnInputMetadata(t *testing.T) {
	m := counts(t)
	in, err := meta.NewTable([]string{"c5", "c4", "c3", "c2", "c1"})
	require.NoError(t, err)
	in, err = in.WithNumeric("doublet_score", []float64{0.9, 0.1, 0.1, 0.1, 0.1})
	require.NoError(t, err)

	opts := qc.DefaultOptions()
	opts.MinCells = 0
	opts.Thresholds = map[string]qc.Bounds{"doublet_score": {Low: math.Inf(-1), High: 0.5}}
	res, err := qc.Run(context.Background(), m, in, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2", "c3", "c4"}, res.Matrix.Cells())
	score, err := res.Metrics.Numeric("doublet_score")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.1, 0.1, 0.1}, score)
}

func TestRunErrors(t *testing.T) {
	m := counts(t)
	tests := []struct {
		name string
		opts func(*qc.Options)
		want error
	}{
		{"unknown metric", func(o *qc.Options) { o.Thresholds = map[string]qc.Bounds{"nope": qc.Unbounded()} }, qc.ErrUnknownMetric},
		{"low above high", func(o *qc.Options) { o.Thresholds = map[string]qc.Bounds{qc.MetricNGenes: {Low: 3, High: 1}} }, qc.ErrBadBounds},
		{"no cells left", func(o *qc.Options) { o.Thresholds = map[string]qc.Bounds{qc.MetricNCounts: {Low: 1000, High: math.Inf(1)}} }, qc.ErrNothingLeft},
		{"no genes left", func(o *qc.Options) { o.MinCells = 100 }, qc.ErrNothingLeft},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := qc.DefaultOptions()
			tc.opts(&opts)
			_, err := qc.Run(context.Background(), m, nil, opts)
			require.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, diag.ErrInvalidInput)
		})
	}
}
