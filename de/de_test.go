package de_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/katalvlaran/scflow/cluster"
	"github.com/katalvlaran/scflow/de"
	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/expr"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// twoGroups returns 20 cells: c00-c09 in cluster 0, c10-c19 in cluster 1.
// G is expressed in every cluster-0 cell and no cluster-1 cell; W is a weak
// cluster-0 signal; N is identical in both groups.
func twoGroups(t *testing.T) (*expr.Matrix, *cluster.Assignment) {
	t.Helper()
	const n = 20
	cells := make([]string, n)
	labels := make([]int, n)
	g, w, noise := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		cells[i] = fmt.Sprintf("c%02d", i)
		noise[i] = float64(i % 3)
		if i < 10 {
			g[i] = 1.5 + 0.1*float64(i)
			if i%2 == 0 {
				w[i] = 1
			}
			continue
		}
		labels[i] = 1
		if i%5 == 0 {
			w[i] = 0.5
		}
	}
	m, err := expr.FromDense([]string{"G", "N", "W"}, cells, [][]float64{g, noise, w})
	require.NoError(t, err)
	a, err := cluster.NewAssignment(cells, labels)
	require.NoError(t, err)
	return m, a
}

func rowsFor(tbl *de.Table, cluster int) []de.Row {
	return tbl.ByCluster()[cluster]
}

func TestPerfectMarkerRanksFirst(t *testing.T) {
	m, a := twoGroups(t)
	opts := de.DefaultOptions()
	opts.MinLogFC = 0.25
	tbl, err := de.FindAllMarkers(context.Background(), m, a, opts)
	require.NoError(t, err)
	assert.Equal(t, de.Bimod, tbl.Test)

	rows := rowsFor(tbl, 0)
	require.NotEmpty(t, rows)
	assert.Equal(t, "G", rows[0].Gene)
	assert.Positive(t, rows[0].LogFC)
	assert.Equal(t, 1.0, rows[0].Pct1)
	assert.Equal(t, 0.0, rows[0].Pct2)
	for _, r := range rows[1:] {
		assert.Less(t, rows[0].PValue, r.PValue)
	}
	for _, r := range tbl.Rows {
		assert.NotEqual(t, "N", r.Gene)
		assert.Positive(t, r.LogFC)
		assert.Equal(t, math.Min(1, 3*r.PValue), r.PAdj)
	}
}

func TestAllTestersFindMarker(t *testing.T) {
	m, a := twoGroups(t)
	for _, name := range []string{de.Bimod, de.Wilcox, de.TTest} {
		t.Run(name, func(t *testing.T) {
			opts := de.DefaultOptions()
			opts.Test = name
			tbl, err := de.FindAllMarkers(context.Background(), m, a, opts)
			require.NoError(t, err)
			rows := rowsFor(tbl, 0)
			require.NotEmpty(t, rows)
			assert.Equal(t, "G", rows[0].Gene)
			assert.Less(t, rows[0].PValue, 0.01)
		})
	}
}

func TestOnlyPositiveOff(t *testing.T) {
	m, a := twoGroups(t)
	opts := de.DefaultOptions()
	opts.OnlyPositive = false
	tbl, err := de.FindAllMarkers(context.Background(), m, a, opts)
	require.NoError(t, err)
	var negative bool
	for _, r := range rowsFor(tbl, 1) {
		if r.Gene == "G" {
			negative = r.LogFC < 0
		}
	}
	assert.True(t, negative)
}

func TestSmallGroupSkipped(t *testing.T) {
	m, _ := twoGroups(t)
	labels := make([]int, m.NumCells())
	for i := range labels {
		switch {
		case i < 10:
			labels[i] = 0
		case i < 18:
			labels[i] = 1
		default:
			labels[i] = 2
		}
	}
	a, err := cluster.NewAssignment(m.Cells(), labels)
	require.NoError(t, err)
	tbl, err := de.FindAllMarkers(context.Background(), m, a, de.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, diag.StatusDegenerate, tbl.Report.Status())
	assert.Empty(t, rowsFor(tbl, 2))
}

func TestFindMarkersPairwise(t *testing.T) {
	m, a := twoGroups(t)
	tbl, err := de.FindMarkers(context.Background(), m, a, 0, []int{1}, de.DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, tbl.Rows)
	assert.Equal(t, "G", tbl.Rows[0].Gene)

	_, err = de.FindMarkers(context.Background(), m, a, 0, []int{7}, de.DefaultOptions())
	assert.ErrorIs(t, err, de.ErrUnknownGroup)
	_, err = de.FindMarkers(context.Background(), m, a, 0, []int{0}, de.DefaultOptions())
	assert.ErrorIs(t, err, diag.ErrInvalidInput)
}

func TestDownsampleDeterministic(t *testing.T) {
	m, a := twoGroups(t)
	opts := de.DefaultOptions()
	opts.MaxCellsPerGroup = 5
	opts.Seed = 3
	first, err := de.FindAllMarkers(context.Background(), m, a, opts)
	require.NoError(t, err)
	opts.Workers = 3
	second, err := de.FindAllMarkers(context.Background(), m, a, opts)
	require.NoError(t, err)
	assert.Equal(t, first.Rows, second.Rows)
	var found bool
	for _, r := range first.Rows {
		if r.Gene == "G" && r.Cluster == 0 {
			found = true
			assert.Equal(t, 1.0, r.Pct1)
		}
	}
	assert.True(t, found)
}

func TestInputErrors(t *testing.T) {
	m, _ := twoGroups(t)
	partial, err := cluster.NewAssignment([]string{"c00", "c01"}, []int{0, 1})
	require.NoError(t, err)
	_, err = de.FindAllMarkers(context.Background(), m, partial, de.DefaultOptions())
	assert.ErrorIs(t, err, de.ErrUnlabeledCell)

	_, a := twoGroups(t)
	opts := de.DefaultOptions()
	opts.Test = "mast"
	_, err = de.FindAllMarkers(context.Background(), m, a, opts)
	assert.ErrorIs(t, err, de.ErrUnknownTest)
	assert.ErrorIs(t, err, diag.ErrInvalidInput)

	opts = de.DefaultOptions()
	opts.MinPct = 2
	_, err = de.FindAllMarkers(context.Background(), m, a, opts)
	assert.ErrorIs(t, err, diag.ErrInvalidInput)
}

type constTester struct{}

func (constTester) Name() string { return "const" }
func (constTester) Test(a, b []float64) (de.Stat, error) {
	return de.Stat{LogFC: 2 * de.AvgLogFC(a, b), PValue: 0.5}, nil
}

type nanFoldTester struct{}

func (nanFoldTester) Name() string { return "nan-fold" }
func (nanFoldTester) Test(a, b []float64) (de.Stat, error) {
	return de.Stat{LogFC: math.NaN(), PValue: 0.5}, nil
}

func TestCustomTester(t *testing.T) {
	de.Register(constTester{})
	m, a := twoGroups(t)
	opts := de.DefaultOptions()
	opts.Test = "const"
	tbl, err := de.FindAllMarkers(context.Background(), m, a, opts)
	require.NoError(t, err)
	assert.Equal(t, "const", tbl.Test)
	for _, r := range tbl.Rows {
		assert.Equal(t, 0.5, r.PValue)
	}

	// Rows carry the tester's fold change, not the pre-filter value.
	ref, err := de.FindAllMarkers(context.Background(), m, a, de.DefaultOptions())
	require.NoError(t, err)
	want := map[[2]any]float64{}
	for _, r := range ref.Rows {
		want[[2]any{r.Gene, r.Cluster}] = 2 * r.LogFC
	}
	require.Len(t, tbl.Rows, len(ref.Rows))
	for _, r := range tbl.Rows {
		assert.InDelta(t, want[[2]any{r.Gene, r.Cluster}], r.LogFC, 1e-12, "%s/%d", r.Gene, r.Cluster)
	}

	de.Register(nanFoldTester{})
	opts.Test = "nan-fold"
	_, err = de.FindAllMarkers(context.Background(), m, a, opts)
	assert.ErrorIs(t, err, diag.ErrInvalidInput)
}
