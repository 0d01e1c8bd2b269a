package de_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/scflow/de"
)

func TestAvgLogFC(t *testing.T) {
	assert.InDelta(t, math.Log(3), de.AvgLogFC([]float64{math.Log(3)}, []float64{0}), 1e-12)
	assert.Equal(t, 0.0, de.AvgLogFC([]float64{1, 2}, []float64{2, 1}))
}

func TestWilcoxNormalApproximation(t *testing.T) {
	w, err := de.Lookup(de.Wilcox)
	require.NoError(t, err)
	st, err := w.Test([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.NoError(t, err)
	assert.InDelta(t, 0.0809, st.PValue, 1e-3)

	st, err = w.Test([]float64{0, 0, 0}, []float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, 1.0, st.PValue)
}

func TestWelchSymmetric(t *testing.T) {
	tt, err := de.Lookup(de.TTest)
	require.NoError(t, err)
	a, b := []float64{1, 2, 3, 4}, []float64{2, 4, 6, 8}
	ab, err := tt.Test(a, b)
	require.NoError(t, err)
	ba, err := tt.Test(b, a)
	require.NoError(t, err)
	assert.InDelta(t, ab.PValue, ba.PValue, 1e-12)
	assert.Greater(t, ab.PValue, 0.1)
	assert.Less(t, ab.PValue, 0.2)

	st, err := tt.Test([]float64{1, 1}, []float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, st.PValue)
}

func TestBimodIdenticalGroups(t *testing.T) {
	b, err := de.Lookup(de.Bimod)
	require.NoError(t, err)
	x := []float64{0, 1, 2, 0, 1.5}
	st, err := b.Test(x, x)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, st.PValue, 1e-6)

	_, err = b.Test(nil, x)
	assert.Error(t, err)
}

func TestTestersRegistry(t *testing.T) {
	names := de.Testers()
	assert.Subset(t, names, []string{"bimod", "t", "wilcox"})
	_, err := de.Lookup("nope")
	assert.ErrorIs(t, err, de.ErrUnknownTest)
}
