package diag_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/katalvlaran/scflow/diag"
)

func TestSentinelMatchesRoot(t *testing.T) {
	errA := diag.NewSentinel("pkg: a")
	errB := diag.NewSentinel("pkg: b")
	wrapped := fmt.Errorf("context: %w", errA)

	assert.ErrorIs(t, wrapped, errA)
	assert.ErrorIs(t, wrapped, diag.ErrInvalidInput)
	assert.False(t, errors.Is(wrapped, errB))
	assert.Equal(t, "context: pkg: a", wrapped.Error())
}

func TestInvalid(t *testing.T) {
	err := diag.Invalid("scale", "ClipMax %v", -1)
	assert.ErrorIs(t, err, diag.ErrInvalidInput)
	assert.Equal(t, "scale: ClipMax -1: invalid input", err.Error())
}

func TestReportStatus(t *testing.T) {
	var r diag.Report
	assert.True(t, r.OK())
	assert.Equal(t, diag.StatusOK, r.Status())
	assert.Equal(t, "ok", r.String())

	r.Degenerate("hvg", "no variable genes among %d", 10)
	assert.Equal(t, diag.StatusDegenerate, r.Status())

	var other diag.Report
	other.NotConverged("pca", "max iterations %d", 5)
	r.Merge(other)
	assert.Equal(t, diag.StatusNotConverged, r.Status())
	assert.Equal(t, "did-not-converge", r.Status().String())
	assert.Equal(t,
		"hvg: degenerate-data: no variable genes among 10; pca: numeric-instability: max iterations 5",
		r.String())
	assert.Len(t, r.Warnings, 2)
}

func TestKindNames(t *testing.T) {
	assert.Equal(t, "invalid-input", diag.InvalidInput.String())
	assert.Equal(t, "kind(9)", diag.Kind(9).String())
	assert.Equal(t, "status(7)", diag.Status(7).String())
}

func TestCheckFinite(t *testing.T) {
	assert.Equal(t, -1, diag.CheckFinite([]float64{0, 1, -2}))
	assert.Equal(t, 1, diag.CheckFinite([]float64{0, math.NaN(), math.Inf(1)}))
	assert.Equal(t, 0, diag.CheckFinite([]float64{math.Inf(-1)}))
	assert.Equal(t, -1, diag.CheckFinite(nil))
}
