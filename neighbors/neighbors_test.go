package neighbors_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/matrix"
	"github.com/katalvlaran/scflow/neighbors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// line places cells at x = 0..n-1 on one axis, with a second noisy axis.
func line(t *testing.T, n int) ([]string, *matrix.Dense) {
	t.Helper()
	ids := make([]string, n)
	data := make([]float64, 0, 2*n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("c%02d", i)
		data = append(data, float64(i), 100*float64(i%2))
	}
	m, err := matrix.NewDenseFrom(n, 2, data)
	require.NoError(t, err)
	return ids, m
}

func TestQueryOrderAndTies(t *testing.T) {
	ids, pts := line(t, 5)
	idx, err := neighbors.NewBruteForce(ids, pts, 1)
	require.NoError(t, err)

	hits, err := idx.Query(2, 2)
	require.NoError(t, err)
	// c01 and c03 tie at distance 1; identifier order decides.
	assert.Equal(t, []neighbors.Hit{{Index: 1, Distance: 1}, {Index: 3, Distance: 1}}, hits)

	hits, err = idx.Query(0, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, hits[0].Index)
	assert.Equal(t, 3, hits[2].Index)
}

func TestDimsRestrictDistance(t *testing.T) {
	ids, pts := line(t, 6)
	all, err := neighbors.NewBruteForce(ids, pts, 0)
	require.NoError(t, err)
	hits, err := all.Query(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, hits[0].Index, "second axis separates odd cells")

	_, err = neighbors.NewBruteForce(ids, pts, 3)
	assert.ErrorIs(t, err, neighbors.ErrBadDims)
}

func TestValidation(t *testing.T) {
	ids, pts := line(t, 4)
	tests := []struct {
		name string
		ids  []string
		k    int
		want error
	}{
		{"k zero", ids, 0, neighbors.ErrBadK},
		{"k too large", ids, 4, neighbors.ErrBadK},
		{"duplicate ids", []string{"a", "a", "b", "c"}, 1, neighbors.ErrDuplicateID},
		{"length mismatch", ids[:3], 1, diag.ErrInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := neighbors.DefaultOptions()
			opts.K = tc.k
			_, _, err := neighbors.Build(context.Background(), tc.ids, pts, opts)
			require.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, diag.ErrInvalidInput)
		})
	}

	_, _, err := neighbors.Build(context.Background(), nil, nil, neighbors.DefaultOptions())
	assert.ErrorIs(t, err, diag.ErrInvalidInput)
}

func TestSNNWeights(t *testing.T) {
	ids, pts := line(t, 4)
	opts := neighbors.Options{K: 1, Dims: 1, Prune: 0, Workers: 2}
	knn, g, err := neighbors.Build(context.Background(), ids, pts, opts)
	require.NoError(t, err)

	// kNN: c00→c01, c01→c00, c02→c01, c03→c02.
	assert.Equal(t, [][]int{{1}, {0}, {1}, {2}}, knn.Neighbors)

	// S(0)={0,1} S(1)={0,1}: 2/2.
	w, err := g.Weight("c00", "c01")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, w, 1e-12)
	// S(2)={1,2} S(1)={0,1}: 1/3.
	w, err = g.Weight("c02", "c01")
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, w, 1e-12)
	// S(3)={2,3} S(2)={1,2}: 1/3.
	w, err = g.Weight("c03", "c02")
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, w, 1e-12)
	// c00 and c02 are not KNN pairs but share c01: 1/3.
	w, err = g.Weight("c00", "c02")
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, w, 1e-12)
	// S(0) and S(3) are disjoint.
	assert.False(t, g.HasEdge("c00", "c03"))

	assert.False(t, g.Directed())
	assert.Equal(t, 4, g.EdgeCount())
	assert.Equal(t, 4, g.VertexCount())
}

func TestSNNPruneKeepsIsolatedCells(t *testing.T) {
	ids, pts := line(t, 4)
	opts := neighbors.Options{K: 1, Dims: 1, Prune: 0.5}
	_, g, err := neighbors.Build(context.Background(), ids, pts, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 4, g.VertexCount())
	assert.True(t, g.HasVertex("c03"))
}

// TestSNNLinksCoNeighbors builds two tight groups of ten cells. Within a
// group every pair shares a neighbor, so the SNN graph is complete there
// and empty across groups.
func TestSNNLinksCoNeighbors(t *testing.T) {
	ids := make([]string, 20)
	data := make([]float64, 0, 40)
	for i := range ids {
		ids[i] = fmt.Sprintf("c%02d", i)
		off := 0.0
		if i >= 10 {
			off = 1000
		}
		data = append(data, off+float64(i%10), float64((i*7)%10))
	}
	pts, err := matrix.NewDenseFrom(20, 2, data)
	require.NoError(t, err)

	_, g, err := neighbors.Build(context.Background(), ids, pts, neighbors.Options{K: 5, Prune: 0})
	require.NoError(t, err)
	assert.Equal(t, 2*45, g.EdgeCount())
	for _, e := range g.Edges() {
		assert.Equal(t, e.From < "c10", e.To < "c10", "edge %s-%s crosses groups", e.From, e.To)
	}
}

func TestKNNGraphDirected(t *testing.T) {
	ids, pts := line(t, 5)
	idx, err := neighbors.NewBruteForce(ids, pts, 1)
	require.NoError(t, err)
	knn, err := neighbors.FindKNN(context.Background(), idx, 2, 3)
	require.NoError(t, err)
	g, err := knn.Graph()
	require.NoError(t, err)
	assert.True(t, g.Directed())
	assert.Equal(t, 10, g.EdgeCount())
	d, err := g.Weight("c00", "c02")
	require.NoError(t, err)
	assert.Equal(t, 2.0, d)
}

func TestParallelMatchesSequential(t *testing.T) {
	ids, pts := line(t, 30)
	seq := neighbors.Options{K: 5, Dims: 0, Prune: neighbors.DefaultPrune, Workers: 1}
	par := seq
	par.Workers = 4
	k1, g1, err := neighbors.Build(context.Background(), ids, pts, seq)
	require.NoError(t, err)
	k2, g2, err := neighbors.Build(context.Background(), ids, pts, par)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Equal(t, g1.Edges(), g2.Edges())
}
