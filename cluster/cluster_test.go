package cluster_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/katalvlaran/scflow/cluster"
	"github.com/katalvlaran/scflow/core"
	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/matrix"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func clique(t *testing.T, g *core.Graph, prefix string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			_, err := g.AddEdge(fmt.Sprintf("%s%d", prefix, i), fmt.Sprintf("%s%d", prefix, j), 1)
			require.NoError(t, err)
		}
	}
}

// twoCliques joins two 5-cliques by one weak edge.
func twoCliques(t *testing.T) *core.Graph {
	t.Helper()
	g := core.NewGraph(core.WithWeighted())
	clique(t, g, "a", 5)
	clique(t, g, "b", 5)
	_, err := g.AddEdge("a0", "b0", 0.1)
	require.NoError(t, err)
	return g
}

func TestPartitionTwoCliques(t *testing.T) {
	opts := cluster.DefaultOptions()
	opts.Resolution = 1
	a, err := cluster.Partition(context.Background(), twoCliques(t), opts)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0, 0, 0, 0, 1, 1, 1, 1, 1}, a.Labels)
	assert.Equal(t, []int{5, 5}, a.Sizes)
	assert.True(t, a.Converged)
	assert.Equal(t, 1, a.Components)
	assert.InDelta(t, 40/40.2-0.5, a.Modularity, 1e-12)

	l, ok := a.Label("b3")
	assert.True(t, ok)
	assert.Equal(t, 1, l)
	_, ok = a.Label("zz")
	assert.False(t, ok)
	assert.Equal(t, []string{"a0", "a1", "a2", "a3", "a4"}, a.Members(0))
}

func TestPartitionDeterministic(t *testing.T) {
	g := twoCliques(t)
	clique(t, g, "c", 6)
	_, err := g.AddEdge("c0", "b1", 0.3)
	require.NoError(t, err)

	opts := cluster.DefaultOptions()
	opts.Seed = 99
	opts.Workers = 1
	first, err := cluster.Partition(context.Background(), g, opts)
	require.NoError(t, err)
	opts.Workers = 4
	second, err := cluster.Partition(context.Background(), g, opts)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Labels, second.Labels); diff != "" {
		t.Fatalf("labels differ (-first +second):\n%s", diff)
	}
	assert.Equal(t, first.Modularity, second.Modularity)
	assert.Equal(t, first.Start, second.Start)
	assert.Equal(t, 3, first.NumClusters())
}

func TestGroupSingletons(t *testing.T) {
	g := twoCliques(t)
	_, err := g.AddEdge("p", "a0", 0.05)
	require.NoError(t, err)

	opts := cluster.DefaultOptions()
	opts.Resolution = 2.2
	opts.GroupSingletons = false
	raw, err := cluster.Partition(context.Background(), g, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 5, 1}, raw.Sizes)

	opts.GroupSingletons = true
	grouped, err := cluster.Partition(context.Background(), g, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 5}, grouped.Sizes)
	pl, _ := grouped.Label("p")
	al, _ := grouped.Label("a0")
	assert.Equal(t, al, pl)
}

func TestIsolatedVerticesStaySingletons(t *testing.T) {
	g := twoCliques(t)
	require.NoError(t, g.AddVertex("lonely"))
	a, err := cluster.Partition(context.Background(), g, cluster.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, a.Components)
	assert.Equal(t, []int{5, 5, 1}, a.Sizes)
	l, _ := a.Label("lonely")
	assert.Equal(t, 2, l)
}

func TestEdgelessGraph(t *testing.T) {
	g := core.NewGraph(core.WithWeighted())
	for _, id := range []string{"x", "y", "z"} {
		require.NoError(t, g.AddVertex(id))
	}
	a, err := cluster.Partition(context.Background(), g, cluster.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, a.Labels)
	assert.Equal(t, 0.0, a.Modularity)
}

func TestPartitionErrors(t *testing.T) {
	_, err := cluster.Partition(context.Background(), core.NewGraph(), cluster.DefaultOptions())
	assert.ErrorIs(t, err, cluster.ErrEmptyGraph)
	assert.ErrorIs(t, err, diag.ErrInvalidInput)

	d := core.NewGraph(core.WithDirected(true), core.WithWeighted())
	_, err = d.AddEdge("a", "b", 1)
	require.NoError(t, err)
	_, err = cluster.Partition(context.Background(), d, cluster.DefaultOptions())
	assert.ErrorIs(t, err, cluster.ErrDirectedGraph)

	neg := core.NewGraph(core.WithWeighted())
	_, err = neg.AddEdge("a", "b", -1)
	require.NoError(t, err)
	_, err = cluster.Partition(context.Background(), neg, cluster.DefaultOptions())
	assert.ErrorIs(t, err, cluster.ErrNegativeWeight)

	opts := cluster.DefaultOptions()
	opts.Resolution = 0
	_, err = cluster.Partition(context.Background(), twoCliques(t), opts)
	assert.ErrorIs(t, err, diag.ErrInvalidInput)
}

func TestNotConvergedWarning(t *testing.T) {
	opts := cluster.DefaultOptions()
	opts.MaxSweeps = 1
	opts.RandomStarts = 1
	g := twoCliques(t)
	clique(t, g, "c", 7)
	_, err := g.AddEdge("c0", "b0", 0.2)
	require.NoError(t, err)
	_, err = g.AddEdge("c1", "a1", 0.2)
	require.NoError(t, err)

	a, err := cluster.Partition(context.Background(), g, opts)
	require.NoError(t, err)
	assert.False(t, a.Converged)
	assert.Equal(t, diag.StatusNotConverged, a.Report.Status())
}

func TestNewAssignment(t *testing.T) {
	a, err := cluster.NewAssignment([]string{"u", "v", "w", "x", "y", "z"}, []int{2, 2, 0, 1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2, 0, 0, 0}, a.Labels)
	assert.Equal(t, []int{3, 2, 1}, a.Sizes)

	_, err = cluster.NewAssignment([]string{"u"}, []int{0, 1})
	assert.ErrorIs(t, err, cluster.ErrLength)
}

func blobs(t *testing.T, per int) ([]string, *matrix.Dense) {
	t.Helper()
	ids := make([]string, 0, 2*per)
	data := make([]float64, 0, 4*per)
	for b := 0; b < 2; b++ {
		for i := 0; i < per; i++ {
			ids = append(ids, fmt.Sprintf("b%d-%02d", b, i))
			angle := float64(i) * 2.399963
			r := math.Sqrt(float64(i))
			data = append(data, float64(100*b)+r*math.Cos(angle), r*math.Sin(angle))
		}
	}
	m, err := matrix.NewDenseFrom(2*per, 2, data)
	require.NoError(t, err)
	return ids, m
}

func TestFindClusters(t *testing.T) {
	ids, pts := blobs(t, 30)
	opts := cluster.DefaultFindOptions()
	opts.Neighbors.K = 8
	opts.Neighbors.Prune = 0
	opts.Cluster.Resolution = 0.1
	found, err := cluster.FindClusters(context.Background(), ids, pts, opts)
	require.NoError(t, err)
	require.NotNil(t, found.Graph)

	a := found.Assignment
	assert.Equal(t, 2, a.Components)
	assert.Equal(t, []int{30, 30}, a.Sizes)
	l0, _ := a.Label("b0-00")
	l1, _ := a.Label("b1-00")
	assert.Equal(t, 0, l0)
	assert.Equal(t, 1, l1)

	opts.RetainGraph = false
	found, err = cluster.FindClusters(context.Background(), ids, pts, opts)
	require.NoError(t, err)
	assert.Nil(t, found.Graph)
}
