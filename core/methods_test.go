package core_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/scflow/core"
	"github.com/katalvlaran/scflow/diag"
)

func TestAddVertex(t *testing.T) {
	g := core.NewGraph()
	require.NoError(t, g.AddVertex("c2"))
	require.NoError(t, g.AddVertex("c1"))
	require.NoError(t, g.AddVertex("c1"))
	assert.Equal(t, []string{"c1", "c2"}, g.Vertices())
	assert.Equal(t, 2, g.VertexCount())
	assert.True(t, g.HasVertex("c1"))
	assert.False(t, g.HasVertex(""))

	err := g.AddVertex("")
	require.ErrorIs(t, err, core.ErrEmptyVertexID)
	assert.True(t, errors.Is(err, diag.ErrInvalidInput))
}

func TestAddEdgeUndirectedMirrors(t *testing.T) {
	g := core.NewGraph(core.WithWeighted())
	_, err := g.AddEdge("a", "b", 0.5)
	require.NoError(t, err)

	assert.True(t, g.HasEdge("a", "b"))
	assert.True(t, g.HasEdge("b", "a"))
	w, err := g.Weight("b", "a")
	require.NoError(t, err)
	assert.Equal(t, 0.5, w)
	assert.Equal(t, 1, g.EdgeCount())

	_, err = g.AddEdge("b", "a", 0.7)
	assert.ErrorIs(t, err, core.ErrMultiEdgeNotAllowed)
}

func TestAddEdgeDirected(t *testing.T) {
	g := core.NewGraph(core.WithWeighted(), core.WithDirected(true))
	_, err := g.AddEdge("a", "b", 2)
	require.NoError(t, err)
	_, err = g.AddEdge("b", "a", 3)
	require.NoError(t, err)

	assert.Equal(t, 2, g.EdgeCount())
	w, err := g.Weight("b", "a")
	require.NoError(t, err)
	assert.Equal(t, 3.0, w)
}

func TestAddEdgeValidation(t *testing.T) {
	tests := []struct {
		name   string
		g      *core.Graph
		from   string
		to     string
		weight float64
		want   error
	}{
		{"empty from", core.NewGraph(core.WithWeighted()), "", "b", 1, core.ErrEmptyVertexID},
		{"NaN weight", core.NewGraph(core.WithWeighted()), "a", "b", math.NaN(), core.ErrBadWeight},
		{"Inf weight", core.NewGraph(core.WithWeighted()), "a", "b", math.Inf(1), core.ErrBadWeight},
		{"weight on unweighted", core.NewGraph(), "a", "b", 1, core.ErrBadWeight},
		{"loop disabled", core.NewGraph(core.WithWeighted()), "a", "a", 1, core.ErrLoopNotAllowed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.g.AddEdge(tc.from, tc.to, tc.weight)
			require.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, diag.ErrInvalidInput)
		})
	}
}

func TestNeighborsSortedAndStrength(t *testing.T) {
	g := core.NewGraph(core.WithWeighted(), core.WithLoops())
	for _, e := range []struct {
		u, v string
		w    float64
	}{{"x", "c", 0.25}, {"x", "a", 0.5}, {"x", "x", 1}, {"a", "c", 0.1}} {
		_, err := g.AddEdge(e.u, e.v, e.w)
		require.NoError(t, err)
	}

	nbs, err := g.Neighbors("x")
	require.NoError(t, err)
	assert.Equal(t, []core.Neighbor{{ID: "a", Weight: 0.5}, {ID: "c", Weight: 0.25}, {ID: "x", Weight: 1}}, nbs)

	ids, err := g.NeighborIDs("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "x"}, ids)

	s, err := g.Strength("x")
	require.NoError(t, err)
	assert.InDelta(t, 1.75, s, 1e-12)

	deg, err := g.Degree("x")
	require.NoError(t, err)
	assert.Equal(t, 3, deg)

	_, err = g.Neighbors("missing")
	assert.ErrorIs(t, err, core.ErrVertexNotFound)
}

func TestRemoveEdge(t *testing.T) {
	g := core.NewGraph(core.WithWeighted())
	eid, err := g.AddEdge("a", "b", 1)
	require.NoError(t, err)
	require.NoError(t, g.RemoveEdge(eid))
	assert.False(t, g.HasEdge("a", "b"))
	assert.False(t, g.HasEdge("b", "a"))
	assert.ErrorIs(t, g.RemoveEdge(eid), core.ErrEdgeNotFound)
	// Vertices survive edge removal.
	assert.Equal(t, 2, g.VertexCount())
}

func TestEdgesDeterministicOrder(t *testing.T) {
	g := core.NewGraph(core.WithWeighted())
	_, _ = g.AddEdge("b", "c", 1)
	_, _ = g.AddEdge("a", "d", 1)
	_, _ = g.AddEdge("a", "b", 1)

	var got [][2]string
	for _, e := range g.Edges() {
		got = append(got, [2]string{e.From, e.To})
	}
	assert.Equal(t, [][2]string{{"a", "b"}, {"a", "d"}, {"b", "c"}}, got)
}

func TestCloneIsIndependent(t *testing.T) {
	g := core.NewGraph(core.WithWeighted())
	_, _ = g.AddEdge("a", "b", 1)
	c := g.Clone()
	_, err := c.AddEdge("b", "c", 2)
	require.NoError(t, err)

	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 2, c.EdgeCount())
	assert.False(t, g.HasVertex("c"))
}

func TestInducedSubgraph(t *testing.T) {
	g := core.NewGraph(core.WithWeighted())
	_, _ = g.AddEdge("a", "b", 1)
	_, _ = g.AddEdge("b", "c", 2)
	_, _ = g.AddEdge("c", "a", 3)

	sub := core.InducedSubgraph(g, map[string]bool{"a": true, "c": true})
	assert.Equal(t, []string{"a", "c"}, sub.Vertices())
	w, err := sub.Weight("a", "c")
	require.NoError(t, err)
	assert.Equal(t, 3.0, w)
	assert.Equal(t, 1, sub.EdgeCount())
}

func TestStats(t *testing.T) {
	g := core.NewGraph(core.WithWeighted())
	_, _ = g.AddEdge("a", "b", 0.5)
	_, _ = g.AddEdge("b", "c", 0.25)
	require.NoError(t, g.AddVertex("lonely"))

	st := g.Stats()
	assert.Equal(t, 4, st.VertexCount)
	assert.Equal(t, 2, st.EdgeCount)
	assert.Equal(t, 1, st.IsolatedCount)
	assert.InDelta(t, 0.75, st.TotalWeight, 1e-12)
	assert.True(t, st.Weighted)
	assert.False(t, st.Directed)
}
