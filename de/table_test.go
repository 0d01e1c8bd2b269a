package de_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/scflow/de"
)

func sampleTable() *de.Table {
	return &de.Table{Test: de.Bimod, Rows: []de.Row{
		{Gene: "CD3E", Cluster: 0, PValue: 1e-9, LogFC: 1.2},
		{Gene: "MS4A1", Cluster: 1, PValue: 1e-8, LogFC: 2.5},
		{Gene: "CD3D", Cluster: 0, PValue: 1e-6, LogFC: 3.0},
		{Gene: "LYZ", Cluster: 0, PValue: 1e-4, LogFC: 1.1},
		{Gene: "LYZ", Cluster: 1, PValue: 1e-3, LogFC: 1.0},
	}}
}

func TestTopN(t *testing.T) {
	top, err := sampleTable().TopN(1, de.SortLogFC)
	require.NoError(t, err)
	assert.Equal(t, []string{"CD3D", "MS4A1"}, top.Genes())

	top, err = sampleTable().TopN(2, de.SortPValue)
	require.NoError(t, err)
	assert.Equal(t, []string{"CD3E", "CD3D", "MS4A1", "LYZ"}, top.Genes())

	_, err = sampleTable().TopN(1, "bogus")
	assert.ErrorIs(t, err, de.ErrSortKey)
}

func TestUnique(t *testing.T) {
	u := sampleTable().Unique()
	assert.Equal(t, []string{"CD3E", "MS4A1", "CD3D"}, u.Genes())
}

func TestSortByCluster(t *testing.T) {
	tbl := sampleTable()
	require.NoError(t, tbl.SortBy(de.SortCluster))
	var clusters []int
	for _, c := range tbl.Pairs() {
		clusters = append(clusters, c)
	}
	assert.Equal(t, []int{0, 0, 0, 1, 1}, clusters)
	assert.Equal(t, []int{0, 1}, tbl.Clusters())
}

func TestPairsStopsEarly(t *testing.T) {
	var genes []string
	for g := range sampleTable().Pairs() {
		genes = append(genes, g)
		if len(genes) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"CD3E", "MS4A1"}, genes)
}
