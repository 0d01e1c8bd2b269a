package de

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/katalvlaran/scflow/diag"
)

// Row is one marker candidate that passed every filter.
type Row struct {
	Gene    string  `json:"gene"`
	Cluster int     `json:"cluster"`
	PValue  float64 `json:"p_val"`
	LogFC   float64 `json:"avg_logFC"`
	Pct1    float64 `json:"pct.1"`
	Pct2    float64 `json:"pct.2"`
	PAdj    float64 `json:"p_val_adj"`
}

// Table is a set of marker rows.
type Table struct {
	Rows   []Row       `json:"rows"`
	Test   string      `json:"test"`
	Report diag.Report `json:"report"`
}

// SortKey names a row ordering.
type SortKey string

// Sort keys.
const (
	// SortPValue orders by p-value ascending, then logFC descending, cluster, gene.
	SortPValue SortKey = "p"
	// SortLogFC orders by logFC descending, then p-value ascending, cluster, gene.
	SortLogFC SortKey = "logfc"
	// SortCluster orders by cluster, then as SortPValue.
	SortCluster SortKey = "cluster"
)

// ErrSortKey is returned for an unknown sort key.
var ErrSortKey = diag.NewSentinel("de: unknown sort key")

func compareBy(key SortKey) (func(a, b Row) int, error) {
	byP := func(a, b Row) int {
		return cmp.Or(
			cmp.Compare(a.PValue, b.PValue),
			cmp.Compare(b.LogFC, a.LogFC),
			cmp.Compare(a.Cluster, b.Cluster),
			strings.Compare(a.Gene, b.Gene),
		)
	}
	switch key {
	case SortPValue, "":
		return byP, nil
	case SortLogFC:
		return func(a, b Row) int {
			return cmp.Or(
				cmp.Compare(b.LogFC, a.LogFC),
				cmp.Compare(a.PValue, b.PValue),
				cmp.Compare(a.Cluster, b.Cluster),
				strings.Compare(a.Gene, b.Gene),
			)
		}, nil
	case SortCluster:
		return func(a, b Row) int {
			return cmp.Or(cmp.Compare(a.Cluster, b.Cluster), byP(a, b))
		}, nil
	}

	return nil, fmt.Errorf("%q: %w", key, ErrSortKey)
}

func (t *Table) sortDefault() {
	f, _ := compareBy(SortPValue)
	slices.SortStableFunc(t.Rows, f)
}

// SortBy re-sorts the rows in place.
func (t *Table) SortBy(key SortKey) error {
	f, err := compareBy(key)
	if err != nil {
		return err
	}
	slices.SortStableFunc(t.Rows, f)

	return nil
}

// Clusters returns the distinct clusters present, ascending.
func (t *Table) Clusters() []int {
	var out []int
	for _, r := range t.Rows {
		if !slices.Contains(out, r.Cluster) {
			out = append(out, r.Cluster)
		}
	}
	slices.Sort(out)

	return out
}

// ByCluster groups rows by cluster, keeping the table order within each group.
func (t *Table) ByCluster() map[int][]Row {
	out := make(map[int][]Row)
	for _, r := range t.Rows {
		out[r.Cluster] = append(out[r.Cluster], r)
	}

	return out
}

// TopN returns a table with at most n rows per cluster ranked by key,
// clusters in ascending order.
func (t *Table) TopN(n int, key SortKey) (*Table, error) {
	f, err := compareBy(key)
	if err != nil {
		return nil, err
	}
	groups := t.ByCluster()
	out := &Table{Test: t.Test, Report: t.Report}
	for _, c := range t.Clusters() {
		rows := slices.Clone(groups[c])
		slices.SortStableFunc(rows, f)
		out.Rows = append(out.Rows, rows[:min(max(n, 0), len(rows))]...)
	}

	return out, nil
}

// Unique returns the rows whose gene passes the filters in exactly one cluster.
func (t *Table) Unique() *Table {
	clusters := make(map[string]map[int]bool)
	for _, r := range t.Rows {
		if clusters[r.Gene] == nil {
			clusters[r.Gene] = make(map[int]bool)
		}
		clusters[r.Gene][r.Cluster] = true
	}
	out := &Table{Test: t.Test, Report: t.Report}
	for _, r := range t.Rows {
		if len(clusters[r.Gene]) == 1 {
			out.Rows = append(out.Rows, r)
		}
	}

	return out
}

// Genes returns the distinct genes in table order.
func (t *Table) Genes() []string {
	seen := make(map[string]bool, len(t.Rows))
	var out []string
	for _, r := range t.Rows {
		if !seen[r.Gene] {
			seen[r.Gene] = true
			out = append(out, r.Gene)
		}
	}

	return out
}

// Pairs yields (gene, cluster) for every row in table order.
func (t *Table) Pairs() iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		for _, r := range t.Rows {
			if !yield(r.Gene, r.Cluster) {
				return
			}
		}
	}
}
