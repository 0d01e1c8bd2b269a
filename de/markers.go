package de

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/expr"
	"github.com/katalvlaran/scflow/internal/parallel"
	"github.com/katalvlaran/scflow/internal/rng"
)

const stage = "de"

// Sentinel errors; all match diag.ErrInvalidInput.
var (
	// ErrUnlabeledCell is returned when a data cell has no cluster label.
	ErrUnlabeledCell = diag.NewSentinel("de: cell has no cluster label")

	// ErrUnknownGroup is returned when a requested group has no cells.
	ErrUnknownGroup = diag.NewSentinel("de: unknown group")
)

// Labeler assigns cells to clusters. *cluster.Assignment satisfies it.
type Labeler interface {
	Label(cell string) (int, bool)
}

// Options configures marker detection.
type Options struct {
	Test       string  `yaml:"test"`
	MinPct     float64 `yaml:"min_pct"`
	MinDiffPct float64 `yaml:"min_diff_pct"`
	MinLogFC   float64 `yaml:"min_logfc"`
	// OnlyPositive keeps genes with avg_logFC > 0 only.
	OnlyPositive bool `yaml:"only_positive"`
	// MinCells skips groups with fewer cells.
	MinCells int `yaml:"min_cells"`
	// MaxCellsPerGroup downsamples larger groups; 0 keeps every cell.
	MaxCellsPerGroup int   `yaml:"max_cells_per_group"`
	Seed             int64 `yaml:"seed"`
	Workers          int   `yaml:"-"`
}

// DefaultOptions returns the bimod test, min.pct 0.1, logFC 1 and positive markers only.
func DefaultOptions() Options {
	return Options{
		Test:         Bimod,
		MinPct:       0.1,
		MinDiffPct:   math.Inf(-1),
		MinLogFC:     1.0,
		OnlyPositive: true,
		MinCells:     3,
		Seed:         rng.DefaultSeed,
	}
}

func (o Options) validate() (Tester, error) {
	switch {
	case math.IsNaN(o.MinPct) || o.MinPct < 0 || o.MinPct > 1:
		return nil, diag.Invalid(stage, "min_pct %v outside [0,1]", o.MinPct)
	case math.IsNaN(o.MinDiffPct):
		return nil, diag.Invalid(stage, "min_diff_pct is NaN")
	case math.IsNaN(o.MinLogFC) || o.MinLogFC < 0:
		return nil, diag.Invalid(stage, "min_logfc %v", o.MinLogFC)
	case o.MinCells < 1:
		return nil, diag.Invalid(stage, "min_cells %d < 1", o.MinCells)
	case o.MaxCellsPerGroup < 0:
		return nil, diag.Invalid(stage, "max_cells_per_group %d < 0", o.MaxCellsPerGroup)
	}
	name := o.Test
	if name == "" {
		name = Bimod
	}

	return Lookup(name)
}

// comparison is one group-versus-group contrast in cell-index space.
type comparison struct {
	cluster int
	a, b    []int
}

// FindAllMarkers compares every cluster against all remaining cells.
func FindAllMarkers(ctx context.Context, data *expr.Matrix, labels Labeler, opts Options) (*Table, error) {
	tester, err := opts.validate()
	if err != nil {
		return nil, err
	}
	cellLabels, clusters, err := labelCells(data, labels)
	if err != nil {
		return nil, err
	}
	comps := make([]comparison, 0, len(clusters))
	for _, c := range clusters {
		var in, out []int
		for i, l := range cellLabels {
			if l == c {
				in = append(in, i)
			} else {
				out = append(out, i)
			}
		}
		comps = append(comps, comparison{cluster: c, a: in, b: out})
	}

	return run(ctx, data, comps, tester, opts)
}

// FindMarkers compares cluster ident1 against the clusters in ident2, or
// against all other cells when ident2 is empty.
func FindMarkers(ctx context.Context, data *expr.Matrix, labels Labeler, ident1 int, ident2 []int, opts Options) (*Table, error) {
	tester, err := opts.validate()
	if err != nil {
		return nil, err
	}
	cellLabels, clusters, err := labelCells(data, labels)
	if err != nil {
		return nil, err
	}
	for _, id := range append([]int{ident1}, ident2...) {
		if !slices.Contains(clusters, id) {
			return nil, fmt.Errorf("cluster %d: %w", id, ErrUnknownGroup)
		}
	}
	if slices.Contains(ident2, ident1) {
		return nil, diag.Invalid(stage, "cluster %d on both sides", ident1)
	}
	cmp := comparison{cluster: ident1}
	for i, l := range cellLabels {
		switch {
		case l == ident1:
			cmp.a = append(cmp.a, i)
		case len(ident2) == 0 || slices.Contains(ident2, l):
			cmp.b = append(cmp.b, i)
		}
	}

	return run(ctx, data, []comparison{cmp}, tester, opts)
}

func labelCells(data *expr.Matrix, labels Labeler) ([]int, []int, error) {
	if data == nil || labels == nil {
		return nil, nil, diag.Invalid(stage, "nil data or labels")
	}
	if data.NumCells() == 0 || data.NumGenes() == 0 {
		return nil, nil, diag.Invalid(stage, "empty matrix")
	}
	out := make([]int, data.NumCells())
	seen := make(map[int]bool)
	for c := range out {
		l, ok := labels.Label(data.Cell(c))
		if !ok {
			return nil, nil, fmt.Errorf("%q: %w", data.Cell(c), ErrUnlabeledCell)
		}
		out[c] = l
		seen[l] = true
	}
	clusters := make([]int, 0, len(seen))
	for l := range seen {
		clusters = append(clusters, l)
	}
	slices.Sort(clusters)

	return out, clusters, nil
}

// downsample keeps at most limit indices, chosen by a seeded permutation.
func downsample(idx []int, limit int, seed int64, stream uint64) []int {
	if limit == 0 || len(idx) <= limit {
		return idx
	}
	perm := rng.Perm(len(idx), rng.Derive(seed, stream))[:limit]
	out := make([]int, limit)
	for i, p := range perm {
		out[i] = idx[p]
	}
	slices.Sort(out)

	return out
}

func run(ctx context.Context, data *expr.Matrix, comps []comparison, tester Tester, opts Options) (*Table, error) {
	tbl := &Table{Test: tester.Name()}
	active := comps[:0:0]
	for k, cmp := range comps {
		if len(cmp.a) < opts.MinCells || len(cmp.b) < opts.MinCells {
			tbl.Report.Degenerate(stage, "cluster %d skipped: %d vs %d cells (min %d)",
				cmp.cluster, len(cmp.a), len(cmp.b), opts.MinCells)
			continue
		}
		cmp.a = downsample(cmp.a, opts.MaxCellsPerGroup, opts.Seed, uint64(2*k))
		cmp.b = downsample(cmp.b, opts.MaxCellsPerGroup, opts.Seed, uint64(2*k+1))
		active = append(active, cmp)
	}

	nGenes := data.NumGenes()
	perGene := make([][]Row, nGenes)
	err := parallel.For(ctx, nGenes, opts.Workers, func(g int) error {
		row := data.RowInto(g, nil)
		var xa, xb []float64
		for _, cmp := range active {
			xa = gather(xa[:0], row, cmp.a)
			xb = gather(xb[:0], row, cmp.b)
			r, ok, err := testGene(xa, xb, tester, opts)
			if err != nil {
				return fmt.Errorf("gene %q cluster %d: %w", data.Gene(g), cmp.cluster, err)
			}
			if !ok {
				continue
			}
			r.Gene, r.Cluster = data.Gene(g), cmp.cluster
			r.PAdj = math.Min(1, r.PValue*float64(nGenes))
			perGene[g] = append(perGene[g], r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, rows := range perGene {
		tbl.Rows = append(tbl.Rows, rows...)
	}
	tbl.sortDefault()

	return tbl, nil
}

func gather(dst, row []float64, idx []int) []float64 {
	for _, i := range idx {
		dst = append(dst, row[i])
	}

	return dst
}

func detection(x []float64) float64 {
	var n int
	for _, v := range x {
		if v > 0 {
			n++
		}
	}

	return float64(n) / float64(len(x))
}

// testGene applies the pre-filters and, for survivors, the statistical test.
// The pre-filters use AvgLogFC; the row reports the tester's own LogFC.
func testGene(a, b []float64, tester Tester, opts Options) (Row, bool, error) {
	r := Row{Pct1: detection(a), Pct2: detection(b)}
	if math.Max(r.Pct1, r.Pct2) < opts.MinPct {
		return r, false, nil
	}
	if math.Abs(r.Pct1-r.Pct2) < opts.MinDiffPct {
		return r, false, nil
	}
	r.LogFC = AvgLogFC(a, b)
	if opts.OnlyPositive && !(r.LogFC > 0) {
		return r, false, nil
	}
	if math.Abs(r.LogFC) < opts.MinLogFC {
		return r, false, nil
	}
	st, err := tester.Test(a, b)
	if err != nil {
		return r, false, err
	}
	if math.IsNaN(st.PValue) {
		return r, false, diag.Invalid(stage, "tester %s returned NaN p-value", tester.Name())
	}
	if math.IsNaN(st.LogFC) || math.IsInf(st.LogFC, 0) {
		return r, false, diag.Invalid(stage, "tester %s returned log-fold-change %v", tester.Name(), st.LogFC)
	}
	r.PValue, r.LogFC = st.PValue, st.LogFC
	if opts.OnlyPositive && !(r.LogFC > 0) {
		return r, false, nil
	}

	return r, true, nil
}
