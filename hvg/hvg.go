// Package hvg selects highly variable genes from normalized expression.
//
// For every gene, on the de-logged values expm1(x):
//
//	mean       = ln(mean + 1)
//	dispersion = ln(variance / mean)     ("log-vmr", default)
//	           = variance / mean         ("vmr")
//
// Genes are binned by mean (rank bins by default) and each dispersion is
// z-scored within its bin. A gene is variable when XLow <= mean <= XHigh and
// its z-score exceeds YCutoff. Ties in every ordering are broken by gene
// identifier, so the selection does not depend on the input gene order.
package hvg

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/expr"
	"github.com/katalvlaran/scflow/internal/parallel"
)

const stage = "hvg"

// Dispersion measures.
const (
	LogVMR = "log-vmr"
	VMR    = "vmr"
)

// Binning modes.
const (
	BinRank  = "rank"
	BinWidth = "width"
)

// Options configures Select.
type Options struct {
	NumBins    int
	XLow       float64
	XHigh      float64
	YCutoff    float64
	Dispersion string
	BinMode    string
	// TopN > 0 selects the N highest z-scores inside the mean window instead of
	// applying YCutoff.
	TopN    int
	Workers int
}

// DefaultOptions returns (0.0125, 3, 0.5, 20 bins), log-vmr, rank bins.
func DefaultOptions() Options {
	return Options{
		NumBins:    20,
		XLow:       0.0125,
		XHigh:      3,
		YCutoff:    0.5,
		Dispersion: LogVMR,
		BinMode:    BinRank,
	}
}

// GeneStats is one row of the gene metadata table.
type GeneStats struct {
	Gene       string  `json:"gene"`
	Mean       float64 `json:"mean"`
	Dispersion float64 `json:"dispersion"`
	Scaled     float64 `json:"scaled"`
	Bin        int     `json:"bin"`
	Variable   bool    `json:"variable"`
	finite     bool
}

// Result is the full gene table (input order) plus the selection.
type Result struct {
	Genes []GeneStats `json:"genes"`
	// Selected lists variable gene identifiers in input order.
	Selected []string    `json:"selected"`
	Report   diag.Report `json:"report"`
}

// SelectedIndex returns the input row indices of the selected genes.
func (r *Result) SelectedIndex() []int {
	var out []int
	for i, g := range r.Genes {
		if g.Variable {
			out = append(out, i)
		}
	}

	return out
}

func (o Options) validate() error {
	if o.NumBins < 1 {
		return diag.Invalid(stage, "NumBins %d < 1", o.NumBins)
	}
	for _, v := range []float64{o.XLow, o.XHigh, o.YCutoff} {
		if math.IsNaN(v) {
			return diag.Invalid(stage, "NaN threshold")
		}
	}
	if o.XLow > o.XHigh {
		return diag.Invalid(stage, "XLow %v > XHigh %v", o.XLow, o.XHigh)
	}
	if o.TopN < 0 {
		return diag.Invalid(stage, "TopN %d < 0", o.TopN)
	}
	switch o.Dispersion {
	case LogVMR, VMR, "":
	default:
		return diag.Invalid(stage, "unknown dispersion %q", o.Dispersion)
	}
	switch o.BinMode {
	case BinRank, BinWidth, "":
	default:
		return diag.Invalid(stage, "unknown bin mode %q", o.BinMode)
	}

	return nil
}

// Select computes gene statistics and flags variable genes.
// Zero selected genes is a DegenerateData warning, not an error.
func Select(ctx context.Context, m *expr.Matrix, opts Options) (*Result, error) {
	if m == nil {
		return nil, diag.Invalid(stage, "nil matrix")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	nG := m.NumGenes()
	stats := make([]GeneStats, nG)
	err := parallel.For(ctx, nG, opts.Workers, func(g int) error {
		row := m.RowInto(g, nil)
		for i, v := range row {
			row[i] = math.Expm1(v)
		}
		mu, variance := stat.MeanVariance(row, nil)
		disp := variance / mu
		if opts.Dispersion != VMR {
			disp = math.Log(disp)
		}
		st := GeneStats{Gene: m.Gene(g), Mean: math.Log1p(mu), Dispersion: disp, finite: true}
		if math.IsNaN(disp) || math.IsInf(disp, 0) {
			st.Dispersion, st.finite = 0, false
		}
		stats[g] = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	assignBins(stats, opts)
	scoreBins(stats, opts.NumBins)

	res := &Result{Genes: stats}
	if opts.TopN > 0 {
		selectTop(stats, opts)
	} else {
		for i := range stats {
			s := &stats[i]
			s.Variable = s.Mean >= opts.XLow && s.Mean <= opts.XHigh && s.Scaled > opts.YCutoff
		}
	}
	for _, s := range stats {
		if s.Variable {
			res.Selected = append(res.Selected, s.Gene)
		}
	}
	if len(res.Selected) == 0 {
		res.Report.Degenerate(stage, "no variable genes selected among %d", nG)
	}

	return res, nil
}

// byMean returns gene indices sorted by (mean, gene id).
func byMean(stats []GeneStats) []int {
	order := make([]int, len(stats))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		sa, sb := stats[order[a]], stats[order[b]]
		if sa.Mean != sb.Mean {
			return sa.Mean < sb.Mean
		}
		return sa.Gene < sb.Gene
	})

	return order
}

func assignBins(stats []GeneStats, opts Options) {
	n := len(stats)
	if opts.BinMode == BinWidth {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, s := range stats {
			lo, hi = math.Min(lo, s.Mean), math.Max(hi, s.Mean)
		}
		for i := range stats {
			if hi == lo {
				stats[i].Bin = 0
				continue
			}
			b := int((stats[i].Mean - lo) / (hi - lo) * float64(opts.NumBins))
			stats[i].Bin = min(b, opts.NumBins-1)
		}
		return
	}
	for rank, i := range byMean(stats) {
		stats[i].Bin = rank * opts.NumBins / n
	}
}

// scoreBins z-scores finite dispersions within each bin. Bins with fewer
// than two finite genes, or zero spread, score 0.
func scoreBins(stats []GeneStats, numBins int) {
	members := make([][]int, numBins)
	for i, s := range stats {
		if s.finite {
			members[s.Bin] = append(members[s.Bin], i)
		}
	}
	for _, idx := range members {
		if len(idx) < 2 {
			continue
		}
		// Sort so the float sums do not depend on input order.
		sort.Slice(idx, func(a, b int) bool { return stats[idx[a]].Gene < stats[idx[b]].Gene })
		xs := make([]float64, len(idx))
		for k, i := range idx {
			xs[k] = stats[i].Dispersion
		}
		mu, sd := stat.MeanStdDev(xs, nil)
		if sd == 0 || math.IsNaN(sd) {
			continue
		}
		for _, i := range idx {
			stats[i].Scaled = (stats[i].Dispersion - mu) / sd
		}
	}
}

func selectTop(stats []GeneStats, opts Options) {
	var cand []int
	for i, s := range stats {
		if s.Mean >= opts.XLow && s.Mean <= opts.XHigh {
			cand = append(cand, i)
		}
	}
	sort.Slice(cand, func(a, b int) bool {
		sa, sb := stats[cand[a]], stats[cand[b]]
		if sa.Scaled != sb.Scaled {
			return sa.Scaled > sb.Scaled
		}
		return sa.Gene < sb.Gene
	})
	for k, i := range cand {
		if k >= opts.TopN {
			break
		}
		stats[i].Variable = true
	}
}

// String summarises the selection.
func (r *Result) String() string {
	return fmt.Sprintf("hvg: %d of %d genes variable", len(r.Selected), len(r.Genes))
}
