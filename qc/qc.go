// Package qc computes per-cell quality metrics and filters cells and genes.
//
// Metrics per cell:
//
//	n_genes       genes with a count > 0
//	n_counts      total count
//	<fraction>    counts on genes whose name starts with a prefix
//	              (case-insensitive) divided by n_counts; default
//	              "percent_mito" over prefix "MT-"
//
// A cell is kept when every thresholded metric lies inside its inclusive
// bounds; ±Inf means unbounded. Genes are then kept when expressed in at
// least MinCells of the retained cells. The input matrix is never modified.
package qc

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/expr"
	"github.com/katalvlaran/scflow/internal/parallel"
	"github.com/katalvlaran/scflow/meta"
)

// Metric names.
const (
	MetricNGenes      = "n_genes"
	MetricNCounts     = "n_counts"
	MetricPercentMito = "percent_mito"
)

const stage = "qc"

// Sentinel errors; all match diag.ErrInvalidInput.
var (
	// ErrUnknownMetric is returned when a threshold names no metric or numeric column.
	ErrUnknownMetric = diag.NewSentinel("qc: unknown metric")

	// ErrBadBounds is returned for NaN bounds or Low > High.
	ErrBadBounds = diag.NewSentinel("qc: invalid bounds")

	// ErrNothingLeft is returned when filtering removes every cell or every gene.
	ErrNothingLeft = diag.NewSentinel("qc: empty result after filtering")

	// ErrMetaMismatch is returned when the input metadata rows differ from the matrix cells.
	ErrMetaMismatch = diag.NewSentinel("qc: metadata does not match matrix cells")
)

// Bounds is an inclusive [Low, High] interval.
type Bounds struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// Unbounded returns (-Inf, +Inf).
func Unbounded() Bounds { return Bounds{Low: math.Inf(-1), High: math.Inf(1)} }

// Contains reports Low <= v <= High.
func (b Bounds) Contains(v float64) bool { return v >= b.Low && v <= b.High }

// Options configures Run.
type Options struct {
	// Thresholds maps a metric or numeric metadata column to its bounds.
	Thresholds map[string]Bounds
	// Fractions maps a metric name to a gene-name prefix.
	Fractions map[string]string
	// MinCells is the minimum number of retained cells a gene must be expressed in.
	MinCells int
	// Workers bounds the per-cell parallelism (<=0 means GOMAXPROCS).
	Workers int
}

// DefaultOptions returns no thresholds, the mitochondrial fraction metric and MinCells 3.
func DefaultOptions() Options {
	return Options{
		Thresholds: map[string]Bounds{},
		Fractions:  map[string]string{MetricPercentMito: "MT-"},
		MinCells:   3,
	}
}

// Result is the filtered matrix plus the metrics of the retained cells.
type Result struct {
	Matrix       *expr.Matrix
	Metrics      *meta.Table
	DroppedCells []string
	DroppedGenes []string
	Report       diag.Report
}

// Metrics computes the metric table for every cell of m. When input is
// non-nil its columns are carried over and must not collide with metric names.
func Metrics(ctx context.Context, m *expr.Matrix, input *meta.Table, opts Options) (*meta.Table, error) {
	if m == nil {
		return nil, diag.Invalid(stage, "nil matrix")
	}
	nCells := m.NumCells()
	nGenes := make([]float64, nCells)
	nCounts := make([]float64, nCells)

	fracNames := make([]string, 0, len(opts.Fractions))
	for name := range opts.Fractions {
		fracNames = append(fracNames, name)
	}
	sort.Strings(fracNames)
	fracGenes := make([]map[int]bool, len(fracNames))
	fracVals := make([][]float64, len(fracNames))
	for f, name := range fracNames {
		prefix := strings.ToLower(opts.Fractions[name])
		if prefix == "" {
			return nil, diag.Invalid(stage, "empty prefix for %q", name)
		}
		fracGenes[f] = map[int]bool{}
		for g, id := range m.Genes() {
			if strings.HasPrefix(strings.ToLower(id), prefix) {
				fracGenes[f][g] = true
			}
		}
		fracVals[f] = make([]float64, nCells)
	}

	err := parallel.For(ctx, nCells, opts.Workers, func(c int) error {
		genes, vals := m.Column(c)
		var total float64
		for _, v := range vals {
			total += v
		}
		nGenes[c] = float64(len(vals))
		nCounts[c] = total
		for f := range fracNames {
			if total == 0 || len(fracGenes[f]) == 0 {
				continue
			}
			var s float64
			for k, g := range genes {
				if fracGenes[f][g] {
					s += vals[k]
				}
			}
			fracVals[f][c] = s / total
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tbl := input
	if tbl == nil {
		if tbl, err = meta.NewTable(m.Cells()); err != nil {
			return nil, err
		}
	} else {
		if tbl, err = alignMeta(m, input); err != nil {
			return nil, err
		}
	}
	if tbl, err = tbl.WithNumeric(MetricNGenes, nGenes); err != nil {
		return nil, err
	}
	if tbl, err = tbl.WithNumeric(MetricNCounts, nCounts); err != nil {
		return nil, err
	}
	for f, name := range fracNames {
		if tbl, err = tbl.WithNumeric(name, fracVals[f]); err != nil {
			return nil, err
		}
	}

	return tbl, nil
}

// alignMeta reorders input rows to the matrix cell order.
func alignMeta(m *expr.Matrix, input *meta.Table) (*meta.Table, error) {
	if input.Len() != m.NumCells() {
		return nil, fmt.Errorf("%d metadata rows for %d cells: %w", input.Len(), m.NumCells(), ErrMetaMismatch)
	}
	out, err := input.Subset(m.Cells())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetaMismatch, err)
	}

	return out, nil
}

// Run computes metrics, filters cells by the thresholds and then genes by MinCells.
//
// Errors: ErrUnknownMetric, ErrBadBounds, ErrMetaMismatch, ErrNothingLeft.
func Run(ctx context.Context, m *expr.Matrix, input *meta.Table, opts Options) (*Result, error) {
	if opts.MinCells < 0 {
		return nil, diag.Invalid(stage, "MinCells %d < 0", opts.MinCells)
	}
	metrics, err := Metrics(ctx, m, input, opts)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(opts.Thresholds))
	for name, b := range opts.Thresholds {
		if math.IsNaN(b.Low) || math.IsNaN(b.High) || b.Low > b.High {
			return nil, fmt.Errorf("%q [%v, %v]: %w", name, b.Low, b.High, ErrBadBounds)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	cols := make([][]float64, len(names))
	for i, name := range names {
		if cols[i], err = metrics.Numeric(name); err != nil {
			return nil, fmt.Errorf("%q: %w", name, ErrUnknownMetric)
		}
	}

	ids := m.Cells()
	var keepCells []int
	var dropped []string
	for c := range ids {
		ok := true
		for i, name := range names {
			if !opts.Thresholds[name].Contains(cols[i][c]) {
				ok = false
				break
			}
		}
		if ok {
			keepCells = append(keepCells, c)
		} else {
			dropped = append(dropped, ids[c])
		}
	}
	if len(keepCells) == 0 {
		return nil, fmt.Errorf("no cell passes the thresholds: %w", ErrNothingLeft)
	}

	expressed := make([]int, m.NumGenes())
	for _, c := range keepCells {
		genes, _ := m.Column(c)
		for _, g := range genes {
			expressed[g]++
		}
	}
	var keepGenes []int
	var droppedGenes []string
	for g, n := range expressed {
		if n >= opts.MinCells {
			keepGenes = append(keepGenes, g)
		} else {
			droppedGenes = append(droppedGenes, m.Gene(g))
		}
	}
	if len(keepGenes) == 0 {
		return nil, fmt.Errorf("no gene expressed in %d retained cells: %w", opts.MinCells, ErrNothingLeft)
	}

	filtered, err := m.Subset(keepGenes, keepCells)
	if err != nil {
		return nil, err
	}
	kept, err := metrics.Subset(filtered.Cells())
	if err != nil {
		return nil, err
	}

	return &Result{
		Matrix:       filtered,
		Metrics:      kept,
		DroppedCells: dropped,
		DroppedGenes: droppedGenes,
	}, nil
}
