// Package scale regresses nuisance covariates out of expression and then
// centers and scales every gene to zero mean and unit variance across cells.
//
// Regression fits y ~ 1 + covariates by ordinary least squares for each gene.
// The projection (XᵀX)⁻¹Xᵀ depends only on the covariates, so it is computed
// once with gonum and shared read-only by all per-gene workers. Numeric
// covariates enter as-is; categorical covariates are expanded into indicator
// columns with the first level (sorted) as reference.
//
// A Result is itself a Source, so the stage can be re-run on its own output
// with a different covariate set without repeating QC or normalization.
package scale

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/internal/parallel"
	"github.com/katalvlaran/scflow/matrix"
	"github.com/katalvlaran/scflow/meta"
)

const stage = "scale"

// TypicalClipMax is the customary bound for scaled values. Clipping is off
// unless requested; clipped output is not a fixed point of Run.
const TypicalClipMax = 10

// Sentinel errors; all match diag.ErrInvalidInput.
var (
	// ErrMissingCovariate is returned when a covariate is absent from the metadata.
	ErrMissingCovariate = diag.NewSentinel("scale: covariate not found in cell metadata")

	// ErrDegenerateDesign is returned for constant or collinear covariates.
	ErrDegenerateDesign = diag.NewSentinel("scale: covariates are constant or collinear")

	// ErrUnknownGene is returned when a requested gene is not in the source.
	ErrUnknownGene = diag.NewSentinel("scale: unknown gene")
)

// Source provides dense gene rows over a fixed cell axis.
// *expr.Matrix and *Result both satisfy it.
type Source interface {
	Genes() []string
	Cells() []string
	RowInto(g int, dst []float64) []float64
}

// Options configures Run.
type Options struct {
	// Genes restricts the output to these genes, in this order; nil keeps all.
	Genes []string
	// Covariates are metadata column names regressed out in order.
	Covariates []string
	// ClipMax clamps scaled values to ±ClipMax; 0 disables clipping.
	ClipMax float64
	Workers int
}

// DefaultOptions returns no gene subset, no covariates and no clipping.
func DefaultOptions() Options {
	return Options{}
}

// Result is the scaled genes × cells matrix plus per-gene statistics.
type Result struct {
	Data       *matrix.Dense `json:"-"`
	GeneIDs    []string      `json:"genes"`
	CellIDs    []string      `json:"cells"`
	Means      []float64     `json:"means"`
	SDs        []float64     `json:"sds"`
	Covariates []string      `json:"covariates"`
	Report     diag.Report   `json:"report"`
}

// Genes returns a copy of the gene identifiers.
func (r *Result) Genes() []string { return append([]string(nil), r.GeneIDs...) }

// Cells returns a copy of the cell identifiers.
func (r *Result) Cells() []string { return append([]string(nil), r.CellIDs...) }

// RowInto copies the scaled row of gene g into dst.
func (r *Result) RowInto(g int, dst []float64) []float64 { return r.Data.RowInto(g, dst) }

// Run regresses, centers and scales the rows of src.
//
// Errors: ErrUnknownGene, ErrMissingCovariate, ErrDegenerateDesign, or an
// invalid-input error for a nil source, missing metadata or negative ClipMax.
func Run(ctx context.Context, src Source, md *meta.Table, opts Options) (*Result, error) {
	if src == nil {
		return nil, diag.Invalid(stage, "nil source")
	}
	if opts.ClipMax < 0 || math.IsNaN(opts.ClipMax) {
		return nil, diag.Invalid(stage, "ClipMax %v", opts.ClipMax)
	}
	allGenes := src.Genes()
	cells := src.Cells()
	rows, genes, err := pickGenes(allGenes, opts.Genes)
	if err != nil {
		return nil, err
	}

	var proj, design *mat.Dense
	if len(opts.Covariates) > 0 {
		if md == nil {
			return nil, fmt.Errorf("no metadata for covariates %v: %w", opts.Covariates, ErrMissingCovariate)
		}
		if design, err = designMatrix(md, cells, opts.Covariates); err != nil {
			return nil, err
		}
		if proj, err = projection(design); err != nil {
			return nil, err
		}
	}

	nC := len(cells)
	out, err := matrix.NewDense(len(genes), nC)
	if err != nil {
		return nil, diag.Invalid(stage, "%v", err)
	}
	means := make([]float64, len(genes))
	sds := make([]float64, len(genes))
	data := out.Data()
	err = parallel.For(ctx, len(genes), opts.Workers, func(k int) error {
		y := src.RowInto(rows[k], nil)
		if proj != nil {
			residualize(y, design, proj)
		}
		mu, sd := stat.MeanStdDev(y, nil)
		means[k], sds[k] = mu, sd
		dst := data[k*nC : (k+1)*nC]
		if sd == 0 || math.IsNaN(sd) {
			sds[k] = 0
			return nil
		}
		for c, v := range y {
			z := (v - mu) / sd
			if opts.ClipMax > 0 {
				z = math.Max(-opts.ClipMax, math.Min(opts.ClipMax, z))
			}
			dst[c] = z
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err = matrix.ValidateFinite(out); err != nil {
		return nil, err
	}

	res := &Result{
		Data:       out,
		GeneIDs:    genes,
		CellIDs:    cells,
		Means:      means,
		SDs:        sds,
		Covariates: append([]string(nil), opts.Covariates...),
	}
	var flat []string
	for k, sd := range sds {
		if sd == 0 {
			flat = append(flat, genes[k])
		}
	}
	if len(flat) > 0 {
		res.Report.Degenerate(stage, "%d genes with zero variance set to 0 (first: %s)", len(flat), flat[0])
	}

	return res, nil
}

func pickGenes(all, want []string) ([]int, []string, error) {
	if want == nil {
		rows := make([]int, len(all))
		for i := range rows {
			rows[i] = i
		}
		return rows, append([]string(nil), all...), nil
	}
	if len(want) == 0 {
		return nil, nil, diag.Invalid(stage, "empty gene subset")
	}
	idx := make(map[string]int, len(all))
	for i, g := range all {
		idx[g] = i
	}
	rows := make([]int, len(want))
	seen := make(map[string]bool, len(want))
	for k, g := range want {
		i, ok := idx[g]
		if !ok {
			return nil, nil, fmt.Errorf("%q: %w", g, ErrUnknownGene)
		}
		if seen[g] {
			return nil, nil, diag.Invalid(stage, "gene %q requested twice", g)
		}
		seen[g] = true
		rows[k] = i
	}

	return rows, append([]string(nil), want...), nil
}

// designMatrix builds the n×(1+p) matrix [1, covariates...] aligned to cells.
func designMatrix(md *meta.Table, cells []string, covariates []string) (*mat.Dense, error) {
	aligned, err := md.Subset(cells)
	if err != nil {
		return nil, fmt.Errorf("metadata rows do not cover the cells: %w", err)
	}
	n := len(cells)
	cols := [][]float64{constant(n, 1)}
	for _, name := range covariates {
		switch {
		case hasNumeric(aligned, name):
			v, _ := aligned.Numeric(name)
			if _, sd := stat.MeanStdDev(v, nil); sd == 0 {
				return nil, fmt.Errorf("%q is constant: %w", name, ErrDegenerateDesign)
			}
			cols = append(cols, v)
		case hasCategorical(aligned, name):
			levels, _ := aligned.Levels(name)
			if len(levels) < 2 {
				return nil, fmt.Errorf("%q has a single level: %w", name, ErrDegenerateDesign)
			}
			v, _ := aligned.Categorical(name)
			for _, lvl := range levels[1:] {
				ind := make([]float64, n)
				for i, s := range v {
					if s == lvl {
						ind[i] = 1
					}
				}
				cols = append(cols, ind)
			}
		default:
			return nil, fmt.Errorf("%q: %w", name, ErrMissingCovariate)
		}
	}
	if len(cols) > n {
		return nil, fmt.Errorf("%d design columns for %d cells: %w", len(cols), n, ErrDegenerateDesign)
	}
	x := mat.NewDense(n, len(cols), nil)
	for j, col := range cols {
		x.SetCol(j, col)
	}

	return x, nil
}

func hasNumeric(t *meta.Table, name string) bool {
	_, err := t.Numeric(name)
	return err == nil
}

func hasCategorical(t *meta.Table, name string) bool {
	_, err := t.Categorical(name)
	return err == nil
}

// projection returns (XᵀX)⁻¹Xᵀ.
func projection(x *mat.Dense) (*mat.Dense, error) {
	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrDegenerateDesign)
	}
	var h mat.Dense
	h.Mul(&inv, x.T())

	return &h, nil
}

// residualize replaces y with y − X·(H·y) in place.
func residualize(y []float64, x, h *mat.Dense) {
	yv := mat.NewVecDense(len(y), y)
	var beta, fit mat.VecDense
	beta.MulVec(h, yv)
	fit.MulVec(x, &beta)
	for i := range y {
		y[i] -= fit.AtVec(i)
	}
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}

	return out
}
