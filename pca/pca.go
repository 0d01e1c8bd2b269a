package pca

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/internal/rng"
	"github.com/katalvlaran/scflow/matrix"
	"github.com/katalvlaran/scflow/scale"
)

const stage = "pca"

// Solver names.
const (
	Randomized = "randomized"
	ExactSVD   = "svd"
	Jacobi     = "jacobi"
)

// Sentinel errors.
var (
	// ErrUnknownSolver is returned for an unrecognised solver name.
	ErrUnknownSolver = diag.NewSentinel("pca: unknown solver")

	// ErrComponent is returned when a component index is out of range.
	ErrComponent = diag.NewSentinel("pca: component out of range")

	// ErrFactorize is returned when gonum reports an SVD failure.
	ErrFactorize = errors.New("pca: SVD factorization failed")
)

// Options configures Run.
type Options struct {
	Components    int
	Solver        string
	MaxIterations int
	Tolerance     float64
	// Oversample adds sketch columns beyond Components for the randomized solver.
	Oversample int
	Seed       int64
}

// DefaultOptions returns 40 components, the randomized solver, 500 iterations and tolerance 1e-7.
func DefaultOptions() Options {
	return Options{
		Components:    40,
		Solver:        Randomized,
		MaxIterations: 500,
		Tolerance:     1e-7,
		Oversample:    10,
		Seed:          42,
	}
}

// Embedding is the low-rank representation of the cells.
type Embedding struct {
	Cells         []string      `json:"cells"`
	Genes         []string      `json:"genes"`
	Scores        *matrix.Dense `json:"-"`
	Loadings      *matrix.Dense `json:"-"`
	StdDev        []float64     `json:"stddev"`
	VarianceRatio []float64     `json:"variance_ratio"`
	Center        []float64     `json:"center"`
	Solver        string        `json:"solver"`
	Converged     bool          `json:"converged"`
	Iterations    int           `json:"iterations"`
	Report        diag.Report   `json:"report"`
}

// K returns the number of components.
func (e *Embedding) K() int { return e.Scores.Cols() }

func (o Options) validate() error {
	if o.Components < 1 {
		return diag.Invalid(stage, "Components %d < 1", o.Components)
	}
	if o.MaxIterations < 1 {
		return diag.Invalid(stage, "MaxIterations %d < 1", o.MaxIterations)
	}
	if !(o.Tolerance > 0) || math.IsInf(o.Tolerance, 0) {
		return diag.Invalid(stage, "Tolerance %v", o.Tolerance)
	}
	if o.Oversample < 0 {
		return diag.Invalid(stage, "Oversample %d < 0", o.Oversample)
	}
	switch o.Solver {
	case Randomized, ExactSVD, Jacobi, "":
		return nil
	default:
		return fmt.Errorf("%q: %w", o.Solver, ErrUnknownSolver)
	}
}

// factors is the raw top-k decomposition of the centered data.
type factors struct {
	u     *mat.Dense // n×k
	sigma []float64  // k
	v     *mat.Dense // p×k
}

// Run computes the embedding of a scaled matrix.
func Run(data *scale.Result, opts Options) (*Embedding, error) {
	if data == nil || data.Data == nil {
		return nil, diag.Invalid(stage, "nil scaled data")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	p, n := data.Data.Shape()
	if n < 2 {
		return nil, diag.Invalid(stage, "need at least 2 cells, got %d", n)
	}
	x, center := centered(data.Data)

	emb := &Embedding{
		Cells:  append([]string(nil), data.CellIDs...),
		Genes:  append([]string(nil), data.GeneIDs...),
		Center: center,
		Solver: opts.Solver,
	}
	if emb.Solver == "" {
		emb.Solver = Randomized
	}
	k := opts.Components
	if lim := min(n, p); k > lim {
		emb.Report.Degenerate(stage, "requested %d components, capped at %d", k, lim)
		k = lim
	}

	var (
		f   *factors
		err error
	)
	switch emb.Solver {
	case ExactSVD:
		f, err = exact(x, k)
		emb.Converged = true
	case Jacobi:
		f, err = jacobi(x, k, opts, &emb.Report)
		emb.Converged = err == nil && emb.Report.Status() != diag.StatusNotConverged
	default:
		if k+opts.Oversample >= min(n, p) {
			f, err = exact(x, k)
			emb.Converged = true
		} else {
			f, emb.Iterations, emb.Converged, err = randomized(x, k, opts)
			if !emb.Converged {
				emb.Report.NotConverged(stage, "randomized PCA did not converge in %d iterations", opts.MaxIterations)
			}
		}
	}
	if err != nil {
		return nil, err
	}

	normalizeSigns(f)
	if err = emb.fill(f, x, n); err != nil {
		return nil, err
	}

	return emb, nil
}

// centered returns the cells × genes matrix with every gene centered, and the gene means.
func centered(d *matrix.Dense) (*mat.Dense, []float64) {
	p, n := d.Shape()
	x := mat.NewDense(n, p, nil)
	center := make([]float64, p)
	for g := 0; g < p; g++ {
		row := d.Row(g)
		var mu float64
		for _, v := range row {
			mu += v
		}
		mu /= float64(n)
		center[g] = mu
		for c, v := range row {
			x.Set(c, g, v-mu)
		}
	}

	return x, center
}

func exact(x *mat.Dense, k int) (*factors, error) {
	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, ErrFactorize
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	vals := svd.Values(nil)
	n, _ := u.Dims()
	p, _ := v.Dims()

	return &factors{
		u:     mat.DenseCopyOf(u.Slice(0, n, 0, k)),
		sigma: append([]float64(nil), vals[:k]...),
		v:     mat.DenseCopyOf(v.Slice(0, p, 0, k)),
	}, nil
}

// orthonormalize returns an orthonormal basis of the columns of y.
func orthonormalize(y *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(y, mat.SVDThinU); !ok {
		return nil, ErrFactorize
	}
	var q mat.Dense
	svd.UTo(&q)

	return &q, nil
}

func randomized(x *mat.Dense, k int, opts Options) (*factors, int, bool, error) {
	n, p := x.Dims()
	l := k + opts.Oversample
	r := rng.FromSeed(opts.Seed)
	omega := mat.NewDense(p, l, nil)
	for i := 0; i < p; i++ {
		for j := 0; j < l; j++ {
			omega.Set(i, j, r.NormFloat64())
		}
	}
	var y mat.Dense
	y.Mul(x, omega)
	q, err := orthonormalize(&y)
	if err != nil {
		return nil, 0, false, err
	}

	var (
		prev      []float64
		converged bool
		iter      int
		b         mat.Dense
		svd       mat.SVD
	)
	for iter = 1; iter <= opts.MaxIterations; iter++ {
		var z mat.Dense
		z.Mul(x.T(), q)
		qz, err := orthonormalize(&z)
		if err != nil {
			return nil, iter, false, err
		}
		var yy mat.Dense
		yy.Mul(x, qz)
		if q, err = orthonormalize(&yy); err != nil {
			return nil, iter, false, err
		}
		b.Reset()
		b.Mul(q.T(), x)
		if ok := svd.Factorize(&b, mat.SVDNone); !ok {
			return nil, iter, false, ErrFactorize
		}
		vals := svd.Values(nil)[:k]
		if prev != nil && maxRelChange(prev, vals) < opts.Tolerance {
			converged = true
			break
		}
		prev = append(prev[:0], vals...)
	}
	if iter > opts.MaxIterations {
		iter = opts.MaxIterations
	}

	b.Reset()
	b.Mul(q.T(), x)
	if ok := svd.Factorize(&b, mat.SVDThin); !ok {
		return nil, iter, false, ErrFactorize
	}
	var ub, v mat.Dense
	svd.UTo(&ub)
	svd.VTo(&v)
	var u mat.Dense
	u.Mul(q, &ub)
	vals := svd.Values(nil)

	return &factors{
		u:     mat.DenseCopyOf(u.Slice(0, n, 0, k)),
		sigma: append([]float64(nil), vals[:k]...),
		v:     mat.DenseCopyOf(v.Slice(0, p, 0, k)),
	}, iter, converged, nil
}

func maxRelChange(prev, cur []float64) float64 {
	var worst float64
	for i := range cur {
		d := math.Abs(cur[i] - prev[i])
		if cur[i] > 0 {
			d /= cur[i]
		}
		worst = math.Max(worst, d)
	}

	return worst
}

// jacobi diagonalizes the gene covariance with the dense Jacobi kernel.
// Non-convergence falls back to the exact SVD and is reported.
func jacobi(x *mat.Dense, k int, opts Options, rep *diag.Report) (*factors, error) {
	n, p := x.Dims()
	xd, err := matrix.NewDenseFrom(n, p, x.RawMatrix().Data)
	if err != nil {
		return nil, diag.Invalid(stage, "%v", err)
	}
	cov, _, err := matrix.Covariance(xd)
	if err != nil {
		return nil, diag.Invalid(stage, "%v", err)
	}
	var scaleMax float64
	for _, v := range cov.Data() {
		scaleMax = math.Max(scaleMax, math.Abs(v))
	}
	tol := 1e-12 * scaleMax
	vals, vecs, err := matrix.Eigen(cov, tol, opts.MaxIterations*p*p)
	if errors.Is(err, matrix.ErrMatrixEigenFailed) {
		rep.NotConverged(stage, "Jacobi eigen solver did not converge; used exact SVD")
		return exact(x, k)
	}
	if err != nil {
		return nil, err
	}

	v := mat.NewDense(p, k, nil)
	sigma := make([]float64, k)
	for j := 0; j < k; j++ {
		sigma[j] = math.Sqrt(math.Max(vals[j], 0) * float64(n-1))
		for i := 0; i < p; i++ {
			v.Set(i, j, vecs.Row(i)[j])
		}
	}
	var xv mat.Dense
	xv.Mul(x, v)
	u := mat.NewDense(n, k, nil)
	for j := 0; j < k; j++ {
		for i := 0; i < n; i++ {
			if sigma[j] > 0 {
				u.Set(i, j, xv.At(i, j)/sigma[j])
			}
		}
	}

	return &factors{u: u, sigma: sigma, v: v}, nil
}

// normalizeSigns flips each component so its largest-|loading| gene is positive.
func normalizeSigns(f *factors) {
	p, k := f.v.Dims()
	n, _ := f.u.Dims()
	for j := 0; j < k; j++ {
		best, arg := -1.0, 0
		for i := 0; i < p; i++ {
			if a := math.Abs(f.v.At(i, j)); a > best {
				best, arg = a, i
			}
		}
		if f.v.At(arg, j) >= 0 {
			continue
		}
		for i := 0; i < p; i++ {
			f.v.Set(i, j, -f.v.At(i, j))
		}
		for i := 0; i < n; i++ {
			f.u.Set(i, j, -f.u.At(i, j))
		}
	}
}

func (e *Embedding) fill(f *factors, x *mat.Dense, n int) error {
	p, k := f.v.Dims()
	var total float64
	for _, v := range x.RawMatrix().Data {
		total += v * v
	}
	scores, err := matrix.NewDense(n, k)
	if err != nil {
		return diag.Invalid(stage, "%v", err)
	}
	loadings, err := matrix.NewDense(p, k)
	if err != nil {
		return diag.Invalid(stage, "%v", err)
	}
	sd := scores.Data()
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			sd[i*k+j] = f.u.At(i, j) * f.sigma[j]
		}
	}
	ld := loadings.Data()
	for i := 0; i < p; i++ {
		for j := 0; j < k; j++ {
			ld[i*k+j] = f.v.At(i, j)
		}
	}
	e.StdDev = make([]float64, k)
	e.VarianceRatio = make([]float64, k)
	for j, s := range f.sigma {
		e.StdDev[j] = s / math.Sqrt(float64(n-1))
		if total > 0 {
			e.VarianceRatio[j] = s * s / total
		}
	}
	if err = matrix.ValidateFinite(scores); err != nil {
		return err
	}
	if err = matrix.ValidateFinite(loadings); err != nil {
		return err
	}
	e.Scores, e.Loadings = scores, loadings

	return nil
}
