// Package normalize performs per-cell library-size normalization.
//
// Methods:
//
//	"log-scale"        ln(1 + x / total * ScaleFactor)   (default)
//	"relative-counts"  x / total * ScaleFactor
//
// Each cell is normalized independently of every other cell; cells are
// processed in parallel. A cell with a zero total cannot be normalized and is
// rejected with ErrEmptyCell instead of producing NaN.
package normalize

import (
	"context"
	"fmt"
	"math"

	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/expr"
)

// Method names.
const (
	LogScale       = "log-scale"
	RelativeCounts = "relative-counts"
)

// DefaultScaleFactor is the target library size.
const DefaultScaleFactor = 1e4

// Sentinel errors; all match diag.ErrInvalidInput.
var (
	// ErrEmptyCell is returned for a cell whose total count is zero.
	ErrEmptyCell = diag.NewSentinel("normalize: cell has zero total count")

	// ErrUnknownMethod is returned for an unrecognised method name.
	ErrUnknownMethod = diag.NewSentinel("normalize: unknown method")

	// ErrScaleFactor is returned for a non-finite or non-positive scale factor.
	ErrScaleFactor = diag.NewSentinel("normalize: scale factor must be finite and > 0")
)

// Options configures Run.
type Options struct {
	Method      string
	ScaleFactor float64
	Workers     int
}

// DefaultOptions returns log-scale with factor 1e4.
func DefaultOptions() Options {
	return Options{Method: LogScale, ScaleFactor: DefaultScaleFactor}
}

// Run returns a new matrix with every cell normalized. The input is untouched.
//
// Errors: ErrUnknownMethod, ErrScaleFactor, ErrEmptyCell.
// Complexity: O(nnz).
func Run(ctx context.Context, m *expr.Matrix, opts Options) (*expr.Matrix, error) {
	if m == nil {
		return nil, diag.Invalid("normalize", "nil matrix")
	}
	sf := opts.ScaleFactor
	if math.IsNaN(sf) || math.IsInf(sf, 0) || sf <= 0 {
		return nil, fmt.Errorf("%v: %w", sf, ErrScaleFactor)
	}
	var transform func(float64) float64
	switch opts.Method {
	case LogScale, "":
		transform = math.Log1p
	case RelativeCounts:
		transform = func(x float64) float64 { return x }
	default:
		return nil, fmt.Errorf("%q: %w", opts.Method, ErrUnknownMethod)
	}

	return m.MapColumns(ctx, opts.Workers, func(c int, _ []int, vals, out []float64) error {
		var total float64
		for _, v := range vals {
			total += v
		}
		if total == 0 {
			return fmt.Errorf("cell %q: %w", m.Cell(c), ErrEmptyCell)
		}
		scale := sf / total
		for k, v := range vals {
			out[k] = transform(v * scale)
		}
		return nil
	})
}
