package neighbors

import (
	"cmp"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/matrix"
)

const stage = "neighbors"

// Sentinel errors; all match diag.ErrInvalidInput.
var (
	// ErrBadK is returned when k < 1 or k > n-1.
	ErrBadK = diag.NewSentinel("neighbors: k out of range")

	// ErrBadDims is returned when Dims exceeds the embedding width.
	ErrBadDims = diag.NewSentinel("neighbors: dims out of range")

	// ErrEmpty is returned for an empty embedding.
	ErrEmpty = diag.NewSentinel("neighbors: no cells")

	// ErrDuplicateID is returned when a cell identifier repeats.
	ErrDuplicateID = diag.NewSentinel("neighbors: duplicate cell identifier")
)

// Hit is one neighbor of a query point.
type Hit struct {
	Index    int
	Distance float64
}

// Index answers exact nearest-neighbor queries over a fixed point set.
type Index interface {
	// Len returns the number of indexed points.
	Len() int
	// ID returns the identifier of point i.
	ID(i int) string
	// Query returns the k nearest points to point i, excluding i itself,
	// ordered by distance then identifier.
	Query(i, k int) ([]Hit, error)
}

// BruteForce is an exact O(n) per query index.
type BruteForce struct {
	ids    []string
	points [][]float64
}

// NewBruteForce indexes the leading dims columns of points (cells × d).
// dims == 0 uses every column. Points are copied.
func NewBruteForce(ids []string, points *matrix.Dense, dims int) (*BruteForce, error) {
	if err := matrix.ValidateNotNil(points); err != nil {
		return nil, diag.Invalid(stage, "%v", err)
	}
	n, d := points.Shape()
	if n == 0 || len(ids) == 0 {
		return nil, ErrEmpty
	}
	if len(ids) != n {
		return nil, diag.Invalid(stage, "%d ids for %d points", len(ids), n)
	}
	if dims < 0 || dims > d {
		return nil, fmt.Errorf("dims %d of %d: %w", dims, d, ErrBadDims)
	}
	if dims == 0 {
		dims = d
	}
	if err := matrix.ValidateFinite(points); err != nil {
		return nil, diag.Invalid(stage, "%v", err)
	}
	seen := make(map[string]struct{}, n)
	bf := &BruteForce{ids: append([]string(nil), ids...), points: make([][]float64, n)}
	for i, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%q: %w", id, ErrDuplicateID)
		}
		seen[id] = struct{}{}
		bf.points[i] = append([]float64(nil), points.Row(i)[:dims]...)
	}

	return bf, nil
}

// Len returns the number of indexed points.
func (b *BruteForce) Len() int { return len(b.ids) }

// ID returns the identifier of point i.
func (b *BruteForce) ID(i int) string { return b.ids[i] }

// Query returns the k nearest neighbors of point i.
func (b *BruteForce) Query(i, k int) ([]Hit, error) {
	n := len(b.ids)
	if i < 0 || i >= n {
		return nil, diag.Invalid(stage, "query %d of %d", i, n)
	}
	if k < 1 || k > n-1 {
		return nil, fmt.Errorf("k=%d with %d cells: %w", k, n, ErrBadK)
	}
	hits := make([]Hit, 0, n-1)
	for j := 0; j < n; j++ {
		if j != i {
			hits = append(hits, Hit{Index: j, Distance: floats.Distance(b.points[i], b.points[j], 2)})
		}
	}
	slices.SortFunc(hits, func(x, y Hit) int {
		if c := cmp.Compare(x.Distance, y.Distance); c != 0 {
			return c
		}
		return cmp.Compare(b.ids[x.Index], b.ids[y.Index])
	})

	return hits[:k:k], nil
}
