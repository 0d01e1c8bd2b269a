// Package annotate replaces numeric cluster labels with human-readable names.
//
// Naming is a pure substitution: the underlying cluster.Assignment is never
// modified, and labels without a name render as their decimal value.
package annotate

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/katalvlaran/scflow/cluster"
	"github.com/katalvlaran/scflow/diag"
)

// Sentinel errors; all match diag.ErrInvalidInput.
var (
	// ErrDuplicateName is returned when two labels share one name.
	ErrDuplicateName = diag.NewSentinel("annotate: duplicate cluster name")

	// ErrUnknownLabel is returned when a name targets a label that does not exist.
	ErrUnknownLabel = diag.NewSentinel("annotate: unknown cluster label")

	// ErrEmptyName is returned for a blank name.
	ErrEmptyName = diag.NewSentinel("annotate: empty cluster name")
)

// Names maps cluster labels to display names.
type Names map[int]string

// Name returns the display name of a label.
func (n Names) Name(label int) string {
	if s, ok := n[label]; ok {
		return s
	}

	return strconv.Itoa(label)
}

// Validate checks names against the number of clusters.
// Names must be non-empty, unique, and must not collide with the decimal
// rendering of another unnamed label.
func (n Names) Validate(numClusters int) error {
	seen := make(map[string]int, numClusters)
	for l := 0; l < numClusters; l++ {
		name := n.Name(l)
		if name == "" {
			return fmt.Errorf("label %d: %w", l, ErrEmptyName)
		}
		if prev, dup := seen[name]; dup {
			return fmt.Errorf("%q on labels %d and %d: %w", name, prev, l, ErrDuplicateName)
		}
		seen[name] = l
	}
	for _, l := range slices.Sorted(maps.Keys(n)) {
		if l < 0 || l >= numClusters {
			return fmt.Errorf("label %d of %d: %w", l, numClusters, ErrUnknownLabel)
		}
	}

	return nil
}

// Apply validates names and returns the cell → name mapping.
func Apply(a *cluster.Assignment, names Names) (map[string]string, error) {
	if a == nil {
		return nil, diag.Invalid("annotate", "nil assignment")
	}
	if err := names.Validate(a.NumClusters()); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(a.Cells))
	for i, c := range a.Cells {
		out[c] = names.Name(a.Labels[i])
	}

	return out, nil
}

// Levels returns the display names in label order.
func (n Names) Levels(numClusters int) []string {
	out := make([]string, numClusters)
	for l := range out {
		out[l] = n.Name(l)
	}

	return out
}
