package pipeline

import (
	"fmt"

	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/matrix"
	"github.com/katalvlaran/scflow/meta"
)

// Channel is one per-cell vector a plotting tool can map to color.
// Exactly one of Numeric and Categorical is set.
type Channel struct {
	Name        string
	Cells       []string
	Numeric     []float64
	Categorical []string
}

// Coordinates returns the first dims principal component scores per cell,
// in the cell order of the embedding.
func (r *Result) Coordinates(dims int) (*matrix.Dense, error) {
	if r.Embedding == nil {
		return nil, diag.Invalid("pipeline", "result has no embedding")
	}

	return r.Embedding.Coordinates(dims)
}

// ColorChannel resolves name against the cell metadata first and the
// normalized expression of a gene second.
func (r *Result) ColorChannel(name string) (Channel, error) {
	ch := Channel{Name: name}
	if r.Meta != nil {
		for _, col := range r.Meta.Columns() {
			if col.Name != name {
				continue
			}
			ch.Cells = r.Meta.IDs()
			var err error
			if col.Kind == meta.Numeric {
				ch.Numeric, err = r.Meta.Numeric(name)
			} else {
				ch.Categorical, err = r.Meta.Categorical(name)
			}
			return ch, err
		}
	}
	if r.Normalized != nil {
		if g, ok := r.Normalized.GeneIndex(name); ok {
			ch.Cells = r.Normalized.Cells()
			ch.Numeric = r.Normalized.RowInto(g, nil)
			return ch, nil
		}
	}

	return Channel{}, fmt.Errorf("%q: %w", name, ErrUnknownChannel)
}

// ClusterLevels returns the cluster display names in label order.
func (r *Result) ClusterLevels() []string {
	if r.Clusters == nil {
		return nil
	}
	return r.Names.Levels(r.Clusters.NumClusters())
}
