package pca

import (
	"fmt"
	"math"
	"sort"

	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/matrix"
)

// GeneLoading pairs a gene with its loading on one component.
type GeneLoading struct {
	Gene    string  `json:"gene"`
	Loading float64 `json:"loading"`
}

func (e *Embedding) checkPC(pc int) error {
	if pc < 0 || pc >= e.K() {
		return fmt.Errorf("pc %d of %d: %w", pc, e.K(), ErrComponent)
	}

	return nil
}

func (e *Embedding) loadings(pc int) []GeneLoading {
	k := e.K()
	ld := e.Loadings.Data()
	out := make([]GeneLoading, len(e.Genes))
	for i, g := range e.Genes {
		out[i] = GeneLoading{Gene: g, Loading: ld[i*k+pc]}
	}

	return out
}

// TopGenes returns the n genes with the largest |loading| on component pc.
// Ties are broken by gene identifier.
func (e *Embedding) TopGenes(pc, n int) ([]GeneLoading, error) {
	if err := e.checkPC(pc); err != nil {
		return nil, err
	}
	all := e.loadings(pc)
	sort.Slice(all, func(i, j int) bool {
		ai, aj := math.Abs(all[i].Loading), math.Abs(all[j].Loading)
		if ai != aj {
			return ai > aj
		}
		return all[i].Gene < all[j].Gene
	})

	return all[:min(max(n, 0), len(all))], nil
}

// TopGenesBySign returns the n most positive and the n most negative genes on pc.
func (e *Embedding) TopGenesBySign(pc, n int) (pos, neg []GeneLoading, err error) {
	if err = e.checkPC(pc); err != nil {
		return nil, nil, err
	}
	all := e.loadings(pc)
	sort.Slice(all, func(i, j int) bool {
		if all[i].Loading != all[j].Loading {
			return all[i].Loading > all[j].Loading
		}
		return all[i].Gene < all[j].Gene
	})
	for _, gl := range all {
		if gl.Loading > 0 && len(pos) < n {
			pos = append(pos, gl)
		}
	}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Loading < 0 && len(neg) < n {
			neg = append(neg, all[i])
		}
	}

	return pos, neg, nil
}

// Reconstruct returns the rank-k approximation of the input in genes × cells
// orientation, with the gene centers added back.
func (e *Embedding) Reconstruct(k int) (*matrix.Dense, error) {
	if k < 1 || k > e.K() {
		return nil, fmt.Errorf("rank %d of %d: %w", k, e.K(), ErrComponent)
	}
	p, n, kk := len(e.Genes), len(e.Cells), e.K()
	out, err := matrix.NewDense(p, n)
	if err != nil {
		return nil, diag.Invalid(stage, "%v", err)
	}
	sc, ld, od := e.Scores.Data(), e.Loadings.Data(), out.Data()
	for g := 0; g < p; g++ {
		for c := 0; c < n; c++ {
			v := e.Center[g]
			for j := 0; j < k; j++ {
				v += sc[c*kk+j] * ld[g*kk+j]
			}
			od[g*n+c] = v
		}
	}

	return out, nil
}

// ReconstructionError returns the Frobenius norm of data minus its rank-k reconstruction.
func ReconstructionError(data *matrix.Dense, e *Embedding, k int) (float64, error) {
	if err := matrix.ValidateNotNil(data); err != nil {
		return 0, err
	}
	rec, err := e.Reconstruct(k)
	if err != nil {
		return 0, err
	}
	if data.Rows() != rec.Rows() || data.Cols() != rec.Cols() {
		return 0, diag.Invalid(stage, "data %dx%d vs embedding %dx%d", data.Rows(), data.Cols(), rec.Rows(), rec.Cols())
	}
	var ss float64
	rd := rec.Data()
	for i, v := range data.Data() {
		d := v - rd[i]
		ss += d * d
	}

	return math.Sqrt(ss), nil
}

// Coordinates returns the first dims score columns per cell as a cells × dims matrix.
func (e *Embedding) Coordinates(dims int) (*matrix.Dense, error) {
	if dims < 1 || dims > e.K() {
		return nil, fmt.Errorf("dims %d of %d: %w", dims, e.K(), ErrComponent)
	}
	if dims == e.K() {
		return e.Scores.Clone(), nil
	}

	return e.Scores.Submatrix(len(e.Cells), dims)
}
