package store

import (
	"bytes"
	"fmt"
	"time"

	"github.com/katalvlaran/scflow/annotate"
	"github.com/katalvlaran/scflow/cluster"
	"github.com/katalvlaran/scflow/core"
	"github.com/katalvlaran/scflow/de"
	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/expr"
	"github.com/katalvlaran/scflow/hvg"
	"github.com/katalvlaran/scflow/matrix"
	"github.com/katalvlaran/scflow/meta"
	"github.com/katalvlaran/scflow/neighbors"
	"github.com/katalvlaran/scflow/pca"
	"github.com/katalvlaran/scflow/pipeline"
	"github.com/katalvlaran/scflow/qc"
	"github.com/katalvlaran/scflow/scale"
)

// Triplet is one non-zero of a sparse matrix.
type Triplet struct {
	Gene  int     `json:"g"`
	Cell  int     `json:"c"`
	Value float64 `json:"v"`
}

// Sparse is a genes × cells matrix as triplets.
type Sparse struct {
	Genes   []string  `json:"genes"`
	Cells   []string  `json:"cells"`
	Entries []Triplet `json:"entries"`
}

// Column is one metadata column.
type Column struct {
	Name        string    `json:"name"`
	Numeric     []float64 `json:"numeric,omitempty"`
	Categorical []string  `json:"categorical,omitempty"`
}

// Table is a metadata table.
type Table struct {
	IDs     []string `json:"ids"`
	Columns []Column `json:"columns"`
}

// Dense is a row-major dense matrix.
type Dense struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// Edge is one undirected graph edge.
type Edge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Weight float64 `json:"w"`
}

// Graph is a weighted undirected graph.
type Graph struct {
	Vertices []string `json:"vertices"`
	Edges    []Edge   `json:"edges"`
}

// Snapshot is the serialized form of a pipeline.Result.
type Snapshot struct {
	ID      string    `json:"id"`
	Parent  string    `json:"parent,omitempty"`
	Created time.Time `json:"created"`
	// Config is the run configuration in YAML, which keeps infinite bounds.
	Config string `json:"config"`

	Counts       Sparse      `json:"counts"`
	Metrics      Table       `json:"metrics"`
	DroppedCells []string    `json:"dropped_cells,omitempty"`
	DroppedGenes []string    `json:"dropped_genes,omitempty"`
	QCReport     diag.Report `json:"qc_report"`

	Normalized Sparse                 `json:"normalized"`
	Variable   *hvg.Result            `json:"variable"`
	Scaled     *scale.Result          `json:"scaled"`
	ScaledData Dense                  `json:"scaled_data"`
	Embedding  *pca.Embedding         `json:"embedding"`
	Scores     Dense                  `json:"scores"`
	Loadings   Dense                  `json:"loadings"`
	KNN        *neighbors.KNN         `json:"knn,omitempty"`
	Graph      *Graph                 `json:"graph,omitempty"`
	Clusters   *cluster.Assignment    `json:"clusters"`
	Markers    *de.Table              `json:"markers"`
	Names      annotate.Names         `json:"names,omitempty"`
	Stages     []pipeline.StageRecord `json:"stages"`
	Report     diag.Report            `json:"report"`
}

// Summary is the listing entry of a stored run.
type Summary struct {
	ID       string    `json:"id"`
	Parent   string    `json:"parent,omitempty"`
	Created  time.Time `json:"created"`
	Genes    int       `json:"genes"`
	Cells    int       `json:"cells"`
	Clusters int       `json:"clusters"`
	Markers  int       `json:"markers"`
	Status   string    `json:"status"`
}

// Summarize returns the listing entry of a snapshot.
func (s *Snapshot) Summarize() Summary {
	return Summary{
		ID:       s.ID,
		Parent:   s.Parent,
		Created:  s.Created,
		Genes:    len(s.Counts.Genes),
		Cells:    len(s.Counts.Cells),
		Clusters: len(s.Clusters.Sizes),
		Markers:  len(s.Markers.Rows),
		Status:   s.Report.Status().String(),
	}
}

// FromResult flattens a complete pipeline result.
func FromResult(res *pipeline.Result) (*Snapshot, error) {
	if res == nil || res.QC == nil || res.Normalized == nil || res.Scaled == nil ||
		res.Embedding == nil || res.Clusters == nil || res.Markers == nil {
		return nil, fmt.Errorf("incomplete result: %w", ErrIncomplete)
	}
	cfg, err := res.Config.Marshal()
	if err != nil {
		return nil, err
	}
	s := &Snapshot{
		ID:           res.ID,
		Parent:       res.Parent,
		Created:      res.Created,
		Config:       string(cfg),
		Counts:       fromSparse(res.QC.Matrix),
		Metrics:      fromTable(res.QC.Metrics),
		DroppedCells: res.QC.DroppedCells,
		DroppedGenes: res.QC.DroppedGenes,
		QCReport:     res.QC.Report,
		Normalized:   fromSparse(res.Normalized),
		Variable:     res.Variable,
		Scaled:       res.Scaled,
		ScaledData:   fromDense(res.Scaled.Data),
		Embedding:    res.Embedding,
		Scores:       fromDense(res.Embedding.Scores),
		Loadings:     fromDense(res.Embedding.Loadings),
		KNN:          res.KNN,
		Clusters:     res.Clusters,
		Markers:      res.Markers,
		Names:        res.Names,
		Stages:       res.Stages,
		Report:       res.Report,
	}
	if res.Graph != nil {
		s.Graph = fromGraph(res.Graph)
	}

	return s, nil
}

// Result rebuilds the pipeline result.
func (s *Snapshot) Result() (*pipeline.Result, error) {
	cfg, err := pipeline.Parse(bytes.NewReader([]byte(s.Config)))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	counts, err := s.Counts.matrix()
	if err != nil {
		return nil, fmt.Errorf("counts: %w", err)
	}
	norm, err := s.Normalized.matrix()
	if err != nil {
		return nil, fmt.Errorf("normalized: %w", err)
	}
	metrics, err := s.Metrics.table()
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if s.Scaled == nil || s.Embedding == nil || s.Clusters == nil || s.Markers == nil {
		return nil, ErrIncomplete
	}

	scaled := *s.Scaled
	if scaled.Data, err = s.ScaledData.matrix(); err != nil {
		return nil, fmt.Errorf("scaled: %w", err)
	}
	emb := *s.Embedding
	if emb.Scores, err = s.Scores.matrix(); err != nil {
		return nil, fmt.Errorf("scores: %w", err)
	}
	if emb.Loadings, err = s.Loadings.matrix(); err != nil {
		return nil, fmt.Errorf("loadings: %w", err)
	}

	res := &pipeline.Result{
		ID:      s.ID,
		Parent:  s.Parent,
		Created: s.Created,
		Config:  cfg,
		QC: &qc.Result{
			Matrix:       counts,
			Metrics:      metrics,
			DroppedCells: s.DroppedCells,
			DroppedGenes: s.DroppedGenes,
			Report:       s.QCReport,
		},
		Normalized: norm,
		Variable:   s.Variable,
		Scaled:     &scaled,
		Embedding:  &emb,
		KNN:        s.KNN,
		Clusters:   s.Clusters,
		Markers:    s.Markers,
		Names:      s.Names,
		Stages:     s.Stages,
		Report:     s.Report,
	}
	if s.Graph != nil {
		if res.Graph, err = s.Graph.graph(); err != nil {
			return nil, fmt.Errorf("graph: %w", err)
		}
	}
	if res.Meta, err = pipeline.ClusterMeta(metrics, s.Clusters, s.Names); err != nil {
		return nil, err
	}

	return res, nil
}

func fromSparse(m *expr.Matrix) Sparse {
	out := Sparse{Genes: m.Genes(), Cells: m.Cells(), Entries: make([]Triplet, 0, m.NNZ())}
	for c := 0; c < m.NumCells(); c++ {
		genes, vals := m.Column(c)
		for k, g := range genes {
			out.Entries = append(out.Entries, Triplet{Gene: g, Cell: c, Value: vals[k]})
		}
	}

	return out
}

func (s Sparse) matrix() (*expr.Matrix, error) {
	entries := make([]expr.Entry, len(s.Entries))
	for i, t := range s.Entries {
		entries[i] = expr.Entry{Gene: t.Gene, Cell: t.Cell, Value: t.Value}
	}

	return expr.New(s.Genes, s.Cells, entries)
}

func fromTable(t *meta.Table) Table {
	out := Table{IDs: t.IDs()}
	for _, col := range t.Columns() {
		c := Column{Name: col.Name}
		if col.Kind == meta.Numeric {
			c.Numeric, _ = t.Numeric(col.Name)
		} else {
			c.Categorical, _ = t.Categorical(col.Name)
		}
		out.Columns = append(out.Columns, c)
	}

	return out
}

func (t Table) table() (*meta.Table, error) {
	out, err := meta.NewTable(t.IDs)
	for _, c := range t.Columns {
		if err != nil {
			break
		}
		if c.Categorical != nil {
			out, err = out.WithCategorical(c.Name, c.Categorical)
		} else {
			out, err = out.WithNumeric(c.Name, c.Numeric)
		}
	}

	return out, err
}

func fromDense(d *matrix.Dense) Dense {
	return Dense{Rows: d.Rows(), Cols: d.Cols(), Data: append([]float64(nil), d.Data()...)}
}

func (d Dense) matrix() (*matrix.Dense, error) {
	return matrix.NewDenseFrom(d.Rows, d.Cols, d.Data)
}

func fromGraph(g *core.Graph) *Graph {
	out := &Graph{Vertices: g.Vertices()}
	for _, e := range g.Edges() {
		out.Edges = append(out.Edges, Edge{From: e.From, To: e.To, Weight: e.Weight})
	}

	return out
}

func (g *Graph) graph() (*core.Graph, error) {
	out := core.NewGraph(core.WithWeighted())
	for _, v := range g.Vertices {
		if err := out.AddVertex(v); err != nil {
			return nil, err
		}
	}
	for _, e := range g.Edges {
		if _, err := out.AddEdge(e.From, e.To, e.Weight); err != nil {
			return nil, err
		}
	}

	return out, nil
}
