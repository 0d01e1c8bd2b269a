package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/katalvlaran/scflow/annotate"
	"github.com/katalvlaran/scflow/cluster"
	"github.com/katalvlaran/scflow/core"
	"github.com/katalvlaran/scflow/de"
	"github.com/katalvlaran/scflow/diag"
	"github.com/katalvlaran/scflow/expr"
	"github.com/katalvlaran/scflow/hvg"
	"github.com/katalvlaran/scflow/meta"
	"github.com/katalvlaran/scflow/neighbors"
	"github.com/katalvlaran/scflow/normalize"
	"github.com/katalvlaran/scflow/pca"
	"github.com/katalvlaran/scflow/qc"
	"github.com/katalvlaran/scflow/scale"
)

// Stage names used in logs, metrics and reports.
const (
	StageQC        = "qc"
	StageNormalize = "normalize"
	StageVariable  = "hvg"
	StageScale     = "scale"
	StagePCA       = "pca"
	StageCluster   = "cluster"
	StageMarkers   = "de"
)

// Operation names used in logs and metrics.
const (
	OpRun       = "run"
	OpRescale   = "rescale"
	OpRecluster = "recluster"
)

// Metadata columns added by the pipeline.
const (
	ColumnCluster     = "cluster"
	ColumnClusterName = "cluster_name"
)

// StageRecord is the outcome of one stage invocation.
type StageRecord struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
	Status   string        `json:"status"`
}

// Result holds every intermediate value of a run.
type Result struct {
	ID string
	// Parent is the run this one was derived from by Rescale or Recluster.
	Parent  string
	Created time.Time
	Config  Config

	QC         *qc.Result
	Normalized *expr.Matrix
	Variable   *hvg.Result
	Scaled     *scale.Result
	Embedding  *pca.Embedding
	KNN        *neighbors.KNN
	// Graph is the SNN graph; nil unless Clustering.RetainGraph is set.
	Graph    *core.Graph
	Clusters *cluster.Assignment
	Markers  *de.Table
	// Meta is the QC metric table plus the cluster columns.
	Meta  *meta.Table
	Names annotate.Names

	Stages []StageRecord
	Report diag.Report
}

// Pipeline runs and retains analyses. It is safe for concurrent use.
type Pipeline struct {
	cfg     Config
	log     *zap.Logger
	metrics *Metrics
	runs    *cache.Cache
}

// Option customizes New.
type Option func(*Pipeline)

// WithLogger sets the logger. Panics on nil.
func WithLogger(l *zap.Logger) Option {
	if l == nil {
		panic("pipeline: WithLogger(nil)")
	}
	return func(p *Pipeline) { p.log = l }
}

// WithMetrics records stage timings and warnings into m.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithRetention expires retained runs after ttl, purging every interval.
// The default keeps runs until Forget is called.
func WithRetention(ttl, interval time.Duration) Option {
	return func(p *Pipeline) { p.runs = cache.New(ttl, interval) }
}

// New validates cfg and returns a pipeline.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:  cfg,
		log:  zap.NewNop(),
		runs: cache.New(cache.NoExpiration, 0),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Config returns the validated configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Lookup returns a retained run.
func (p *Pipeline) Lookup(id string) (*Result, bool) {
	v, ok := p.runs.Get(id)
	if !ok {
		return nil, false
	}

	return v.(*Result), true
}

// Remember retains res under its ID, e.g. after loading it from a store.
func (p *Pipeline) Remember(res *Result) {
	if res != nil && res.ID != "" {
		p.runs.Set(res.ID, res, cache.DefaultExpiration)
	}
}

// Forget drops a retained run.
func (p *Pipeline) Forget(id string) { p.runs.Delete(id) }

// Retained returns the number of retained runs.
func (p *Pipeline) Retained() int { return p.runs.ItemCount() }

// stage runs fn, then logs and records its outcome on res.
func (p *Pipeline) stage(log *zap.Logger, res *Result, name string, fn func() (diag.Report, error)) error {
	start := time.Now()
	rep, err := fn()
	d := time.Since(start)
	if err != nil {
		log.Error("stage failed", zap.String("stage", name), zap.Duration("duration", d), zap.Error(err))
		return fmt.Errorf("%s: %w", name, err)
	}
	p.metrics.observeStage(name, d, rep)
	for _, w := range rep.Warnings {
		log.Warn("stage warning",
			zap.String("stage", w.Stage),
			zap.Stringer("kind", w.Kind),
			zap.String("message", w.Message))
	}
	log.Debug("stage done",
		zap.String("stage", name),
		zap.Duration("duration", d),
		zap.Stringer("status", rep.Status()))
	res.Stages = append(res.Stages, StageRecord{Stage: name, Duration: d, Status: rep.Status().String()})
	res.Report.Merge(rep)

	return nil
}

// Run executes every stage on a raw count matrix. md may be nil; its
// numeric columns can serve as QC thresholds and regression covariates.
func (p *Pipeline) Run(ctx context.Context, counts *expr.Matrix, md *meta.Table) (res *Result, err error) {
	if counts == nil {
		return nil, diag.Invalid("pipeline", "nil count matrix")
	}
	res = &Result{ID: uuid.NewString(), Created: time.Now().UTC(), Config: p.cfg}
	log := p.log.With(zap.String("run", res.ID), zap.String("operation", OpRun))
	defer func() { p.finish(log, OpRun, res, err) }()

	log.Info("run started", zap.Int("genes", counts.NumGenes()), zap.Int("cells", counts.NumCells()))
	cfg := p.cfg

	err = p.stage(log, res, StageQC, func() (diag.Report, error) {
		r, err := qc.Run(ctx, counts, md, cfg.qcOptions())
		if err != nil {
			return diag.Report{}, err
		}
		res.QC = r
		p.metrics.observeCells(counts.NumCells(), r.Matrix.NumCells())
		log.Info("quality control",
			zap.Int("cells_kept", r.Matrix.NumCells()),
			zap.Int("cells_dropped", len(r.DroppedCells)),
			zap.Int("genes_kept", r.Matrix.NumGenes()),
			zap.Int("genes_dropped", len(r.DroppedGenes)))
		return r.Report, nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(log, res, StageNormalize, func() (diag.Report, error) {
		m, err := normalize.Run(ctx, res.QC.Matrix, cfg.normalizeOptions())
		res.Normalized = m
		return diag.Report{}, err
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(log, res, StageVariable, func() (diag.Report, error) {
		r, err := hvg.Select(ctx, res.Normalized, cfg.hvgOptions())
		if err != nil {
			return diag.Report{}, err
		}
		res.Variable = r
		log.Info("variable genes", zap.Int("selected", len(r.Selected)), zap.Int("genes", len(r.Genes)))
		return r.Report, nil
	})
	if err != nil {
		return nil, err
	}

	if err = p.downstream(ctx, log, res); err != nil {
		return nil, err
	}

	return res, nil
}

// Rescale re-enters a retained run at the scaling stage with new covariates.
func (p *Pipeline) Rescale(ctx context.Context, id string, covariates []string) (res *Result, err error) {
	prev, ok := p.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrUnknownRun)
	}
	res = p.derive(prev)
	res.Config.Regression.Covariates = append([]string(nil), covariates...)
	log := p.log.With(zap.String("run", res.ID), zap.String("parent", id), zap.String("operation", OpRescale))
	defer func() { p.finish(log, OpRescale, res, err) }()

	log.Info("rescale started", zap.Strings("covariates", covariates))
	if err = p.downstream(ctx, log, res); err != nil {
		return nil, err
	}

	return res, nil
}

// Recluster partitions the retained SNN graph of a run at a new resolution
// and recomputes markers. Scaling, the embedding and the graph are shared
// with the parent run.
func (p *Pipeline) Recluster(ctx context.Context, id string, resolution float64) (res *Result, err error) {
	prev, ok := p.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrUnknownRun)
	}
	if prev.Graph == nil {
		return nil, fmt.Errorf("%q: %w", id, ErrGraphNotRetained)
	}
	res = p.derive(prev)
	res.Config.Clustering.Resolution = resolution
	res.Scaled, res.Embedding, res.KNN, res.Graph = prev.Scaled, prev.Embedding, prev.KNN, prev.Graph
	res.Report.Merge(prev.Scaled.Report)
	res.Report.Merge(prev.Embedding.Report)
	log := p.log.With(zap.String("run", res.ID), zap.String("parent", id), zap.String("operation", OpRecluster))
	defer func() { p.finish(log, OpRecluster, res, err) }()

	log.Info("recluster started", zap.Float64("resolution", resolution))
	cfg := res.Config
	err = p.stage(log, res, StageCluster, func() (diag.Report, error) {
		a, err := cluster.Partition(ctx, prev.Graph, cfg.clusterOptions())
		if err != nil {
			return diag.Report{}, err
		}
		res.Clusters = a
		return a.Report, nil
	})
	if err != nil {
		return nil, err
	}
	if err = p.markers(ctx, log, res); err != nil {
		return nil, err
	}

	return res, nil
}

// Annotate names the clusters of a result. The returned result shares every
// stage output with res and differs only in Names and the name column.
func (p *Pipeline) Annotate(res *Result, names annotate.Names) (*Result, error) {
	if res == nil || res.Clusters == nil {
		return nil, diag.Invalid("pipeline", "result has no cluster assignment")
	}
	if err := names.Validate(res.Clusters.NumClusters()); err != nil {
		return nil, err
	}
	out := *res
	out.Names = make(annotate.Names, len(names))
	for k, v := range names {
		out.Names[k] = v
	}
	md, err := ClusterMeta(out.QC.Metrics, out.Clusters, out.Names)
	if err != nil {
		return nil, err
	}
	out.Meta = md
	out.Stages = append([]StageRecord(nil), res.Stages...)
	p.Remember(&out)
	p.log.Info("clusters annotated", zap.String("run", out.ID), zap.Int("names", len(names)))

	return &out, nil
}

// derive starts a child result that reuses the upstream stages of prev.
func (p *Pipeline) derive(prev *Result) *Result {
	cfg := prev.Config
	cfg.Regression.Covariates = append([]string(nil), prev.Config.Regression.Covariates...)
	res := &Result{
		ID:         uuid.NewString(),
		Parent:     prev.ID,
		Created:    time.Now().UTC(),
		Config:     cfg,
		QC:         prev.QC,
		Normalized: prev.Normalized,
		Variable:   prev.Variable,
	}
	// Warnings of the shared stages still describe the child.
	if prev.QC != nil {
		res.Report.Merge(prev.QC.Report)
	}
	if prev.Variable != nil {
		res.Report.Merge(prev.Variable.Report)
	}

	return res
}

func (p *Pipeline) finish(log *zap.Logger, op string, res *Result, err error) {
	p.metrics.observeRun(op, err)
	if err != nil {
		log.Error("pipeline failed", zap.Error(err))
		return
	}
	if res.Clusters != nil {
		p.metrics.observeClusters(res.Clusters.NumClusters())
	}
	p.Remember(res)
	log.Info("pipeline finished",
		zap.Int("clusters", res.Clusters.NumClusters()),
		zap.Int("markers", len(res.Markers.Rows)),
		zap.Stringer("status", res.Report.Status()))
}

// downstream runs scale → pca → cluster → de on a result whose normalized
// matrix and variable genes are set.
func (p *Pipeline) downstream(ctx context.Context, log *zap.Logger, res *Result) error {
	cfg := res.Config
	genes := res.Variable.Selected
	if len(genes) == 0 {
		genes = res.Normalized.Genes()
		res.Report.Degenerate("pipeline", "no variable genes, scaling all %d genes", len(genes))
		log.Warn("no variable genes, falling back to all genes", zap.Int("genes", len(genes)))
	}

	err := p.stage(log, res, StageScale, func() (diag.Report, error) {
		r, err := scale.Run(ctx, res.Normalized, res.QC.Metrics, cfg.scaleOptions(genes))
		if err != nil {
			return diag.Report{}, err
		}
		res.Scaled = r
		return r.Report, nil
	})
	if err != nil {
		return err
	}

	err = p.stage(log, res, StagePCA, func() (diag.Report, error) {
		e, err := pca.Run(res.Scaled, cfg.pcaOptions())
		if err != nil {
			return diag.Report{}, err
		}
		res.Embedding = e
		return e.Report, nil
	})
	if err != nil {
		return err
	}

	err = p.stage(log, res, StageCluster, func() (diag.Report, error) {
		opts := cfg.findOptions()
		if opts.Neighbors.Dims > res.Embedding.K() {
			opts.Neighbors.Dims = res.Embedding.K()
		}
		found, err := cluster.FindClusters(ctx, res.Embedding.Cells, res.Embedding.Scores, opts)
		if err != nil {
			return diag.Report{}, err
		}
		res.KNN, res.Graph, res.Clusters = found.KNN, found.Graph, found.Assignment
		return found.Assignment.Report, nil
	})
	if err != nil {
		return err
	}

	return p.markers(ctx, log, res)
}

func (p *Pipeline) markers(ctx context.Context, log *zap.Logger, res *Result) error {
	log.Info("clusters",
		zap.Int("clusters", res.Clusters.NumClusters()),
		zap.Ints("sizes", res.Clusters.Sizes),
		zap.Float64("modularity", res.Clusters.Modularity))

	md, err := ClusterMeta(res.QC.Metrics, res.Clusters, nil)
	if err != nil {
		return err
	}
	res.Meta = md

	cfg := res.Config
	return p.stage(log, res, StageMarkers, func() (diag.Report, error) {
		t, err := de.FindAllMarkers(ctx, res.Normalized, res.Clusters, cfg.deOptions())
		if err != nil {
			return diag.Report{}, err
		}
		res.Markers = t
		return t.Report, nil
	})
}

// ClusterMeta extends the QC metric table with the cluster label column and,
// when names is non-nil, the display-name column.
func ClusterMeta(base *meta.Table, a *cluster.Assignment, names annotate.Names) (*meta.Table, error) {
	ids := base.IDs()
	labels := make([]string, len(ids))
	display := make([]string, len(ids))
	for i, id := range ids {
		l, ok := a.Label(id)
		if !ok {
			return nil, diag.Invalid("pipeline", "cell %q has no cluster", id)
		}
		labels[i] = strconv.Itoa(l)
		display[i] = names.Name(l)
	}
	md, err := base.WithCategorical(ColumnCluster, labels)
	if err != nil || names == nil {
		return md, err
	}

	return md.WithCategorical(ColumnClusterName, display)
}
