package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/scflow/cluster"
	"github.com/katalvlaran/scflow/de"
	"github.com/katalvlaran/scflow/hvg"
	"github.com/katalvlaran/scflow/neighbors"
	"github.com/katalvlaran/scflow/normalize"
	"github.com/katalvlaran/scflow/pca"
	"github.com/katalvlaran/scflow/qc"
	"github.com/katalvlaran/scflow/scale"
)

// Config is the full run configuration, one section per stage.
type Config struct {
	QC            QCConfig            `yaml:"qc"`
	Normalization NormalizationConfig `yaml:"normalization"`
	Variable      VariableConfig      `yaml:"variable"`
	Regression    RegressionConfig    `yaml:"regression"`
	PCA           PCAConfig           `yaml:"pca"`
	Clustering    ClusteringConfig    `yaml:"clustering"`
	DE            de.Options          `yaml:"de"`
	// Workers bounds data parallelism in every stage (0 means GOMAXPROCS).
	Workers int `yaml:"workers"`
}

// QCConfig configures cell and gene filtering.
type QCConfig struct {
	// Thresholds maps a metric (n_genes, n_counts, percent_mito) or a numeric
	// metadata column to inclusive bounds.
	Thresholds map[string]qc.Bounds `yaml:"thresholds,omitempty"`
	// Fractions maps a metric name to a gene-name prefix.
	Fractions map[string]string `yaml:"fractions,omitempty"`
	MinCells  int               `yaml:"min_cells"`
}

// NormalizationConfig configures per-cell normalization.
type NormalizationConfig struct {
	Method      string  `yaml:"method"`
	ScaleFactor float64 `yaml:"scale_factor"`
}

// VariableConfig configures variable gene selection.
type VariableConfig struct {
	XLow       float64 `yaml:"x_low"`
	XHigh      float64 `yaml:"x_high"`
	YCutoff    float64 `yaml:"y_cutoff"`
	NumBins    int     `yaml:"num_bins"`
	Dispersion string  `yaml:"dispersion"`
	BinMode    string  `yaml:"bin_mode"`
	TopN       int     `yaml:"top_n"`
}

// RegressionConfig configures covariate regression and scaling.
type RegressionConfig struct {
	Covariates []string `yaml:"covariates,omitempty"`
	ClipMax    float64  `yaml:"clip_max"`
}

// PCAConfig configures the embedding.
type PCAConfig struct {
	Components    int     `yaml:"components"`
	Solver        string  `yaml:"solver"`
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
	Oversample    int     `yaml:"oversample"`
	Seed          int64   `yaml:"seed"`
}

// ClusteringConfig configures the neighbor graph and its partition.
type ClusteringConfig struct {
	Neighbors int `yaml:"neighbors"`
	// Dims is the number of leading principal components used; 0 means all.
	Dims  int     `yaml:"dims"`
	Prune float64 `yaml:"prune"`
	// RetainGraph keeps the SNN graph so the run can be reclustered.
	RetainGraph bool `yaml:"retain_graph"`

	cluster.Options `yaml:",inline"`
}

// Default returns the configuration every stage documents as its default.
func Default() Config {
	q := qc.DefaultOptions()
	n := normalize.DefaultOptions()
	v := hvg.DefaultOptions()
	p := pca.DefaultOptions()
	nb := neighbors.DefaultOptions()

	return Config{
		QC: QCConfig{Thresholds: q.Thresholds, Fractions: q.Fractions, MinCells: q.MinCells},
		Normalization: NormalizationConfig{
			Method:      n.Method,
			ScaleFactor: n.ScaleFactor,
		},
		Variable: VariableConfig{
			XLow:       v.XLow,
			XHigh:      v.XHigh,
			YCutoff:    v.YCutoff,
			NumBins:    v.NumBins,
			Dispersion: v.Dispersion,
			BinMode:    v.BinMode,
		},
		Regression: RegressionConfig{ClipMax: scale.DefaultOptions().ClipMax},
		PCA: PCAConfig{
			Components:    p.Components,
			Solver:        p.Solver,
			MaxIterations: p.MaxIterations,
			Tolerance:     p.Tolerance,
			Oversample:    p.Oversample,
			Seed:          p.Seed,
		},
		Clustering: ClusteringConfig{
			Neighbors:   nb.K,
			Prune:       nb.Prune,
			RetainGraph: true,
			Options:     cluster.DefaultOptions(),
		},
		DE: de.DefaultOptions(),
	}
}

// Parse decodes YAML over Default and validates the result. Unknown keys
// are rejected; an empty document yields the defaults.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %v: %w", err, ErrConfig)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse(bytes.NewReader(data))
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConfig)
}

// Validate fills empty enumerations with their defaults and checks ranges.
// Stage packages validate their own options again when they run.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return invalid("workers %d < 0", c.Workers)
	}
	if c.QC.MinCells < 0 {
		return invalid("qc.min_cells %d < 0", c.QC.MinCells)
	}
	for name, b := range c.QC.Thresholds {
		if math.IsNaN(b.Low) || math.IsNaN(b.High) || b.Low > b.High {
			return invalid("qc.thresholds.%s [%v, %v]", name, b.Low, b.High)
		}
	}

	if c.Normalization.Method == "" {
		c.Normalization.Method = normalize.LogScale
	}
	if c.Normalization.ScaleFactor == 0 {
		c.Normalization.ScaleFactor = normalize.DefaultScaleFactor
	}
	if !(c.Normalization.ScaleFactor > 0) || math.IsInf(c.Normalization.ScaleFactor, 0) {
		return invalid("normalization.scale_factor %v", c.Normalization.ScaleFactor)
	}

	if c.Variable.Dispersion == "" {
		c.Variable.Dispersion = hvg.LogVMR
	}
	if c.Variable.BinMode == "" {
		c.Variable.BinMode = hvg.BinRank
	}
	if c.Variable.NumBins < 1 {
		return invalid("variable.num_bins %d < 1", c.Variable.NumBins)
	}
	if c.Variable.XLow > c.Variable.XHigh {
		return invalid("variable.x_low %v > x_high %v", c.Variable.XLow, c.Variable.XHigh)
	}
	if c.Variable.TopN < 0 {
		return invalid("variable.top_n %d < 0", c.Variable.TopN)
	}

	if c.Regression.ClipMax < 0 {
		return invalid("regression.clip_max %v < 0", c.Regression.ClipMax)
	}

	if c.PCA.Solver == "" {
		c.PCA.Solver = pca.Randomized
	}
	if c.PCA.Components < 1 {
		return invalid("pca.components %d < 1", c.PCA.Components)
	}
	if c.PCA.MaxIterations < 1 {
		return invalid("pca.max_iterations %d < 1", c.PCA.MaxIterations)
	}

	cl := &c.Clustering
	if cl.Neighbors < 1 {
		return invalid("clustering.neighbors %d < 1", cl.Neighbors)
	}
	if cl.Dims < 0 || cl.Dims > c.PCA.Components {
		return invalid("clustering.dims %d outside [0, %d]", cl.Dims, c.PCA.Components)
	}
	if cl.Prune < 0 || cl.Prune > 1 {
		return invalid("clustering.prune %v outside [0, 1]", cl.Prune)
	}
	if !(cl.Resolution > 0) {
		return invalid("clustering.resolution %v <= 0", cl.Resolution)
	}
	if cl.RandomStarts < 1 {
		return invalid("clustering.random_starts %d < 1", cl.RandomStarts)
	}

	if c.DE.Test == "" {
		c.DE.Test = de.Bimod
	}
	if _, err := de.Lookup(c.DE.Test); err != nil {
		return invalid("de.test %q", c.DE.Test)
	}
	if c.DE.MinPct < 0 || c.DE.MinPct > 1 {
		return invalid("de.min_pct %v outside [0, 1]", c.DE.MinPct)
	}

	return nil
}

func (c Config) qcOptions() qc.Options {
	return qc.Options{
		Thresholds: c.QC.Thresholds,
		Fractions:  c.QC.Fractions,
		MinCells:   c.QC.MinCells,
		Workers:    c.Workers,
	}
}

func (c Config) normalizeOptions() normalize.Options {
	return normalize.Options{
		Method:      c.Normalization.Method,
		ScaleFactor: c.Normalization.ScaleFactor,
		Workers:     c.Workers,
	}
}

func (c Config) hvgOptions() hvg.Options {
	v := c.Variable
	return hvg.Options{
		NumBins:    v.NumBins,
		XLow:       v.XLow,
		XHigh:      v.XHigh,
		YCutoff:    v.YCutoff,
		Dispersion: v.Dispersion,
		BinMode:    v.BinMode,
		TopN:       v.TopN,
		Workers:    c.Workers,
	}
}

func (c Config) scaleOptions(genes []string) scale.Options {
	return scale.Options{
		Genes:      genes,
		Covariates: c.Regression.Covariates,
		ClipMax:    c.Regression.ClipMax,
		Workers:    c.Workers,
	}
}

func (c Config) pcaOptions() pca.Options {
	p := c.PCA
	return pca.Options{
		Components:    p.Components,
		Solver:        p.Solver,
		MaxIterations: p.MaxIterations,
		Tolerance:     p.Tolerance,
		Oversample:    p.Oversample,
		Seed:          p.Seed,
	}
}

func (c Config) clusterOptions() cluster.Options {
	o := c.Clustering.Options
	o.Workers = c.Workers
	return o
}

func (c Config) findOptions() cluster.FindOptions {
	return cluster.FindOptions{
		Neighbors: neighbors.Options{
			K:       c.Clustering.Neighbors,
			Dims:    c.Clustering.Dims,
			Prune:   c.Clustering.Prune,
			Workers: c.Workers,
		},
		Cluster:     c.clusterOptions(),
		RetainGraph: c.Clustering.RetainGraph,
	}
}

func (c Config) deOptions() de.Options {
	o := c.DE
	o.Workers = c.Workers
	return o
}
