// Package commands implements the scflow command line.
package commands

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/katalvlaran/scflow/internal/printer"
	"github.com/katalvlaran/scflow/pipeline"
	"github.com/katalvlaran/scflow/store"
)

// app carries the global flags and the resources built from them.
type app struct {
	verbose    bool
	configPath string
	dbPath     string

	logger   *zap.Logger
	registry *prometheus.Registry
}

func newRootCmd(version string) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "scflow",
		Short: "scflow - single-cell RNA-seq clustering and marker discovery",
		Long: `scflow runs quality control, normalization, variable gene selection,
scaling, PCA, graph-based clustering and differential expression over a
genes × cells count matrix, and keeps every run in a local database so it
can be reclustered, annotated and inspected later.`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			if a.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			a.logger, err = config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.registry = prometheus.NewRegistry()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log every stage at debug level")
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file (defaults when empty)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "scflow.db", "run database file")

	root.AddCommand(
		newConfigCmd(a),
		newSimulateCmd(a),
		newRunsCmd(a),
		newReclusterCmd(a),
		newRescaleCmd(a),
		newAnnotateCmd(a),
		newMarkersCmd(a),
	)

	return root
}

// Execute runs the command line and prints a colored error on failure.
func Execute(version string) error {
	root := newRootCmd(version)
	if err := root.Execute(); err != nil {
		printer.Error(os.Stderr, "scflow failed", err)
		return err
	}

	return nil
}

func (a *app) config() (pipeline.Config, error) {
	if a.configPath == "" {
		cfg := pipeline.Default()
		return cfg, cfg.Validate()
	}

	return pipeline.Load(a.configPath)
}

func (a *app) pipeline(cfg pipeline.Config) (*pipeline.Pipeline, error) {
	m, err := pipeline.NewMetrics(a.registry)
	if err != nil {
		return nil, err
	}

	return pipeline.New(cfg, pipeline.WithLogger(a.logger), pipeline.WithMetrics(m))
}

// withStore opens the database for the duration of fn.
func (a *app) withStore(fn func(*store.Store) error) error {
	s, err := store.Open(a.dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s)
}

// loadInto reads a stored run and retains it in a fresh pipeline built from
// the run's own configuration.
func (a *app) loadInto(s *store.Store, id string) (*pipeline.Pipeline, *pipeline.Result, error) {
	res, err := s.Load(id)
	if err != nil {
		return nil, nil, err
	}
	p, err := a.pipeline(res.Config)
	if err != nil {
		return nil, nil, err
	}
	p.Remember(res)

	return p, res, nil
}
