package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/katalvlaran/scflow/internal/printer"
	"github.com/katalvlaran/scflow/store"
	"github.com/katalvlaran/scflow/synth"
)

type simulateFlags struct {
	cells, genes int
	clusters     int
	markers      int
	fold         float64
	mito         int
	damaged      float64
	seed         int64
	noSave       bool
}

func newSimulateCmd(a *app) *cobra.Command {
	f := simulateFlags{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate a synthetic experiment and run the pipeline on it",
		Long: `Generates a seeded count matrix with planted clusters and marker genes,
runs every stage with the active configuration and stores the run.
The planted truth is compared with the clusters found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.validate(); err != nil {
				return err
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}
			ds, err := synth.Generate(f.cells, f.genes,
				synth.WithSeed(f.seed),
				synth.WithClusters(f.clusters),
				synth.WithMarkers(f.markers, f.fold),
				synth.WithMito(f.mito, f.damaged, 10))
			if err != nil {
				return err
			}
			a.logger.Info("synthetic experiment",
				zap.Int("cells", f.cells), zap.Int("genes", f.genes), zap.Int("planted_clusters", f.clusters))

			p, err := a.pipeline(cfg)
			if err != nil {
				return err
			}
			res, err := p.Run(cmd.Context(), ds.Counts, ds.Meta)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printResult(w, res)
			printer.Field(w, "planted purity", fmt.Sprintf("%.3f", purity(res.Clusters.Cells, res.Clusters.Labels, ds)))
			if f.noSave {
				return nil
			}
			return a.withStore(func(s *store.Store) error {
				if err := s.Save(res); err != nil {
					return err
				}
				printer.Success(w, "saved to %s", s.Path())
				return nil
			})
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&f.cells, "cells", 300, "number of cells")
	fl.IntVar(&f.genes, "genes", 200, "number of genes")
	fl.IntVar(&f.clusters, "clusters", 3, "planted clusters")
	fl.IntVar(&f.markers, "markers", 5, "marker genes per planted cluster")
	fl.Float64Var(&f.fold, "fold", 4, "marker fold change")
	fl.IntVar(&f.mito, "mito", 3, "mitochondrial genes")
	fl.Float64Var(&f.damaged, "damaged", 0, "fraction of damaged cells")
	fl.Int64Var(&f.seed, "seed", 1, "random seed")
	fl.BoolVar(&f.noSave, "no-save", false, "do not store the run")

	return cmd
}

// validate rejects what the synth option constructors would panic on.
func (f simulateFlags) validate() error {
	switch {
	case f.clusters < 1:
		return fmt.Errorf("--clusters %d: need at least 1", f.clusters)
	case f.markers < 0 || !(f.fold > 0):
		return fmt.Errorf("--markers %d --fold %v: need markers >= 0 and fold > 0", f.markers, f.fold)
	case f.mito < 0 || f.damaged < 0 || f.damaged > 1:
		return fmt.Errorf("--mito %d --damaged %v: need mito >= 0 and damaged in [0, 1]", f.mito, f.damaged)
	}
	return nil
}

// purity is the fraction of cells whose found cluster's majority planted
// cluster equals their own planted cluster.
func purity(cells []string, labels []int, ds *synth.Dataset) float64 {
	votes := map[int]map[int]int{}
	truth := make([]int, len(cells))
	for i, cell := range cells {
		c, _ := ds.Counts.CellIndex(cell)
		truth[i] = ds.Truth[c]
		if votes[labels[i]] == nil {
			votes[labels[i]] = map[int]int{}
		}
		votes[labels[i]][truth[i]]++
	}
	var hits int
	for _, v := range votes {
		best := 0
		for _, n := range v {
			best = max(best, n)
		}
		hits += best
	}
	if len(cells) == 0 {
		return 0
	}

	return float64(hits) / float64(len(cells))
}
