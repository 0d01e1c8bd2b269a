package commands

import (
	"github.com/spf13/cobra"

	"github.com/katalvlaran/scflow/internal/printer"
	"github.com/katalvlaran/scflow/store"
)

func newReclusterCmd(a *app) *cobra.Command {
	var resolution float64
	cmd := &cobra.Command{
		Use:   "recluster <run-id>",
		Short: "Partition a stored run's neighbor graph at another resolution",
		Long: `Loads a run, reuses its neighbor graph, partitions it at the given
resolution, recomputes the markers and stores the result as a child run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.Store) error {
				p, _, err := a.loadInto(s, args[0])
				if err != nil {
					return err
				}
				res, err := p.Recluster(cmd.Context(), args[0], resolution)
				if err != nil {
					return err
				}
				if err := s.Save(res); err != nil {
					return err
				}
				printResult(cmd.OutOrStdout(), res)
				printer.Success(cmd.OutOrStdout(), "saved to %s", s.Path())
				return nil
			})
		},
	}
	cmd.Flags().Float64VarP(&resolution, "resolution", "r", 0.8, "modularity resolution")

	return cmd
}

func newRescaleCmd(a *app) *cobra.Command {
	var covariates []string
	cmd := &cobra.Command{
		Use:   "rescale <run-id>",
		Short: "Re-run scaling, PCA, clustering and markers with other covariates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.Store) error {
				p, _, err := a.loadInto(s, args[0])
				if err != nil {
					return err
				}
				res, err := p.Rescale(cmd.Context(), args[0], covariates)
				if err != nil {
					return err
				}
				if err := s.Save(res); err != nil {
					return err
				}
				printResult(cmd.OutOrStdout(), res)
				printer.Success(cmd.OutOrStdout(), "saved to %s", s.Path())
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&covariates, "regress", nil, "metadata columns to regress out, e.g. n_counts,percent_mito")

	return cmd
}
