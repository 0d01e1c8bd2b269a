package commands

import (
	"github.com/spf13/cobra"

	"github.com/katalvlaran/scflow/de"
	"github.com/katalvlaran/scflow/store"
)

func newMarkersCmd(a *app) *cobra.Command {
	var (
		top     int
		only    int
		unique  bool
		sortKey string
	)
	cmd := &cobra.Command{
		Use:   "markers <run-id>",
		Short: "Print the marker table of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.Store) error {
				res, err := s.Load(args[0])
				if err != nil {
					return err
				}
				t := res.Markers
				if unique {
					t = t.Unique()
				}
				if top > 0 {
					if t, err = t.TopN(top, de.SortKey(sortKey)); err != nil {
						return err
					}
				}
				if err := t.SortBy(de.SortCluster); err != nil {
					return err
				}
				if only >= 0 {
					t = &de.Table{Rows: t.ByCluster()[only], Test: t.Test}
				}
				return printMarkers(cmd.OutOrStdout(), res, t)
			})
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 10, "markers per cluster (0 prints all)")
	cmd.Flags().IntVar(&only, "cluster", -1, "print a single cluster")
	cmd.Flags().BoolVar(&unique, "unique", false, "keep genes that mark exactly one cluster")
	cmd.Flags().StringVar(&sortKey, "sort", string(de.SortPValue), "ranking inside a cluster: p, logfc")

	return cmd
}
