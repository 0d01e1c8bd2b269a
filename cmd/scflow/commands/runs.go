package commands

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/scflow/internal/printer"
	"github.com/katalvlaran/scflow/store"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.Store) error {
				list, err := s.List()
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if len(list) == 0 {
					printer.Warning(w, "no runs in %s", s.Path())
					return nil
				}
				rows := make([][]string, len(list))
				for i, r := range list {
					rows[i] = []string{
						r.ID,
						r.Parent,
						r.Created.Local().Format(time.DateTime),
						strconv.Itoa(r.Cells),
						strconv.Itoa(r.Genes),
						strconv.Itoa(r.Clusters),
						strconv.Itoa(r.Markers),
						r.Status,
					}
				}
				return printer.Table(w, []string{"id", "parent", "created", "cells", "genes", "clusters", "markers", "status"}, rows)
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <run-id>...",
		Short: "Delete stored runs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.Store) error {
				for _, id := range args {
					if err := s.Delete(id); err != nil {
						return err
					}
					printer.Success(cmd.OutOrStdout(), "deleted %s", id)
				}
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the summary of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.Store) error {
				res, err := s.Load(args[0])
				if err != nil {
					return err
				}
				printResult(cmd.OutOrStdout(), res)
				return nil
			})
		},
	})

	return cmd
}
