package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/scflow/annotate"
	"github.com/katalvlaran/scflow/internal/printer"
	"github.com/katalvlaran/scflow/store"
)

func newAnnotateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "annotate <run-id> <label>=<name>...",
		Short: "Name the clusters of a stored run",
		Example: `  scflow annotate 3f6c... 0=T-cells 1=B-cells 2=Monocytes`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := parseNames(args[1:])
			if err != nil {
				return err
			}
			return a.withStore(func(s *store.Store) error {
				p, res, err := a.loadInto(s, args[0])
				if err != nil {
					return err
				}
				named, err := p.Annotate(res, names)
				if err != nil {
					return err
				}
				if err := s.Save(named); err != nil {
					return err
				}
				printResult(cmd.OutOrStdout(), named)
				printer.Success(cmd.OutOrStdout(), "saved to %s", s.Path())
				return nil
			})
		},
	}
}

func parseNames(args []string) (annotate.Names, error) {
	names := annotate.Names{}
	for _, arg := range args {
		label, name, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("%q: want <label>=<name>", arg)
		}
		l, err := strconv.Atoi(label)
		if err != nil {
			return nil, fmt.Errorf("%q: label must be an integer", arg)
		}
		names[l] = name
	}

	return names, nil
}
