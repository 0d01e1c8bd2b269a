package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/katalvlaran/scflow/de"
	"github.com/katalvlaran/scflow/internal/printer"
	"github.com/katalvlaran/scflow/pipeline"
)

func printResult(w io.Writer, res *pipeline.Result) {
	printer.Success(w, "run %s", res.ID)
	if res.Parent != "" {
		printer.Field(w, "parent", res.Parent)
	}
	if res.QC != nil {
		printer.Field(w, "cells", fmt.Sprintf("%d kept, %d dropped", res.QC.Matrix.NumCells(), len(res.QC.DroppedCells)))
		printer.Field(w, "genes", fmt.Sprintf("%d kept, %d dropped", res.QC.Matrix.NumGenes(), len(res.QC.DroppedGenes)))
	}
	if res.Variable != nil {
		printer.Field(w, "variable genes", len(res.Variable.Selected))
	}
	if res.Embedding != nil {
		printer.Field(w, "components", res.Embedding.K())
	}
	if res.Clusters != nil {
		printer.Field(w, "resolution", res.Clusters.Resolution)
		printer.Field(w, "modularity", strconv.FormatFloat(res.Clusters.Modularity, 'f', 4, 64))
		levels := res.ClusterLevels()
		parts := make([]string, len(levels))
		for l, name := range levels {
			parts[l] = fmt.Sprintf("%s=%d", name, res.Clusters.Sizes[l])
		}
		printer.Field(w, "clusters", strings.Join(parts, " "))
	}
	for _, warn := range res.Report.Warnings {
		printer.Warning(w, "%s", warn)
	}
}

func printMarkers(w io.Writer, res *pipeline.Result, t *de.Table) error {
	levels := res.ClusterLevels()
	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		name := strconv.Itoa(r.Cluster)
		if r.Cluster >= 0 && r.Cluster < len(levels) {
			name = levels[r.Cluster]
		}
		rows = append(rows, []string{
			name,
			r.Gene,
			strconv.FormatFloat(r.LogFC, 'f', 3, 64),
			strconv.FormatFloat(r.Pct1, 'f', 2, 64),
			strconv.FormatFloat(r.Pct2, 'f', 2, 64),
			strconv.FormatFloat(r.PValue, 'g', 3, 64),
			strconv.FormatFloat(r.PAdj, 'g', 3, 64),
		})
	}

	return printer.Table(w, []string{"cluster", "gene", "avg_logFC", "pct.1", "pct.2", "p_val", "p_val_adj"}, rows)
}
