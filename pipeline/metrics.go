package pipeline

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/katalvlaran/scflow/diag"
)

const namespace = "scflow"

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	stageSeconds *prometheus.HistogramVec
	warnings     *prometheus.CounterVec
	runs         *prometheus.CounterVec
	cells        *prometheus.GaugeVec
	clusters     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. Collectors
// already registered by an earlier call are reused, so several pipelines
// may share one registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		stageSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Wall time of one pipeline stage",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"stage"},
		),
		warnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_warnings_total",
				Help:      "Warnings raised by pipeline stages",
			},
			[]string{"stage", "kind"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Pipeline invocations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		cells: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cells",
				Help:      "Cells entering and surviving quality control in the last run",
			},
			[]string{"phase"},
		),
		clusters: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "clusters",
				Help:      "Clusters found by the last partition",
			},
		),
	}

	var err error
	if m.stageSeconds, err = register(reg, m.stageSeconds); err != nil {
		return nil, err
	}
	if m.warnings, err = register(reg, m.warnings); err != nil {
		return nil, err
	}
	if m.runs, err = register(reg, m.runs); err != nil {
		return nil, err
	}
	if m.cells, err = register(reg, m.cells); err != nil {
		return nil, err
	}
	if m.clusters, err = register(reg, m.clusters); err != nil {
		return nil, err
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}

	return c, nil
}

func (m *Metrics) observeStage(stage string, d time.Duration, rep diag.Report) {
	if m == nil {
		return
	}
	m.stageSeconds.WithLabelValues(stage).Observe(d.Seconds())
	for _, w := range rep.Warnings {
		m.warnings.WithLabelValues(stage, w.Kind.String()).Inc()
	}
}

func (m *Metrics) observeRun(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.runs.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) observeCells(input, retained int) {
	if m == nil {
		return
	}
	m.cells.WithLabelValues("input").Set(float64(input))
	m.cells.WithLabelValues("retained").Set(float64(retained))
}

func (m *Metrics) observeClusters(n int) {
	if m == nil {
		return
	}
	m.clusters.Set(float64(n))
}
