package reconciler

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"dockside/pkg/logging"
)

// TextfileMetrics records run outcomes and writes them in the Prometheus
// text format after every run. Counters accumulate over the lifetime of the
// process, which matters for the watch loop; gauges describe the last run.
type TextfileMetrics struct {
	mu sync.Mutex

	path     string
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	lastRun      prometheus.Gauge
	lastDuration prometheus.Gauge
	lastSuccess  prometheus.Gauge
	sources      *prometheus.GaugeVec
	units        *prometheus.GaugeVec
	changes      *prometheus.GaugeVec
	retired      prometheus.Gauge
}

// NewTextfileMetrics creates metrics written to path.
func NewTextfileMetrics(path string) *TextfileMetrics {
	m := &TextfileMetrics{
		path:     path,
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dockside_runs_total",
			Help: "Reconciliation runs by outcome.",
		}, []string{"outcome"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dockside_last_run_timestamp_seconds",
			Help: "Start time of the last reconciliation run.",
		}),
		lastDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dockside_last_run_duration_seconds",
			Help: "Duration of the last reconciliation run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dockside_last_run_success",
			Help: "1 if the last run promoted and every source generated.",
		}),
		sources: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dockside_sources",
			Help: "Sources of the last run by generation outcome.",
		}, []string{"outcome"}),
		units: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dockside_units",
			Help: "Units of the last run by phase and outcome.",
		}, []string{"phase", "outcome"}),
		changes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dockside_unit_changes",
			Help: "Units of the last run by change.",
		}, []string{"change"}),
		retired: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dockside_units_retired",
			Help: "Units pinned for teardown retry.",
		}),
	}
	m.registry.MustRegister(m.runs, m.lastRun, m.lastDuration, m.lastSuccess, m.sources, m.units, m.changes, m.retired)
	return m
}

// Registry exposes the underlying registry.
func (m *TextfileMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// RunFinished records report and rewrites the textfile.
func (m *TextfileMetrics) RunFinished(_ context.Context, report *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	outcome := "success"
	if report.Failed() {
		outcome = "failure"
	}
	m.runs.WithLabelValues(outcome).Inc()

	m.lastRun.Set(float64(report.Started.UnixNano()) / 1e9)
	m.lastDuration.Set(report.Duration.Seconds())
	if report.Failed() {
		m.lastSuccess.Set(0)
	} else {
		m.lastSuccess.Set(1)
	}

	failedSources := len(report.FailedSources())
	m.sources.WithLabelValues("ok").Set(float64(len(report.Sources) - failedSources))
	m.sources.WithLabelValues("failed").Set(float64(failedSources))

	m.setPhase("apply", report.Applied)
	m.setPhase("teardown", report.TornDown)

	m.changes.Reset()
	for _, o := range append(append([]UnitOutcome{}, report.Applied...), report.TornDown...) {
		m.changes.WithLabelValues(string(o.Change)).Inc()
	}
	m.retired.Set(float64(len(report.Retired)))

	if m.path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(m.path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", m.path, err)
	}
	logging.Debug("Metrics", "Wrote run metrics to %s", m.path)
	return nil
}

func (m *TextfileMetrics) setPhase(phase string, outcomes []UnitOutcome) {
	failed := CountFailed(outcomes)
	m.units.WithLabelValues(phase, "ok").Set(float64(len(outcomes) - failed))
	m.units.WithLabelValues(phase, "failed").Set(float64(failed))
}
