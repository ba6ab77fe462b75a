package harness

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records verification runs on its own registry so that concurrent
// harnesses, and tests, never share collectors.
type Metrics struct {
	registry *prometheus.Registry

	Runs           prometheus.Counter
	RunFailures    prometheus.Counter
	EntriesChecked prometheus.Counter
	EntriesFailed  prometheus.Counter
	Violations     *prometheus.CounterVec
	Warnings       *prometheus.CounterVec
	Escalations    prometheus.Counter
	RunDuration    prometheus.Histogram
	EntryDuration  prometheus.Histogram
}

// NewMetrics creates a Metrics instance with all collectors registered.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		Runs: factory.NewCounter(prometheus.CounterOpts{
			Name: "lexcanon_verify_runs_total",
			Help: "Total number of verification runs",
		}),
		RunFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "lexcanon_verify_run_failures_total",
			Help: "Verification runs aborted by an unreadable corpus",
		}),
		EntriesChecked: factory.NewCounter(prometheus.CounterOpts{
			Name: "lexcanon_entries_checked_total",
			Help: "Content entries checked",
		}),
		EntriesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "lexcanon_entries_failed_total",
			Help: "Content entries with at least one violation",
		}),
		Violations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lexcanon_violations_total",
			Help: "Source contract violations by kind",
		}, []string{"kind"}),
		Warnings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lexcanon_warnings_total",
			Help: "Advisory warnings by kind",
		}, []string{"kind"}),
		Escalations: factory.NewCounter(prometheus.CounterOpts{
			Name: "lexcanon_conflict_escalations_total",
			Help: "Conflict assertions between sources of equal tier",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lexcanon_verify_run_duration_seconds",
			Help:    "Duration of verification runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		EntryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lexcanon_entry_check_duration_seconds",
			Help:    "Duration of single entry checks",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current values in the Prometheus text format,
// e.g. for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// ObserveEntry records the duration of one entry check.
// Call with time.Now() at the start of the check.
func (m *Metrics) ObserveEntry(start time.Time) {
	m.EntryDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeReport(report *Report) {
	m.Runs.Inc()
	m.RunDuration.Observe(report.Duration.Seconds())
	m.EntriesChecked.Add(float64(report.EntriesChecked))
	m.EntriesFailed.Add(float64(report.EntriesFailed))
	m.Escalations.Add(float64(len(report.Escalations)))

	for _, violation := range report.Violations() {
		m.Violations.WithLabelValues(string(violation.Kind)).Inc()
	}
	for _, warning := range report.Warnings() {
		m.Warnings.WithLabelValues(string(warning.Kind)).Inc()
	}
}
