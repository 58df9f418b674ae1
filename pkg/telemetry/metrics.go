package telemetry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"afterseed/pkg/seed"
)

const namespace = "afterseed"

// Metrics counts seeder runs in a private registry that can be dumped for the
// node exporter textfile collector.
type Metrics struct {
	registry *prometheus.Registry

	runs     *prometheus.CounterVec
	seeders  *prometheus.CounterVec
	records  prometheus.Counter
	duration prometheus.Histogram
	batch    prometheus.Gauge
}

// NewMetrics registers the seeder collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Seeder runs by terminal status.",
		}, []string{"status"}),
		seeders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seeders_total",
			Help:      "Pending seeders by outcome.",
		}, []string{"outcome"}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Records written by applied seeders.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "seeder_duration_seconds",
			Help:      "Time spent writing a single seeder.",
			Buckets:   prometheus.DefBuckets,
		}),
		batch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_batch",
			Help:      "Batch number of the most recent completed run.",
		}),
	}
	m.registry.MustRegister(m.runs, m.seeders, m.records, m.duration, m.batch)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Observe records the outcome of a run.
func (m *Metrics) Observe(report *seed.Report) {
	if m == nil || report == nil {
		return
	}
	m.runs.WithLabelValues(string(report.Status)).Inc()
	if report.Status != seed.StatusCompleted {
		return
	}
	m.batch.Set(float64(report.Batch))
	for _, res := range report.Results {
		m.seeders.WithLabelValues(string(res.Outcome)).Inc()
		if res.Outcome == seed.OutcomeApplied {
			m.records.Add(float64(res.Records))
			m.duration.Observe(res.Duration.Seconds())
		}
	}
}

// WriteTextfile atomically writes the current values to path.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return errors.New("nil metrics")
	}
	if path == "" {
		return errors.New("metrics file path is required")
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
