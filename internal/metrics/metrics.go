// Package metrics exposes per-run replication counters and
// histograms, optionally served over HTTP for --metrics-listen.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every metric this binary exports, registered against
// its own prometheus.Registry so a run never collides with the
// default global registry (matters for the test suite, which builds
// several Registries in the same process).
type Registry struct {
	reg *prometheus.Registry

	BytesReplicated *prometheus.CounterVec   // labels: dataset
	StepSeconds     *prometheus.HistogramVec // labels: dataset, stage
	DatasetOutcomes *prometheus.CounterVec   // labels: status
	RetryAttempts   *prometheus.CounterVec   // labels: dataset
}

// New builds a Registry with all metrics registered and ready to
// observe.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		BytesReplicated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zfsync",
			Name:      "bytes_replicated_total",
			Help:      "Bytes sent through the replication pipeline, per dataset.",
		}, []string{"dataset"}),
		StepSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "zfsync",
			Name:      "step_seconds",
			Help:      "Wall-clock duration of one TRANSFER step, per dataset and pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"dataset", "stage"}),
		DatasetOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zfsync",
			Name:      "dataset_outcomes_total",
			Help:      "Terminal outcomes of the Per-Dataset Replicator, per status.",
		}, []string{"status"}),
		RetryAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zfsync",
			Name:      "retry_attempts_total",
			Help:      "Retry attempts made by the Retry Controller, per dataset.",
		}, []string{"dataset"}),
	}
}

// Registerer exposes the underlying registry for the HTTP exporter.
func (r *Registry) Registerer() *prometheus.Registry { return r.reg }

// ObserveOutcome records one dataset's terminal Outcome status.
func (r *Registry) ObserveOutcome(status string) {
	r.DatasetOutcomes.WithLabelValues(status).Inc()
}

// ObserveStep records one TRANSFER step's byte count and duration.
func (r *Registry) ObserveStep(dataset, stage string, bytes int64, seconds float64) {
	r.BytesReplicated.WithLabelValues(dataset).Add(float64(bytes))
	r.StepSeconds.WithLabelValues(dataset, stage).Observe(seconds)
}

// ObserveRetry records one retry attempt for dataset.
func (r *Registry) ObserveRetry(dataset string) {
	r.RetryAttempts.WithLabelValues(dataset).Inc()
}
