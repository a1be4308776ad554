// Package metrics exposes prometheus instrumentation for the pipeline
// executor. A Collector is created against a Registerer so embedding
// applications control registration and scraping; pass nil to use the
// default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the executor's metric instruments.
type Collector struct {
	// RecordsProcessed counts records by terminal status
	// (accepted, discarded, errored).
	RecordsProcessed *prometheus.CounterVec

	// BatchDuration observes wall time per batch in seconds.
	BatchDuration prometheus.Histogram

	// BatchQueueDepth tracks batches waiting in the work queue.
	BatchQueueDepth prometheus.Gauge

	// ActiveWorkers tracks workers currently processing a batch.
	ActiveWorkers prometheus.Gauge
}

// NewCollector builds and registers the executor metrics.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		RecordsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seqweave",
			Name:      "records_processed_total",
			Help:      "Records processed by terminal status.",
		}, []string{"status"}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "seqweave",
			Name:      "batch_duration_seconds",
			Help:      "Wall time spent processing one batch.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
		}),
		BatchQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "seqweave",
			Name:      "batch_queue_depth",
			Help:      "Batches waiting in the bounded work queue.",
		}),
		ActiveWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "seqweave",
			Name:      "active_workers",
			Help:      "Workers currently processing a batch.",
		}),
	}
}

// ObserveRecord records one terminal record status.
func (c *Collector) ObserveRecord(status string) {
	if c == nil {
		return
	}
	c.RecordsProcessed.WithLabelValues(status).Inc()
}

// ObserveBatch records one completed batch's duration in seconds.
func (c *Collector) ObserveBatch(seconds float64) {
	if c == nil {
		return
	}
	c.BatchDuration.Observe(seconds)
}
