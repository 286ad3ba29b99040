// Package metrics provides Prometheus metrics collection.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the MetricsCollector port using Prometheus.
type Collector struct {
	filesProcessed    *prometheus.CounterVec
	fileDuration      *prometheus.HistogramVec
	rowsTotal         *prometheus.CounterVec
	queueDepth        *prometheus.GaugeVec
	storageOperations *prometheus.CounterVec
	storageDuration   *prometheus.HistogramVec
}

// NewCollector creates a new Prometheus metrics collector.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "gmalt"
	}

	return &Collector{
		filesProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_total",
				Help:      "Total number of files processed per pipeline stage",
			},
			[]string{"stage", "status"},
		),

		fileDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "file_duration_seconds",
				Help:      "Per-file processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),

		rowsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_total",
				Help:      "Total number of rows written to the sink",
			},
			[]string{"kind", "outcome"},
		),

		queueDepth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_depth",
				Help:      "Number of items waiting in a stage queue",
			},
			[]string{"stage"},
		),

		storageOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_operations_total",
				Help:      "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),

		storageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "storage_duration_seconds",
				Help:      "Storage operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// IncFileProcessed increments the per-stage file counter.
func (c *Collector) IncFileProcessed(stage string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	c.filesProcessed.WithLabelValues(stage, status).Inc()
}

// ObserveFileDuration records how long one file took in a stage.
func (c *Collector) ObserveFileDuration(stage string, duration time.Duration) {
	c.fileDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// AddRows adds to the row counter, split by insert vs idempotent no-op.
func (c *Collector) AddRows(kind string, inserted bool, n int64) {
	outcome := "inserted"
	if !inserted {
		outcome = "skipped"
	}
	c.rowsTotal.WithLabelValues(kind, outcome).Add(float64(n))
}

// SetQueueDepth sets the pending-item gauge for a stage.
func (c *Collector) SetQueueDepth(stage string, depth int) {
	c.queueDepth.WithLabelValues(stage).Set(float64(depth))
}

// IncStorageOperations increments storage operation counter.
func (c *Collector) IncStorageOperations(operation string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	c.storageOperations.WithLabelValues(operation, status).Inc()
}

// ObserveStorageDuration records storage operation duration.
func (c *Collector) ObserveStorageDuration(operation string, duration time.Duration) {
	c.storageDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
