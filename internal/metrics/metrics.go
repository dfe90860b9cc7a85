// Package metrics provides Prometheus metrics for the resizer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the resizer. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Batch execution metrics
	ChunksTotal       *prometheus.CounterVec
	ChunkRetriesTotal prometheus.Counter
	ImagesTotal       *prometheus.CounterVec
	BatchDuration     prometheus.Histogram

	// HTTP metrics
	HTTPRequestsTotal *prometheus.CounterVec
}

// New creates all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.ChunksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docresizer_chunks_total",
			Help: "Total number of batchUpdate chunks by outcome",
		},
		[]string{"status"},
	)

	m.ChunkRetriesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "docresizer_chunk_retries_total",
			Help: "Total number of chunk resubmissions after transient errors",
		},
	)

	m.ImagesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docresizer_images_total",
			Help: "Total number of images processed by outcome",
		},
		[]string{"status"},
	)

	m.BatchDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docresizer_batch_duration_seconds",
			Help:    "Duration of batchUpdate calls in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docresizer_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "status"},
	)

	return m
}

// RecordChunk records one chunk outcome ("success" or "failed").
func (m *Metrics) RecordChunk(status string, images int) {
	if m == nil {
		return
	}
	m.ChunksTotal.WithLabelValues(status).Inc()
	m.ImagesTotal.WithLabelValues(status).Add(float64(images))
}

// RecordBatchCall records the latency of one batchUpdate call.
func (m *Metrics) RecordBatchCall(d time.Duration) {
	if m == nil {
		return
	}
	m.BatchDuration.Observe(d.Seconds())
}

// RecordRetry records a chunk resubmission.
func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.ChunkRetriesTotal.Inc()
}

// RecordSkipped records images that were planned out before execution.
func (m *Metrics) RecordSkipped(images int) {
	if m == nil || images == 0 {
		return
	}
	m.ImagesTotal.WithLabelValues("skipped").Add(float64(images))
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
