// Package metrics provides Prometheus metrics for docsift.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentsTotal counts outline extractions by outcome.
	DocumentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsift",
			Name:      "documents_total",
			Help:      "Documents processed by the outline stage",
		},
		[]string{"method", "outcome"},
	)

	// DocumentDuration measures per-document outline extraction time.
	DocumentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docsift",
			Name:      "document_duration_seconds",
			Help:      "Duration of outline extraction per document in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// EmbedRequests counts embedding backend calls by status.
	EmbedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsift",
			Name:      "embed_requests_total",
			Help:      "Embedding backend calls",
		},
		[]string{"backend", "status"},
	)

	// EmbedDuration measures embedding backend latency.
	EmbedDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsift",
			Name:      "embed_duration_seconds",
			Help:      "Duration of embedding calls in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"backend"},
	)

	// EmbedCacheHits counts embedding cache lookups by result.
	EmbedCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsift",
			Name:      "embed_cache_total",
			Help:      "Embedding cache lookups",
		},
		[]string{"tier", "result"},
	)

	// SectionsOmitted counts sections left out of a ranking, by error kind.
	SectionsOmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsift",
			Name:      "sections_omitted_total",
			Help:      "Sections excluded from ranking",
		},
		[]string{"kind"},
	)

	// BatchDuration measures end-to-end ranking batch time.
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docsift",
			Name:      "batch_duration_seconds",
			Help:      "Duration of ranking batches in seconds",
			Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// HTTPRequests counts API requests by route pattern and status code.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsift",
			Name:      "http_requests_total",
			Help:      "HTTP requests served",
		},
		[]string{"route", "status"},
	)

	// QueueDepth reports jobs waiting for a worker.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docsift",
			Name:      "queue_depth",
			Help:      "Jobs waiting in the queue",
		},
	)
)

// RecordDocument records one outline extraction.
func RecordDocument(method, outcome string, d time.Duration) {
	if method == "" {
		method = "unknown"
	}
	DocumentsTotal.WithLabelValues(method, outcome).Inc()
	DocumentDuration.Observe(d.Seconds())
}

// RecordEmbed records one embedding backend call.
func RecordEmbed(backend, status string, d time.Duration) {
	EmbedRequests.WithLabelValues(backend, status).Inc()
	EmbedDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// RecordCache records an embedding cache lookup in the given tier
// ("memory" or "redis").
func RecordCache(tier string, hit bool) {
	if hit {
		EmbedCacheHits.WithLabelValues(tier, "hit").Inc()
		return
	}
	EmbedCacheHits.WithLabelValues(tier, "miss").Inc()
}

// RecordOmitted records a section left out of a ranking.
func RecordOmitted(kind string) {
	SectionsOmitted.WithLabelValues(kind).Inc()
}

// RecordRequest records one served HTTP request.
func RecordRequest(route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
