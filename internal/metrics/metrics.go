// Package metrics provides Prometheus metrics for image-hub.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CacheLookupsTotal counts render cache lookups by backend and result (hit/miss).
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imagehub",
			Name:      "cache_lookups_total",
			Help:      "Total number of render cache lookups",
		},
		[]string{"backend", "result"},
	)

	// CacheComputesTotal counts how often a cache miss invoked the renderer.
	CacheComputesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imagehub",
			Name:      "cache_computes_total",
			Help:      "Total number of renders triggered by cache misses",
		},
		[]string{"backend"},
	)

	// RendersTotal counts completed render requests by output format and status.
	RendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imagehub",
			Name:      "renders_total",
			Help:      "Total number of render requests",
		},
		[]string{"format", "status"},
	)

	// RenderDuration measures end-to-end render request duration.
	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "imagehub",
			Name:      "render_duration_seconds",
			Help:      "Duration of render requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"cache_hit"},
	)

	// UploadsTotal counts upload attempts by status.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imagehub",
			Name:      "uploads_total",
			Help:      "Total number of upload requests",
		},
		[]string{"status"},
	)
)

// RecordCacheLookup records a cache lookup result.
func RecordCacheLookup(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(backend, result).Inc()
}

// RecordCacheCompute records a renderer invocation caused by a miss.
func RecordCacheCompute(backend string) {
	CacheComputesTotal.WithLabelValues(backend).Inc()
}

// RecordRender records a finished render request.
func RecordRender(format, status string, cacheHit bool, seconds float64) {
	RendersTotal.WithLabelValues(format, status).Inc()
	hit := "false"
	if cacheHit {
		hit = "true"
	}
	RenderDuration.WithLabelValues(hit).Observe(seconds)
}

// RecordUpload records a finished upload request.
func RecordUpload(status string) {
	UploadsTotal.WithLabelValues(status).Inc()
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
