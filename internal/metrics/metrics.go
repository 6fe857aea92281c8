// Package metrics provides Prometheus metrics for the filepod server.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filepod_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filepod_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	objectStoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filepod_object_store_operation_duration_seconds",
			Help:    "Object store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	objectStoreTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filepod_object_store_operations_total",
			Help: "Total object store operations",
		},
		[]string{"operation", "status"},
	)

	shareResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filepod_share_resolutions_total",
			Help: "Shared link resolutions by result",
		},
		[]string{"result"},
	)

	archiveEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filepod_archive_entries_total",
			Help: "Folder archive entries by result",
		},
		[]string{"result"},
	)

	bytesStreamedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filepod_bytes_streamed_total",
			Help: "Bytes written to clients by delivery path",
		},
		[]string{"path"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordObjectStoreOperation records an object store call.
func RecordObjectStoreOperation(operation string, duration time.Duration, success bool) {
	objectStoreDuration.WithLabelValues(operation).Observe(duration.Seconds())
	objectStoreTotal.WithLabelValues(operation, result(success)).Inc()
}

// RecordShareResolution records the outcome of resolving a shared link token.
func RecordShareResolution(outcome string) {
	shareResolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordArchiveEntry records one member added to, or skipped from, a folder archive.
func RecordArchiveEntry(added bool) {
	if added {
		archiveEntriesTotal.WithLabelValues("added").Inc()
		return
	}
	archiveEntriesTotal.WithLabelValues("skipped").Inc()
}

// RecordBytesStreamed adds n to the streamed bytes counter for a delivery path.
func RecordBytesStreamed(path string, n int64) {
	if n > 0 {
		bytesStreamedTotal.WithLabelValues(path).Add(float64(n))
	}
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// RouteLabel collapses a request path to its leading segments so tokens,
// ids and object keys never become label values.
func RouteLabel(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) >= 3 && segments[0] == "api" {
		return "/" + strings.Join(segments[:3], "/")
	}
	if segments[0] == "" {
		return "/"
	}
	return "/" + segments[0]
}

// Middleware records request counts and latencies.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := RouteLabel(r.URL.Path)
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
