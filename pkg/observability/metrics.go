package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total number of HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adspend_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "code"},
	)

	// RequestDuration tracks request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adspend_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// ActiveRequests tracks currently active requests
	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "adspend_http_active_requests",
			Help: "Number of active HTTP requests",
		},
	)

	// UploadsTotal counts ingestion calls by source and outcome
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adspend_uploads_total",
			Help: "Total number of uploads by source and status",
		},
		[]string{"source", "status"},
	)

	// RowsInserted counts dataset rows written per source
	RowsInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adspend_rows_inserted_total",
			Help: "Dataset rows inserted by source",
		},
		[]string{"source"},
	)

	// RowsSkipped counts rows the source adapter rejected
	RowsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adspend_rows_skipped_total",
			Help: "Rows skipped during ingestion by source",
		},
		[]string{"source"},
	)
)

// Metrics collects Prometheus metrics per chi route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ActiveRequests.Inc()
		defer ActiveRequests.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}
