package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics creates middleware that records Prometheus metrics for
// side-channel requests. Route patterns are low-cardinality (the raw path
// is not used as a label beyond the mounted routes).
func HTTPMetrics(registry prometheus.Registerer, namespace string) func(http.Handler) http.Handler {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "corkboard"
	}
	factory := promauto.With(registry)

	requests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method and status",
	}, []string{"method", "status"})

	duration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			requests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
			duration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		})
	}
}
