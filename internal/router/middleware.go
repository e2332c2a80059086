package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/afikmenashe/notification-inbox/internal/handlers"
	"github.com/afikmenashe/notification-inbox/pkg/metrics"
)

// corsMiddleware applies CORS headers to all requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+handlers.TenantHeader+", "+handlers.ActorHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder remembers the status written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// unmeteredPaths are served without request metrics.
var unmeteredPaths = map[string]bool{
	"/api/v1/metrics": true,
	"/health":         true,
}

// metricsMiddleware counts requests by method and status class, and sums latency.
func metricsMiddleware(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if collector == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if unmeteredPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			collector.RecordRequest()
			collector.IncrementCustom("http_" + r.Method)
			collector.IncrementCustom(fmt.Sprintf("http_%dxx", rec.status/100))
			if rec.status >= http.StatusInternalServerError {
				collector.IncrementCustom("http_errors")
			}
			collector.AddCustom("http_latency_ms_total", uint64(time.Since(start).Milliseconds()))
		})
	}
}
