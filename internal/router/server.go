package router

import (
	"net/http"
	"time"

	"github.com/afikmenashe/notification-inbox/internal/handlers"
	"github.com/afikmenashe/notification-inbox/pkg/metrics"
)

// NewServer creates a new HTTP server with the router configured.
func NewServer(port string, h *handlers.Handlers, collector *metrics.Collector) *http.Server {
	router := NewRouter(h, collector)
	return &http.Server{
		Addr:         ":" + port,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // inline reconcile can take a while
		IdleTimeout:  60 * time.Second,
	}
}
