package router

import (
	"net/http"
)

// setupRoutes registers the API. The mux answers 405 for a known path with another method.
func (r *Router) setupRoutes() {
	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"GET /api/v1/inbox", r.handlers.ListInbox},
		{"PATCH /api/v1/inbox", r.handlers.UpdateInbox},
		{"GET /api/v1/rules", r.handlers.ListRules},
		{"PATCH /api/v1/rules", r.handlers.UpdateRule},
		{"POST /api/v1/reconcile", r.handlers.Reconcile},
		{"GET /api/v1/metrics", r.handlers.GetServiceMetrics},
		{"GET /health", health},
	}
	for _, rt := range routes {
		r.mux.HandleFunc(rt.pattern, rt.handler)
	}
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
