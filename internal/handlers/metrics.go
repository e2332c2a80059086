package handlers

import (
	"log/slog"
	"net/http"

	"github.com/afikmenashe/notification-inbox/pkg/metrics"
)

// ServiceMetricsResponse wraps process snapshots with the known process list.
type ServiceMetricsResponse struct {
	Services      map[string]*metrics.Snapshot `json:"services"`
	KnownServices []string                     `json:"known_services"`
}

// GetServiceMetrics returns the snapshots published to Redis.
// GET /api/v1/metrics
func (h *Handlers) GetServiceMetrics(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if h.reader == nil {
		http.Error(w, "Metrics are not configured", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()

	if name := r.URL.Query().Get("service"); name != "" {
		snap, err := h.reader.GetServiceMetrics(ctx, name)
		if err != nil {
			slog.Warn("Failed to get service metrics", "service", name, "error", err)
			snap = &metrics.Snapshot{ServiceName: name, Status: "offline"}
		}
		writeJSON(w, http.StatusOK, snap)
		return
	}

	all, err := h.reader.GetAllServiceMetrics(ctx)
	if err != nil {
		slog.Error("Failed to get all service metrics", "error", err)
		http.Error(w, "Failed to retrieve service metrics", http.StatusInternalServerError)
		return
	}
	for _, name := range metrics.ServiceNames {
		if _, exists := all[name]; !exists {
			all[name] = &metrics.Snapshot{ServiceName: name, Status: "offline"}
		}
	}

	writeJSON(w, http.StatusOK, ServiceMetricsResponse{Services: all, KnownServices: metrics.ServiceNames})
}
