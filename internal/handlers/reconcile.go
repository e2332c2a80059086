package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/afikmenashe/notification-inbox/internal/events"
	"github.com/afikmenashe/notification-inbox/internal/runner"
)

// ReconcileRequest is the optional body of POST /api/v1/reconcile.
type ReconcileRequest struct {
	TenantID       string `json:"tenant_id,omitempty"`
	LimitPerTenant int    `json:"limit_per_tenant"`
}

// Reconcile runs a batch for one tenant, taken from the body or the X-Tenant-ID
// header, or for every tenant when neither is set. With ?async=true the request is
// queued on Kafka for the reconciler process and 202 is returned.
func (h *Handlers) Reconcile(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req ReconcileRequest
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}
	tenantID := strings.TrimSpace(req.TenantID)
	if tenantID == "" {
		tenantID = strings.TrimSpace(r.Header.Get(TenantHeader))
	}

	ctx := r.Context()
	if r.URL.Query().Get("async") == "true" {
		if h.requester == nil {
			http.Error(w, "Queued reconciliation is not configured", http.StatusServiceUnavailable)
			return
		}
		evt := &events.ReconcileRequested{
			EventID:        uuid.NewString(),
			SchemaVersion:  events.SchemaVersion,
			TenantID:       tenantID,
			LimitPerTenant: req.LimitPerTenant,
			RequestedAt:    time.Now().UTC(),
		}
		if err := h.requester.PublishReconcileRequested(ctx, evt); err != nil {
			slog.Error("Failed to queue reconciliation", "tenant_id", tenantID, "error", err)
			http.Error(w, "Failed to queue reconciliation", http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"event_id": evt.EventID})
		return
	}

	if h.runner == nil {
		http.Error(w, "Inline reconciliation is not configured", http.StatusServiceUnavailable)
		return
	}
	summary, err := h.runner.Run(ctx, runner.Options{TenantID: tenantID, LimitPerTenant: req.LimitPerTenant})
	if err != nil {
		handleServiceError(w, err, "reconcile", tenantID)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
