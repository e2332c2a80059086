package handlers

import (
	"net/http"

	"github.com/afikmenashe/notification-inbox/internal/inbox"
)

// InboxActionRequest is the body of PATCH /api/v1/inbox.
type InboxActionRequest struct {
	Action         string `json:"action"`
	NotificationID string `json:"notification_id"`
}

// InboxActionResponse carries the totals after an action.
type InboxActionResponse struct {
	Summary *inbox.Summary `json:"summary"`
}

// ListInbox returns a filtered inbox page with tenant-wide totals.
// Query params: filter (ACTIVE, UNREAD, RESOLVED, ALL; default ACTIVE), limit (default 50, max 200)
func (h *Handlers) ListInbox(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	filter := inbox.ParseFilter(r.URL.Query().Get("filter"))
	result, err := h.inbox.List(r.Context(), tenantID, filter, queryInt(r, "limit"))
	if err != nil {
		handleServiceError(w, err, "list inbox", tenantID)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// UpdateInbox applies a status action.
func (h *Handlers) UpdateInbox(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPatch) {
		return
	}
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req InboxActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	summary, err := h.inbox.Apply(r.Context(), tenantID, req.Action, req.NotificationID)
	if err != nil {
		handleServiceError(w, err, "update inbox", tenantID)
		return
	}

	h.metrics.IncrementCustom("inbox_" + req.Action)
	writeJSON(w, http.StatusOK, InboxActionResponse{Summary: summary})
}
