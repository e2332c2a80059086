package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/afikmenashe/notification-inbox/internal/inbox"
)

// handleServiceError maps a service error to an HTTP response.
func handleServiceError(w http.ResponseWriter, err error, op, tenantID string) {
	var ve *inbox.ValidationError
	switch {
	case errors.As(err, &ve):
		http.Error(w, ve.Error(), http.StatusBadRequest)
	case errors.Is(err, inbox.ErrNotFound):
		http.Error(w, "Notification not found", http.StatusNotFound)
	case errors.Is(err, inbox.ErrLocked):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		slog.Error("Request failed", "operation", op, "tenant_id", tenantID, "error", err)
		http.Error(w, "Failed to "+op, http.StatusInternalServerError)
	}
}
