package handlers

import (
	"net/http"
	"strings"

	"github.com/afikmenashe/notification-inbox/internal/inbox"
	"github.com/afikmenashe/notification-inbox/internal/service"
)

// RuleResponse is the body returned by PATCH /api/v1/rules. Rule is null after CLEAR.
type RuleResponse struct {
	Rule     *inbox.RuleView `json:"rule"`
	Resolved int64           `json:"resolved"`
}

// ListRules returns the tenant's rules, optionally filtered by topic.
func (h *Handlers) ListRules(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var topic *inbox.Topic
	if raw := r.URL.Query().Get("topic"); raw != "" {
		t := inbox.Topic(strings.ToUpper(raw))
		topic = &t
	}

	rules, err := h.rules.List(r.Context(), tenantID, topic)
	if err != nil {
		handleServiceError(w, err, "list rules", tenantID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"rules": rules})
}

// UpdateRule snoozes, mutes or clears the rule of one entity.
func (h *Handlers) UpdateRule(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPatch) {
		return
	}
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req service.RuleMutation
	if !decodeJSON(w, r, &req) {
		return
	}

	actorID := strings.TrimSpace(r.Header.Get(ActorHeader))
	result, err := h.rules.Apply(r.Context(), tenantID, actorID, req)
	if err != nil {
		handleServiceError(w, err, "update rule", tenantID)
		return
	}

	h.metrics.IncrementCustom("rules_" + strings.ToLower(req.Mode))
	writeJSON(w, http.StatusOK, RuleResponse{Rule: result.Rule, Resolved: result.Resolved})
}
