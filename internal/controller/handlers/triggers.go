package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"flowplane/pkg/api"
)

// ListTriggers handles GET /triggers.
// Returns all schedule trigger states for the tenant.
func (h *Handlers) ListTriggers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.httpError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.httpError(w, "Invalid offset", http.StatusBadRequest)
			return
		}
		offset = n
	}

	states, err := h.store.ListTriggerStates(ctx, h.tenant(r), limit, offset)
	if err != nil {
		h.httpError(w, "Failed to list triggers", http.StatusInternalServerError)
		return
	}

	resp := api.ListTriggersResponse{Triggers: []api.TriggerStateResponse{}}
	for i := range states {
		resp.Triggers = append(resp.Triggers, triggerStateResponse(&states[i]))
	}

	h.respondJson(w, http.StatusOK, resp)
}

// SetTriggerDisabled handles PUT /triggers/{namespace}/{flow}/{trigger}/disable
// and .../enable.
func (h *Handlers) SetTriggerDisabled(disabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		namespace := r.PathValue("namespace")
		flowID := r.PathValue("flow")
		triggerID := r.PathValue("trigger")

		err := h.store.SetTriggerDisabled(ctx, h.tenant(r), namespace, flowID, triggerID, disabled)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				h.httpError(w, "Trigger not found", http.StatusNotFound)
				return
			}
			h.httpError(w, "Failed to update trigger", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
