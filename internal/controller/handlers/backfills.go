package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"flowplane/internal/flow"
	"flowplane/pkg/api"
)

// CreateBackfill handles POST /backfills.
// Attaches a backfill to a schedule trigger and rewinds its cursor.
func (h *Handlers) CreateBackfill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateBackfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid body", http.StatusBadRequest)
		return
	}
	if req.Namespace == "" || req.FlowID == "" || req.TriggerID == "" {
		h.httpError(w, "namespace, flow_id and trigger_id are required", http.StatusBadRequest)
		return
	}
	if req.Start.IsZero() || req.End.IsZero() {
		h.httpError(w, "start and end are required", http.StatusBadRequest)
		return
	}

	var labels []flow.Label
	for _, l := range req.Labels {
		labels = append(labels, flow.Label{Key: l.Key, Value: l.Value})
	}

	state, err := h.control.CreateBackfill(ctx, h.tenant(r), req.Namespace, req.FlowID, req.TriggerID, req.Start, req.End, labels, req.Inputs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.httpError(w, "Trigger not found", http.StatusNotFound)
			return
		}
		h.httpError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	h.respondJson(w, http.StatusCreated, triggerStateResponse(state))
}

// SetBackfillPaused handles PUT /backfills/{namespace}/{flow}/{trigger}/pause
// and .../resume.
func (h *Handlers) SetBackfillPaused(paused bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		namespace := r.PathValue("namespace")
		flowID := r.PathValue("flow")
		triggerID := r.PathValue("trigger")

		state, err := h.control.SetBackfillPaused(ctx, h.tenant(r), namespace, flowID, triggerID, paused)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				h.httpError(w, "Trigger not found", http.StatusNotFound)
				return
			}
			h.httpError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		h.respondJson(w, http.StatusOK, triggerStateResponse(state))
	}
}

// DeleteBackfill handles DELETE /backfills/{namespace}/{flow}/{trigger}.
func (h *Handlers) DeleteBackfill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	namespace := r.PathValue("namespace")
	flowID := r.PathValue("flow")
	triggerID := r.PathValue("trigger")

	state, err := h.control.DeleteBackfill(ctx, h.tenant(r), namespace, flowID, triggerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.httpError(w, "Trigger not found", http.StatusNotFound)
			return
		}
		h.httpError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	h.respondJson(w, http.StatusOK, triggerStateResponse(state))
}
