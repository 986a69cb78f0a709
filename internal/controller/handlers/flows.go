package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"flowplane/internal/store"
	"flowplane/pkg/api"
)

// SaveFlow handles POST /flows.
// Stores a new revision of the flow definition and registers any schedule
// triggers it declares.
func (h *Handlers) SaveFlow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.SaveFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid body", http.StatusBadRequest)
		return
	}
	if req.Namespace == "" || req.ID == "" {
		h.httpError(w, "namespace and id are required", http.StatusBadRequest)
		return
	}
	if len(req.Definition) == 0 {
		h.httpError(w, "definition is required", http.StatusBadRequest)
		return
	}

	tenant := h.tenant(r)

	revision := 1
	current, err := h.store.GetFlow(ctx, tenant, req.Namespace, req.ID, nil)
	switch {
	case err == nil:
		revision = current.Revision + 1
	case errors.Is(err, sql.ErrNoRows):
		// first revision
	default:
		h.httpError(w, "Failed to load current flow", http.StatusInternalServerError)
		return
	}

	record := &store.FlowRecord{
		TenantID:   tenant,
		Namespace:  req.Namespace,
		ID:         req.ID,
		Revision:   revision,
		Disabled:   req.Disabled,
		Definition: req.Definition,
	}
	if err := h.store.SaveFlow(ctx, nil, record); err != nil {
		h.httpError(w, "Failed to save flow", http.StatusInternalServerError)
		return
	}

	if err := h.control.SyncFlows(ctx, tenant); err != nil {
		h.httpError(w, "Flow saved but trigger registration failed", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusCreated, api.SaveFlowResponse{
		Namespace: req.Namespace,
		ID:        req.ID,
		Revision:  revision,
	})
}

// ListFlows handles GET /flows.
func (h *Handlers) ListFlows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.store.ListFlows(ctx, h.tenant(r), 100, 0)
	if err != nil {
		h.httpError(w, "Failed to list flows", http.StatusInternalServerError)
		return
	}

	resp := api.ListFlowsResponse{Flows: []api.FlowResponse{}}
	for _, record := range records {
		resp.Flows = append(resp.Flows, api.FlowResponse{
			Namespace: record.Namespace,
			ID:        record.ID,
			Revision:  record.Revision,
			Disabled:  record.Disabled,
		})
	}

	h.respondJson(w, http.StatusOK, resp)
}
