package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"flowplane/pkg/api"
)

// GetExecution handles GET /executions/{id}.
// Returns the current state of one execution.
func (h *Handlers) GetExecution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	executionID := r.PathValue("id")
	if executionID == "" {
		h.httpError(w, "Invalid execution id", http.StatusBadRequest)
		return
	}

	record, err := h.store.GetExecutionByID(ctx, executionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.httpError(w, "Execution not found", http.StatusNotFound)
			return
		}
		h.httpError(w, "Failed to load execution", http.StatusInternalServerError)
		return
	}
	if record.TenantID != h.tenant(r) {
		h.httpError(w, "Execution not found", http.StatusNotFound)
		return
	}

	h.respondJson(w, http.StatusOK, api.ExecutionResponse{
		ID:           record.ID,
		Namespace:    record.Namespace,
		FlowID:       record.FlowID,
		FlowRevision: record.FlowRevision,
		State:        record.State,
		TriggerID:    record.TriggerID,
		ScheduleDate: record.ScheduleDate,
		CreatedAt:    record.CreatedAt,
	})
}
