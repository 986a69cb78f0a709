// Package handlers contains HTTP handlers for the scheduler admin API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"flowplane/internal/flow"
	"flowplane/internal/store"
	"flowplane/pkg/api"
)

// StoreFactory combines the store interfaces the admin API reads from.
type StoreFactory interface {
	Ping(ctx context.Context) error
	store.TriggerStore
	store.FlowStore
	store.ExecutionStore
}

// SchedulerControl is the slice of the scheduler the admin API drives.
type SchedulerControl interface {
	CreateBackfill(ctx context.Context, tenantID, namespace, flowID, triggerID string, start, end time.Time, labels []flow.Label, inputs map[string]any) (*store.TriggerState, error)
	SetBackfillPaused(ctx context.Context, tenantID, namespace, flowID, triggerID string, paused bool) (*store.TriggerState, error)
	DeleteBackfill(ctx context.Context, tenantID, namespace, flowID, triggerID string) (*store.TriggerState, error)
	SyncFlows(ctx context.Context, tenantID string) error
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store         StoreFactory
	control       SchedulerControl
	defaultTenant string
}

// New creates a new Handlers instance with the given dependencies.
func New(s StoreFactory, control SchedulerControl, defaultTenant string) *Handlers {
	return &Handlers{store: s, control: control, defaultTenant: defaultTenant}
}

// tenant resolves the tenant a request operates on.
func (h *Handlers) tenant(r *http.Request) string {
	if t := r.Header.Get("X-Tenant"); t != "" {
		return t
	}
	return h.defaultTenant
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

// triggerStateResponse maps a stored trigger state to its API shape.
func triggerStateResponse(state *store.TriggerState) api.TriggerStateResponse {
	resp := api.TriggerStateResponse{
		TenantID:  state.TenantID,
		Namespace: state.Namespace,
		FlowID:    state.FlowID,
		TriggerID: state.TriggerID,
		NextDate:  state.NextDate,
		Disabled:  state.Disabled,
	}
	if state.Backfill != nil {
		resp.Backfill = &api.BackfillResponse{
			Start:       state.Backfill.Start,
			End:         state.Backfill.End,
			CurrentDate: state.Backfill.CurrentDate,
			Paused:      state.Backfill.Paused,
		}
	}
	return resp
}
