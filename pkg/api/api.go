// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the scheduler's admin API.
package api

import (
	"encoding/json"
	"time"
)

// Label is one key/value label on an execution or backfill.
type Label struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// BackfillResponse describes a backfill attached to a trigger.
type BackfillResponse struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	CurrentDate time.Time `json:"current_date"`
	Paused      bool      `json:"paused"`
}

// TriggerStateResponse represents one schedule trigger in API responses.
type TriggerStateResponse struct {
	TenantID  string            `json:"tenant_id"`
	Namespace string            `json:"namespace"`
	FlowID    string            `json:"flow_id"`
	TriggerID string            `json:"trigger_id"`
	NextDate  *time.Time        `json:"next_date,omitempty"`
	Disabled  bool              `json:"disabled"`
	Backfill  *BackfillResponse `json:"backfill,omitempty"`
}

// ListTriggersResponse is the response body for listing triggers.
type ListTriggersResponse struct {
	Triggers []TriggerStateResponse `json:"triggers"`
}

// CreateBackfillRequest is the request body for starting a backfill.
type CreateBackfillRequest struct {
	Namespace string         `json:"namespace"`
	FlowID    string         `json:"flow_id"`
	TriggerID string         `json:"trigger_id"`
	Start     time.Time      `json:"start"`
	End       time.Time      `json:"end"`
	Labels    []Label        `json:"labels,omitempty"`
	Inputs    map[string]any `json:"inputs,omitempty"`
}

// SaveFlowRequest is the request body for saving a flow revision. The
// definition is stored verbatim; only the coordinates are lifted out.
type SaveFlowRequest struct {
	Namespace  string          `json:"namespace"`
	ID         string          `json:"id"`
	Disabled   bool            `json:"disabled,omitempty"`
	Definition json.RawMessage `json:"definition"`
}

// SaveFlowResponse is the response body after saving a flow revision.
type SaveFlowResponse struct {
	Namespace string `json:"namespace"`
	ID        string `json:"id"`
	Revision  int    `json:"revision"`
}

// FlowResponse represents one flow in API responses.
type FlowResponse struct {
	Namespace string `json:"namespace"`
	ID        string `json:"id"`
	Revision  int    `json:"revision"`
	Disabled  bool   `json:"disabled"`
}

// ListFlowsResponse is the response body for listing flows.
type ListFlowsResponse struct {
	Flows []FlowResponse `json:"flows"`
}

// ExecutionResponse represents an execution in API responses.
type ExecutionResponse struct {
	ID           string     `json:"id"`
	Namespace    string     `json:"namespace"`
	FlowID       string     `json:"flow_id"`
	FlowRevision int        `json:"flow_revision"`
	State        string     `json:"state"`
	TriggerID    *string    `json:"trigger_id,omitempty"`
	ScheduleDate *time.Time `json:"schedule_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
