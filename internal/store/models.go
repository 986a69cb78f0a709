// Package store contains the database layer for flowplane.
package store

import (
	"encoding/json"
	"strings"
	"time"

	"flowplane/internal/schedule"
)

// TriggerState is the persisted evaluation state of one schedule trigger.
// NextDate is the next planned fire; a nil NextDate means the trigger has
// never been evaluated and the scheduler seeds it on registration.
type TriggerState struct {
	TenantID  string
	Namespace string
	FlowID    string
	TriggerID string
	NextDate  *time.Time
	Backfill  *schedule.Backfill
	Disabled  bool
	UpdatedAt time.Time
}

// Key returns the unique identifier of the trigger across all flows.
func (t TriggerState) Key() string {
	return strings.Join([]string{t.TenantID, t.Namespace, t.FlowID, t.TriggerID}, "_")
}

// FlowRecord is one revision of a flow definition as stored. Definition
// holds the full serialized flow; the scalar columns exist for lookups.
type FlowRecord struct {
	TenantID   string
	Namespace  string
	ID         string
	Revision   int
	Disabled   bool
	Definition json.RawMessage
	CreatedAt  time.Time
}

// ExecutionRecord is one execution row. Payload holds the full serialized
// execution; state and schedule date are lifted out for queries.
type ExecutionRecord struct {
	ID           string
	TenantID     string
	Namespace    string
	FlowID       string
	FlowRevision int
	State        string
	TriggerID    *string
	ScheduleDate *time.Time
	Payload      json.RawMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
