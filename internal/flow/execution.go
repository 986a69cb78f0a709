package flow

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionTrigger records which trigger produced an execution.
type ExecutionTrigger struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Variables map[string]any `json:"variables,omitempty"`
}

// Execution is one run of a flow. The engine produces execution seeds and
// returns them; persistence belongs to the surrounding execution store.
type Execution struct {
	ID           string            `json:"id"`
	TenantID     string            `json:"tenantId"`
	Namespace    string            `json:"namespace"`
	FlowID       string            `json:"flowId"`
	FlowRevision int               `json:"flowRevision"`
	Labels       []Label           `json:"labels,omitempty"`
	Inputs       map[string]any    `json:"inputs,omitempty"`
	Variables    map[string]any    `json:"variables,omitempty"`
	Trigger      *ExecutionTrigger `json:"trigger,omitempty"`
	ScheduleDate *time.Time        `json:"scheduleDate,omitempty"`
	State        State             `json:"state"`
	TaskRuns     []TaskRun         `json:"taskRuns,omitempty"`
}

// NewExecution seeds an execution for the given flow in CREATED state.
func NewExecution(f *Flow, labels []Label) Execution {
	return Execution{
		ID:           uuid.New().String(),
		TenantID:     f.TenantID,
		Namespace:    f.Namespace,
		FlowID:       f.ID,
		FlowRevision: f.Revision,
		Labels:       labels,
		State:        NewState(),
	}
}

// FindTaskRunByID returns the task run with the given id, if present.
func (e *Execution) FindTaskRunByID(id string) (TaskRun, bool) {
	for _, tr := range e.TaskRuns {
		if tr.ID == id {
			return tr, true
		}
	}
	return TaskRun{}, false
}
