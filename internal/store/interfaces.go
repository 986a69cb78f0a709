package store

import (
	"context"
	"database/sql"
	"time"
)

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx
// This allows us to pass either a connection pool or an active transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// TriggerStore persists schedule trigger evaluation state.
// ClaimDue must use SELECT ... FOR UPDATE SKIP LOCKED semantics so that
// concurrent scheduler instances never evaluate the same trigger twice.
type TriggerStore interface {
	// SaveTriggerState upserts the state and releases any claim on it.
	SaveTriggerState(ctx context.Context, tx DBTransaction, state *TriggerState) error

	// GetTriggerState returns the state for one trigger, or sql.ErrNoRows.
	GetTriggerState(ctx context.Context, tenantID, namespace, flowID, triggerID string) (*TriggerState, error)

	// ListTriggerStates returns all trigger states for a tenant.
	ListTriggerStates(ctx context.Context, tenantID string, limit, offset int) ([]TriggerState, error)

	// ClaimDue atomically claims up to 'limit' enabled triggers whose next
	// date is at or before now. Claimed triggers become invisible to other
	// schedulers until released or until the claim expires.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]TriggerState, error)

	// ReleaseTrigger drops the claim without changing the next date, used
	// when an evaluation is abandoned.
	ReleaseTrigger(ctx context.Context, tenantID, namespace, flowID, triggerID string) error

	// SetTriggerDisabled flips the disabled flag, e.g. for stopAfter.
	SetTriggerDisabled(ctx context.Context, tenantID, namespace, flowID, triggerID string, disabled bool) error
}

// FlowStore persists flow definitions by revision.
type FlowStore interface {
	// SaveFlow inserts a new revision of a flow definition.
	SaveFlow(ctx context.Context, tx DBTransaction, record *FlowRecord) error

	// GetFlow returns one flow. A nil revision means the latest one.
	GetFlow(ctx context.Context, tenantID, namespace, flowID string, revision *int) (*FlowRecord, error)

	// ListFlows returns the latest revision of every flow in a tenant.
	ListFlows(ctx context.Context, tenantID string, limit, offset int) ([]FlowRecord, error)
}

// ExecutionStore persists execution history.
type ExecutionStore interface {
	// CreateExecution inserts the seed state of a new execution.
	CreateExecution(ctx context.Context, tx DBTransaction, record *ExecutionRecord) error

	// GetExecutionByID returns an execution by its ID.
	GetExecutionByID(ctx context.Context, id string) (*ExecutionRecord, error)

	// UpdateExecutionState replaces the state and payload of an execution.
	UpdateExecutionState(ctx context.Context, tx DBTransaction, id, state string, payload []byte) error

	// CountExecutions returns how many executions a trigger has produced,
	// used to enforce stopAfter limits.
	CountExecutions(ctx context.Context, tenantID, namespace, flowID, triggerID string) (int64, error)
}
