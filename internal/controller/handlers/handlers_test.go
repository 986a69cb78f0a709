package handlers

import (
	"context"
	"database/sql"
	"time"

	"flowplane/internal/flow"
	"flowplane/internal/store"
)

// Mock Store
type mockStore struct {
	pingErr error

	// Trigger Hooks
	listTriggerStatesResp []store.TriggerState
	listTriggerStatesErr  error
	setTriggerDisabledErr error

	// Flow Hooks
	getFlowResp   *store.FlowRecord
	getFlowErr    error
	saveFlowErr   error
	listFlowsResp []store.FlowRecord
	listFlowsErr  error

	// Execution Hooks
	getExecutionResp *store.ExecutionRecord
	getExecutionErr  error

	// Spies (to verify arguments passed by handlers)
	capturedTenant   string
	capturedLimit    int
	capturedOffset   int
	capturedDisabled bool
	savedFlow        *store.FlowRecord
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *mockStore) SaveTriggerState(ctx context.Context, tx store.DBTransaction, state *store.TriggerState) error {
	return nil
}

func (m *mockStore) GetTriggerState(ctx context.Context, tenantID, namespace, flowID, triggerID string) (*store.TriggerState, error) {
	return nil, sql.ErrNoRows
}

func (m *mockStore) ListTriggerStates(ctx context.Context, tenantID string, limit, offset int) ([]store.TriggerState, error) {
	m.capturedTenant = tenantID
	m.capturedLimit = limit
	m.capturedOffset = offset
	return m.listTriggerStatesResp, m.listTriggerStatesErr
}

func (m *mockStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]store.TriggerState, error) {
	return nil, nil // Driven by the scheduler, not the API
}

func (m *mockStore) ReleaseTrigger(ctx context.Context, tenantID, namespace, flowID, triggerID string) error {
	return nil
}

func (m *mockStore) SetTriggerDisabled(ctx context.Context, tenantID, namespace, flowID, triggerID string, disabled bool) error {
	m.capturedTenant = tenantID
	m.capturedDisabled = disabled
	return m.setTriggerDisabledErr
}

func (m *mockStore) SaveFlow(ctx context.Context, tx store.DBTransaction, record *store.FlowRecord) error {
	m.savedFlow = record
	return m.saveFlowErr
}

func (m *mockStore) GetFlow(ctx context.Context, tenantID, namespace, flowID string, revision *int) (*store.FlowRecord, error) {
	return m.getFlowResp, m.getFlowErr
}

func (m *mockStore) ListFlows(ctx context.Context, tenantID string, limit, offset int) ([]store.FlowRecord, error) {
	m.capturedTenant = tenantID
	return m.listFlowsResp, m.listFlowsErr
}

func (m *mockStore) CreateExecution(ctx context.Context, tx store.DBTransaction, record *store.ExecutionRecord) error {
	return nil
}

func (m *mockStore) GetExecutionByID(ctx context.Context, id string) (*store.ExecutionRecord, error) {
	return m.getExecutionResp, m.getExecutionErr
}

func (m *mockStore) UpdateExecutionState(ctx context.Context, tx store.DBTransaction, id, state string, payload []byte) error {
	return nil
}

func (m *mockStore) CountExecutions(ctx context.Context, tenantID, namespace, flowID, triggerID string) (int64, error) {
	return 0, nil
}

// Mock SchedulerControl
type mockControl struct {
	createBackfillResp *store.TriggerState
	createBackfillErr  error
	setPausedResp      *store.TriggerState
	setPausedErr       error
	deleteBackfillResp *store.TriggerState
	deleteBackfillErr  error
	syncFlowsErr       error

	capturedStart  time.Time
	capturedEnd    time.Time
	capturedPaused bool
	syncCalls      int
}

func (m *mockControl) CreateBackfill(ctx context.Context, tenantID, namespace, flowID, triggerID string, start, end time.Time, labels []flow.Label, inputs map[string]any) (*store.TriggerState, error) {
	m.capturedStart = start
	m.capturedEnd = end
	return m.createBackfillResp, m.createBackfillErr
}

func (m *mockControl) SetBackfillPaused(ctx context.Context, tenantID, namespace, flowID, triggerID string, paused bool) (*store.TriggerState, error) {
	m.capturedPaused = paused
	return m.setPausedResp, m.setPausedErr
}

func (m *mockControl) DeleteBackfill(ctx context.Context, tenantID, namespace, flowID, triggerID string) (*store.TriggerState, error) {
	return m.deleteBackfillResp, m.deleteBackfillErr
}

func (m *mockControl) SyncFlows(ctx context.Context, tenantID string) error {
	m.syncCalls++
	return m.syncFlowsErr
}
