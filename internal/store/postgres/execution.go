package postgres

import (
	"context"

	"flowplane/internal/store"
)

// CreateExecution inserts the seed state of a new execution.
func (s *Store) CreateExecution(ctx context.Context, tx store.DBTransaction, record *store.ExecutionRecord) error {
	executor := s.getExecutor(tx)

	query := `
		INSERT INTO executions (id, tenant_id, namespace, flow_id, flow_revision, state, trigger_id, schedule_date, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`

	_, err := executor.ExecContext(ctx, query,
		record.ID, record.TenantID, record.Namespace, record.FlowID,
		record.FlowRevision, record.State, record.TriggerID,
		record.ScheduleDate, record.Payload,
	)
	return err
}

// GetExecutionByID returns an execution by its ID.
func (s *Store) GetExecutionByID(ctx context.Context, id string) (*store.ExecutionRecord, error) {
	query := `
		SELECT id, tenant_id, namespace, flow_id, flow_revision, state, trigger_id, schedule_date, payload, created_at, updated_at
		FROM executions
		WHERE id = $1
	`

	var record store.ExecutionRecord
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID, &record.TenantID, &record.Namespace, &record.FlowID,
		&record.FlowRevision, &record.State, &record.TriggerID,
		&record.ScheduleDate, &record.Payload, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// UpdateExecutionState replaces the state and payload of an execution.
func (s *Store) UpdateExecutionState(ctx context.Context, tx store.DBTransaction, id, state string, payload []byte) error {
	executor := s.getExecutor(tx)

	_, err := executor.ExecContext(ctx, `
		UPDATE executions
		SET state = $1, payload = $2, updated_at = NOW()
		WHERE id = $3
	`, state, payload, id)
	return err
}

// CountExecutions returns how many executions a trigger has produced.
func (s *Store) CountExecutions(ctx context.Context, tenantID, namespace, flowID, triggerID string) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM executions
		WHERE tenant_id = $1 AND namespace = $2 AND flow_id = $3 AND trigger_id = $4
	`

	var count int64
	err := s.db.QueryRowContext(ctx, query, tenantID, namespace, flowID, triggerID).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}
