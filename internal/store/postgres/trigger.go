package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"flowplane/internal/schedule"
	"flowplane/internal/store"
)

// ClaimTimeout bounds how long an evaluation may hold a claimed trigger
// before other scheduler instances can pick it up again.
const ClaimTimeout = 1 * time.Minute

// SaveTriggerState upserts the trigger state and releases the claim.
func (s *Store) SaveTriggerState(ctx context.Context, tx store.DBTransaction, state *store.TriggerState) error {
	executor := s.getExecutor(tx)

	backfill, err := marshalBackfill(state.Backfill)
	if err != nil {
		return fmt.Errorf("marshal backfill for trigger %s: %w", state.Key(), err)
	}

	query := `
		INSERT INTO trigger_states (tenant_id, namespace, flow_id, trigger_id, next_date, backfill, disabled, updated_at, claimed_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NULL)
		ON CONFLICT (tenant_id, namespace, flow_id, trigger_id)
		DO UPDATE SET next_date = $5, backfill = $6, disabled = $7, updated_at = NOW(), claimed_until = NULL
	`

	_, err = executor.ExecContext(ctx, query,
		state.TenantID, state.Namespace, state.FlowID, state.TriggerID,
		state.NextDate, backfill, state.Disabled,
	)
	return err
}

// GetTriggerState returns the state for one trigger, or sql.ErrNoRows.
func (s *Store) GetTriggerState(ctx context.Context, tenantID, namespace, flowID, triggerID string) (*store.TriggerState, error) {
	query := `
		SELECT tenant_id, namespace, flow_id, trigger_id, next_date, backfill, disabled, updated_at
		FROM trigger_states
		WHERE tenant_id = $1 AND namespace = $2 AND flow_id = $3 AND trigger_id = $4
	`

	return scanTriggerState(s.db.QueryRowContext(ctx, query, tenantID, namespace, flowID, triggerID))
}

// ListTriggerStates returns all trigger states for a tenant.
func (s *Store) ListTriggerStates(ctx context.Context, tenantID string, limit, offset int) ([]store.TriggerState, error) {
	query := `
		SELECT tenant_id, namespace, flow_id, trigger_id, next_date, backfill, disabled, updated_at
		FROM trigger_states
		WHERE tenant_id = $1
		ORDER BY namespace, flow_id, trigger_id
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []store.TriggerState
	for rows.Next() {
		state, err := scanTriggerStateRows(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, *state)
	}

	return states, rows.Err()
}

// ClaimDue claims up to 'limit' due triggers atomically using
// SELECT ... FOR UPDATE SKIP LOCKED, so concurrent schedulers partition
// the due set instead of fighting over it. Returns nil if nothing is due.
func (s *Store) ClaimDue(ctx context.Context, now time.Time, limit int) ([]store.TriggerState, error) {
	if limit <= 0 {
		limit = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	selectQuery := `
		SELECT tenant_id, namespace, flow_id, trigger_id, next_date, backfill, disabled, updated_at
		FROM trigger_states
		WHERE disabled = FALSE
		  AND next_date IS NOT NULL AND next_date <= $1
		  AND (claimed_until IS NULL OR claimed_until <= $1)
		ORDER BY next_date ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $2
	`

	rows, err := tx.QueryContext(ctx, selectQuery, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due triggers query failed: %w", err)
	}
	defer rows.Close()

	var states []store.TriggerState
	for rows.Next() {
		state, err := scanTriggerStateRows(rows)
		if err != nil {
			return nil, fmt.Errorf("claim due triggers scan failed: %w", err)
		}
		states = append(states, *state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim due triggers rows error: %w", err)
	}

	if len(states) == 0 {
		return nil, nil
	}

	claimedUntil := now.Add(ClaimTimeout)
	for _, state := range states {
		_, err = tx.ExecContext(ctx, `
			UPDATE trigger_states
			SET claimed_until = $1
			WHERE tenant_id = $2 AND namespace = $3 AND flow_id = $4 AND trigger_id = $5
		`, claimedUntil, state.TenantID, state.Namespace, state.FlowID, state.TriggerID)
		if err != nil {
			return nil, fmt.Errorf("claim update failed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return states, nil
}

// ReleaseTrigger drops the claim without touching the next date.
func (s *Store) ReleaseTrigger(ctx context.Context, tenantID, namespace, flowID, triggerID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE trigger_states
		SET claimed_until = NULL
		WHERE tenant_id = $1 AND namespace = $2 AND flow_id = $3 AND trigger_id = $4
	`, tenantID, namespace, flowID, triggerID)
	return err
}

// SetTriggerDisabled flips the disabled flag.
func (s *Store) SetTriggerDisabled(ctx context.Context, tenantID, namespace, flowID, triggerID string, disabled bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE trigger_states
		SET disabled = $1, updated_at = NOW()
		WHERE tenant_id = $2 AND namespace = $3 AND flow_id = $4 AND trigger_id = $5
	`, disabled, tenantID, namespace, flowID, triggerID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTriggerState(row *sql.Row) (*store.TriggerState, error) {
	return scanTriggerStateRows(row)
}

func scanTriggerStateRows(row rowScanner) (*store.TriggerState, error) {
	var state store.TriggerState
	var backfill []byte

	err := row.Scan(
		&state.TenantID, &state.Namespace, &state.FlowID, &state.TriggerID,
		&state.NextDate, &backfill, &state.Disabled, &state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(backfill) > 0 {
		var b schedule.Backfill
		if err := json.Unmarshal(backfill, &b); err != nil {
			return nil, fmt.Errorf("unmarshal backfill for trigger %s: %w", state.Key(), err)
		}
		state.Backfill = &b
	}

	return &state, nil
}

func marshalBackfill(b *schedule.Backfill) (any, error) {
	if b == nil {
		// Untyped nil so database/sql passes SQL NULL rather than a nil []byte.
		return nil, nil
	}
	return json.Marshal(b)
}
