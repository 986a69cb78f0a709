package postgres

import (
	"context"

	"flowplane/internal/store"
)

// SaveFlow inserts a new revision of a flow definition.
func (s *Store) SaveFlow(ctx context.Context, tx store.DBTransaction, record *store.FlowRecord) error {
	executor := s.getExecutor(tx)

	query := `
		INSERT INTO flows (tenant_id, namespace, id, revision, disabled, definition, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	_, err := executor.ExecContext(ctx, query,
		record.TenantID, record.Namespace, record.ID,
		record.Revision, record.Disabled, record.Definition,
	)
	return err
}

// GetFlow returns one flow revision, or the latest when revision is nil.
func (s *Store) GetFlow(ctx context.Context, tenantID, namespace, flowID string, revision *int) (*store.FlowRecord, error) {
	query := `
		SELECT tenant_id, namespace, id, revision, disabled, definition, created_at
		FROM flows
		WHERE tenant_id = $1 AND namespace = $2 AND id = $3
	`
	args := []interface{}{tenantID, namespace, flowID}

	if revision != nil {
		query += " AND revision = $4"
		args = append(args, *revision)
	} else {
		query += " ORDER BY revision DESC LIMIT 1"
	}

	var record store.FlowRecord
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&record.TenantID, &record.Namespace, &record.ID,
		&record.Revision, &record.Disabled, &record.Definition, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// ListFlows returns the latest revision of every flow in a tenant.
func (s *Store) ListFlows(ctx context.Context, tenantID string, limit, offset int) ([]store.FlowRecord, error) {
	query := `
		SELECT DISTINCT ON (namespace, id) tenant_id, namespace, id, revision, disabled, definition, created_at
		FROM flows
		WHERE tenant_id = $1
		ORDER BY namespace, id, revision DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []store.FlowRecord
	for rows.Next() {
		var record store.FlowRecord
		if err := rows.Scan(
			&record.TenantID, &record.Namespace, &record.ID,
			&record.Revision, &record.Disabled, &record.Definition, &record.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}
