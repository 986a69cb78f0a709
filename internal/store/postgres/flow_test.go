package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"flowplane/internal/store"
)

func flowColumns() []string {
	return []string{"tenant_id", "namespace", "id", "revision", "disabled", "definition", "created_at"}
}

func TestSaveFlow(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	definition := json.RawMessage(`{"id": "daily-report", "namespace": "company.team", "tasks": []}`)
	record := &store.FlowRecord{
		TenantID:   "tenant",
		Namespace:  "company.team",
		ID:         "daily-report",
		Revision:   2,
		Definition: definition,
	}

	mock.ExpectExec(`INSERT INTO flows`).
		WithArgs("tenant", "company.team", "daily-report", 2, false, []byte(definition)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store_.SaveFlow(context.Background(), nil, record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetFlow_LatestRevision(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(flowColumns()).
		AddRow("tenant", "company.team", "daily-report", 3, false, []byte(`{}`), created)

	mock.ExpectQuery(`SELECT .* FROM flows .* ORDER BY revision DESC LIMIT 1`).
		WithArgs("tenant", "company.team", "daily-report").
		WillReturnRows(rows)

	record, err := store_.GetFlow(context.Background(), "tenant", "company.team", "daily-report", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Revision != 3 {
		t.Errorf("expected revision 3, got %d", record.Revision)
	}
}

func TestGetFlow_PinnedRevision(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(flowColumns()).
		AddRow("tenant", "company.team", "daily-report", 2, true, []byte(`{}`), created)

	mock.ExpectQuery(`SELECT .* FROM flows .* AND revision = \$4`).
		WithArgs("tenant", "company.team", "daily-report", 2).
		WillReturnRows(rows)

	revision := 2
	record, err := store_.GetFlow(context.Background(), "tenant", "company.team", "daily-report", &revision)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Revision != 2 || !record.Disabled {
		t.Errorf("unexpected record: %+v", record)
	}
}

func TestGetFlow_NotFound(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	mock.ExpectQuery(`SELECT .* FROM flows`).
		WithArgs("tenant", "company.team", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store_.GetFlow(context.Background(), "tenant", "company.team", "missing", nil)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListFlows_LatestPerFlow(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(flowColumns()).
		AddRow("tenant", "company.team", "daily-report", 3, false, []byte(`{}`), created).
		AddRow("tenant", "company.team", "weekly-digest", 1, false, []byte(`{}`), created)

	mock.ExpectQuery(`SELECT DISTINCT ON \(namespace, id\)`).
		WithArgs("tenant", 100, 0).
		WillReturnRows(rows)

	records, err := store_.ListFlows(context.Background(), "tenant", 100, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 flows, got %d", len(records))
	}
	if records[1].ID != "weekly-digest" {
		t.Errorf("unexpected second flow: %+v", records[1])
	}
}
