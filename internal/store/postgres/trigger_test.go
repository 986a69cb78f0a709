package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"flowplane/internal/schedule"
	"flowplane/internal/store"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &Store{db: db}, mock
}

func TestSaveTriggerState_Upsert(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()
	nextDate := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	state := &store.TriggerState{
		TenantID:  "tenant",
		Namespace: "company.team",
		FlowID:    "daily-report",
		TriggerID: "schedule",
		NextDate:  &nextDate,
	}

	mock.ExpectExec(`INSERT INTO trigger_states .* ON CONFLICT`).
		WithArgs("tenant", "company.team", "daily-report", "schedule", nextDate, nil, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store_.SaveTriggerState(ctx, nil, state); err != nil {
		t.Fatalf("SaveTriggerState failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSaveTriggerState_WithBackfill(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	backfill, err := schedule.NewBackfill(start, start.AddDate(0, 1, 0), nil, nil)
	if err != nil {
		t.Fatalf("NewBackfill: %v", err)
	}
	state := &store.TriggerState{
		TenantID:  "tenant",
		Namespace: "company.team",
		FlowID:    "daily-report",
		TriggerID: "schedule",
		NextDate:  &start,
		Backfill:  backfill,
	}

	mock.ExpectExec(`INSERT INTO trigger_states .* ON CONFLICT`).
		WithArgs("tenant", "company.team", "daily-report", "schedule", start, sqlmock.AnyArg(), false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store_.SaveTriggerState(ctx, nil, state); err != nil {
		t.Fatalf("SaveTriggerState failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetTriggerState_Success(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()
	nextDate := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	backfillJSON := []byte(`{"start":"2024-01-01T00:00:00Z","end":"2024-02-01T00:00:00Z","currentDate":"2024-01-05T00:00:00Z","paused":false}`)

	mock.ExpectQuery(`SELECT .* FROM trigger_states`).
		WithArgs("tenant", "company.team", "daily-report", "schedule").
		WillReturnRows(sqlmock.NewRows([]string{
			"tenant_id", "namespace", "flow_id", "trigger_id", "next_date", "backfill", "disabled", "updated_at",
		}).AddRow(
			"tenant", "company.team", "daily-report", "schedule", nextDate, backfillJSON, false, time.Now(),
		))

	state, err := store_.GetTriggerState(ctx, "tenant", "company.team", "daily-report", "schedule")
	if err != nil {
		t.Fatalf("GetTriggerState failed: %v", err)
	}

	if state.NextDate == nil || !state.NextDate.Equal(nextDate) {
		t.Errorf("got NextDate %v, want %v", state.NextDate, nextDate)
	}
	if state.Backfill == nil {
		t.Fatal("expected backfill to be decoded")
	}
	if !state.Backfill.CurrentDate.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("got backfill current date %v", state.Backfill.CurrentDate)
	}
	if state.Key() != "tenant_company.team_daily-report_schedule" {
		t.Errorf("got key %q", state.Key())
	}
}

func TestGetTriggerState_NotFound(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()

	mock.ExpectQuery(`SELECT .* FROM trigger_states`).
		WithArgs("tenant", "ns", "flow", "schedule").
		WillReturnError(sql.ErrNoRows)

	_, err := store_.GetTriggerState(ctx, "tenant", "ns", "flow", "schedule")
	if err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestClaimDue_Success(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 5, 0, time.UTC)
	due := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()

	// SELECT ... FOR UPDATE SKIP LOCKED
	mock.ExpectQuery(`SELECT .* FROM trigger_states .* FOR UPDATE SKIP LOCKED`).
		WithArgs(now, 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"tenant_id", "namespace", "flow_id", "trigger_id", "next_date", "backfill", "disabled", "updated_at",
		}).
			AddRow("tenant", "ns", "flow-a", "schedule", due, nil, false, time.Now()).
			AddRow("tenant", "ns", "flow-b", "schedule", due, nil, false, time.Now()))

	mock.ExpectExec(`UPDATE trigger_states`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE trigger_states`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	states, err := store_.ClaimDue(ctx, now, 10)
	if err != nil {
		t.Fatalf("ClaimDue failed: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected 2 claimed triggers, got %d", len(states))
	}
	if states[0].FlowID != "flow-a" || states[1].FlowID != "flow-b" {
		t.Errorf("unexpected claim order: %v", states)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestClaimDue_NothingDue(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM trigger_states .* FOR UPDATE SKIP LOCKED`).
		WillReturnRows(sqlmock.NewRows([]string{
			"tenant_id", "namespace", "flow_id", "trigger_id", "next_date", "backfill", "disabled", "updated_at",
		}))
	mock.ExpectRollback()

	states, err := store_.ClaimDue(ctx, time.Now(), 10)
	if err != nil {
		t.Errorf("expected no error for empty due set, got %v", err)
	}
	if len(states) != 0 {
		t.Errorf("expected 0 triggers, got %d", len(states))
	}
}

func TestClaimDue_LimitDefaultsToOne(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM trigger_states .* FOR UPDATE SKIP LOCKED`).
		WithArgs(now, 1).
		WillReturnRows(sqlmock.NewRows([]string{
			"tenant_id", "namespace", "flow_id", "trigger_id", "next_date", "backfill", "disabled", "updated_at",
		}))
	mock.ExpectRollback()

	if _, err := store_.ClaimDue(ctx, now, 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSetTriggerDisabled_NotFound(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()

	mock.ExpectExec(`UPDATE trigger_states`).
		WithArgs(true, "tenant", "ns", "flow", "schedule").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store_.SetTriggerDisabled(ctx, "tenant", "ns", "flow", "schedule", true)
	if err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows for unknown trigger, got %v", err)
	}
}

func TestReleaseTrigger(t *testing.T) {
	store_, mock := newMockStore(t)
	defer store_.db.Close()

	ctx := context.Background()

	mock.ExpectExec(`UPDATE trigger_states`).
		WithArgs("tenant", "ns", "flow", "schedule").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store_.ReleaseTrigger(ctx, "tenant", "ns", "flow", "schedule"); err != nil {
		t.Fatalf("ReleaseTrigger failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
