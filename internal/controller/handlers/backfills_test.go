package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flowplane/internal/schedule"
	"flowplane/internal/store"
	"flowplane/pkg/api"
)

func backfillState() *store.TriggerState {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	next := start
	return &store.TriggerState{
		TenantID:  "main",
		Namespace: "company.team",
		FlowID:    "daily-report",
		TriggerID: "schedule",
		NextDate:  &next,
		Backfill: &schedule.Backfill{
			Start:       start,
			End:         end,
			CurrentDate: start,
		},
	}
}

func TestCreateBackfill(t *testing.T) {
	validReq := api.CreateBackfillRequest{
		Namespace: "company.team",
		FlowID:    "daily-report",
		TriggerID: "schedule",
		Start:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	validBody, _ := json.Marshal(validReq)

	tests := []struct {
		name           string
		body           []byte
		mockSetup      func(*mockControl)
		expectedStatus int
		expectedInBody string
	}{
		{
			name: "Success",
			body: validBody,
			mockSetup: func(m *mockControl) {
				m.createBackfillResp = backfillState()
			},
			expectedStatus: http.StatusCreated,
			expectedInBody: "backfill",
		},
		{
			name:           "Invalid JSON",
			body:           []byte(`{invalid-json}`),
			mockSetup:      func(m *mockControl) {},
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "Invalid body",
		},
		{
			name:           "Missing Coordinates",
			body:           []byte(`{"namespace": "company.team"}`),
			mockSetup:      func(m *mockControl) {},
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "required",
		},
		{
			name:           "Missing Window",
			body:           []byte(`{"namespace": "company.team", "flow_id": "daily-report", "trigger_id": "schedule"}`),
			mockSetup:      func(m *mockControl) {},
			expectedStatus: http.StatusBadRequest,
			expectedInBody: "start and end are required",
		},
		{
			name: "Trigger Not Found",
			body: validBody,
			mockSetup: func(m *mockControl) {
				m.createBackfillErr = sql.ErrNoRows
			},
			expectedStatus: http.StatusNotFound,
			expectedInBody: "Trigger not found",
		},
		{
			name: "Rejected By Scheduler",
			body: validBody,
			mockSetup: func(m *mockControl) {
				m.createBackfillErr = errors.New("backfill already in progress")
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedInBody: "already in progress",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			control := &mockControl{}
			tt.mockSetup(control)
			h := New(&mockStore{}, control, "main")

			req := httptest.NewRequest(http.MethodPost, "/backfills", bytes.NewReader(tt.body))
			rr := httptest.NewRecorder()
			h.CreateBackfill(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v",
					rr.Code, tt.expectedStatus)
			}
			if tt.expectedInBody != "" && !strings.Contains(rr.Body.String(), tt.expectedInBody) {
				t.Errorf("handler returned unexpected body: got %v want substring %v",
					rr.Body.String(), tt.expectedInBody)
			}
		})
	}
}

func TestSetBackfillPaused(t *testing.T) {
	tests := []struct {
		name           string
		paused         bool
		mockSetup      func(*mockControl)
		expectedStatus int
	}{
		{
			name:   "Pause Success",
			paused: true,
			mockSetup: func(m *mockControl) {
				m.setPausedResp = backfillState()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Resume Success",
			paused: false,
			mockSetup: func(m *mockControl) {
				m.setPausedResp = backfillState()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Not Found",
			paused: true,
			mockSetup: func(m *mockControl) {
				m.setPausedErr = sql.ErrNoRows
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "No Backfill",
			paused: true,
			mockSetup: func(m *mockControl) {
				m.setPausedErr = errors.New("no backfill in progress")
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			control := &mockControl{}
			tt.mockSetup(control)
			h := New(&mockStore{}, control, "main")

			req := httptest.NewRequest(http.MethodPut, "/backfills/company.team/daily-report/schedule/pause", nil)
			req.SetPathValue("namespace", "company.team")
			req.SetPathValue("flow", "daily-report")
			req.SetPathValue("trigger", "schedule")

			rr := httptest.NewRecorder()
			h.SetBackfillPaused(tt.paused)(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v",
					rr.Code, tt.expectedStatus)
			}
			if rr.Code == http.StatusOK && control.capturedPaused != tt.paused {
				t.Errorf("expected paused=%v to reach the scheduler, got %v", tt.paused, control.capturedPaused)
			}
		})
	}
}

func TestDeleteBackfill(t *testing.T) {
	control := &mockControl{deleteBackfillResp: backfillState()}
	h := New(&mockStore{}, control, "main")

	req := httptest.NewRequest(http.MethodDelete, "/backfills/company.team/daily-report/schedule", nil)
	req.SetPathValue("namespace", "company.team")
	req.SetPathValue("flow", "daily-report")
	req.SetPathValue("trigger", "schedule")

	rr := httptest.NewRecorder()
	h.DeleteBackfill(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
}
