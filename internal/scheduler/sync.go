package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"flowplane/internal/flow"
	"flowplane/internal/schedule"
	"flowplane/internal/store"
)

// SyncFlows walks a tenant's flows and registers a trigger state for every
// schedule trigger that has none yet. New triggers are seeded with their
// next fire from now; they never replay the past.
func (s *Scheduler) SyncFlows(ctx context.Context, tenantID string) error {
	const pageSize = 200

	for offset := 0; ; offset += pageSize {
		records, err := s.flows.ListFlows(ctx, tenantID, pageSize, offset)
		if err != nil {
			return fmt.Errorf("list flows for tenant %s: %w", tenantID, err)
		}
		if len(records) == 0 {
			return nil
		}

		for i := range records {
			if err := s.syncFlow(ctx, &records[i]); err != nil {
				s.log.Error("syncing flow failed", "tenant", records[i].TenantID,
					"namespace", records[i].Namespace, "flow", records[i].ID, "error", err)
			}
		}

		if len(records) < pageSize {
			return nil
		}
	}
}

func (s *Scheduler) syncFlow(ctx context.Context, record *store.FlowRecord) error {
	f, schedules, err := DecodeFlow(record)
	if err != nil {
		return err
	}

	for _, sched := range schedules {
		sched.SetClock(s.now)
		if err := sched.Validate(); err != nil {
			s.log.Warn("schedule trigger has an invalid definition, skipped",
				"flow", f.ID, "trigger", sched.ID, "error", err)
			continue
		}

		state, err := s.triggers.GetTriggerState(ctx, f.TenantID, f.Namespace, f.ID, sched.ID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if err := s.seedTrigger(ctx, f, sched); err != nil {
				return err
			}
		case err != nil:
			return err
		case f.Disabled && !state.Disabled:
			if err := s.triggers.SetTriggerDisabled(ctx, f.TenantID, f.Namespace, f.ID, sched.ID, true); err != nil {
				return err
			}
		case !f.Disabled && state.Disabled && len(sched.StopAfter) == 0:
			// re-enabling a flow re-enables its triggers unless stopAfter
			// disabled them on purpose
			if err := s.triggers.SetTriggerDisabled(ctx, f.TenantID, f.Namespace, f.ID, sched.ID, false); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *Scheduler) seedTrigger(ctx context.Context, f *flow.Flow, sched *schedule.Schedule) error {
	condCtx := schedule.ConditionContext{Flow: f, Renderer: s.renderer, Logger: s.log}

	next, err := sched.NextEvaluationDate(condCtx, nil)
	if err != nil {
		return fmt.Errorf("seed trigger %s: %w", sched.ID, err)
	}

	state := store.TriggerState{
		TenantID:  f.TenantID,
		Namespace: f.Namespace,
		FlowID:    f.ID,
		TriggerID: sched.ID,
		Disabled:  f.Disabled,
	}
	if !next.IsZero() {
		state.NextDate = &next
	}

	s.log.Info("schedule trigger registered", "tenant", f.TenantID, "namespace", f.Namespace,
		"flow", f.ID, "trigger", sched.ID, "next", next)
	return s.triggers.SaveTriggerState(ctx, nil, &state)
}

// OnExecutionEnd applies the trigger's stopAfter policy when one of its
// executions reaches a terminal state.
func (s *Scheduler) OnExecutionEnd(ctx context.Context, execution flow.Execution) error {
	if execution.Trigger == nil || execution.Trigger.Type != schedule.TriggerType {
		return nil
	}
	if !execution.State.Current.IsTerminal() {
		return nil
	}

	state := store.TriggerState{
		TenantID:  execution.TenantID,
		Namespace: execution.Namespace,
		FlowID:    execution.FlowID,
		TriggerID: execution.Trigger.ID,
	}

	_, sched, err := s.resolve(ctx, state)
	if err != nil {
		if errors.Is(err, errTriggerGone) {
			return nil
		}
		return err
	}

	for _, stopState := range sched.StopAfter {
		if stopState == execution.State.Current {
			s.log.Info("stopAfter reached, trigger disabled",
				"tenant", state.TenantID, "namespace", state.Namespace,
				"flow", state.FlowID, "trigger", state.TriggerID,
				"state", string(execution.State.Current))
			return s.triggers.SetTriggerDisabled(ctx, state.TenantID, state.Namespace, state.FlowID, state.TriggerID, true)
		}
	}
	return nil
}

// CreateBackfill attaches a backfill to a trigger and rewinds its cursor
// to the first fire inside the range.
func (s *Scheduler) CreateBackfill(ctx context.Context, tenantID, namespace, flowID, triggerID string, start, end time.Time, labels []flow.Label, inputs map[string]any) (*store.TriggerState, error) {
	state, err := s.triggers.GetTriggerState(ctx, tenantID, namespace, flowID, triggerID)
	if err != nil {
		return nil, err
	}
	if state.Backfill != nil && !state.Backfill.Complete() {
		return nil, fmt.Errorf("trigger %s already has a backfill in progress", state.Key())
	}

	backfill, err := schedule.NewBackfill(start, end, labels, inputs)
	if err != nil {
		return nil, err
	}

	_, sched, err := s.resolve(ctx, *state)
	if err != nil {
		return nil, err
	}

	first, ok, err := sched.FireAfter(start.Add(-time.Second))
	if err != nil {
		return nil, err
	}
	if !ok || first.After(end) {
		return nil, fmt.Errorf("schedule has no fire between %s and %s", start, end)
	}
	backfill.CurrentDate = first

	state.Backfill = backfill
	state.NextDate = &first
	if err := s.triggers.SaveTriggerState(ctx, nil, state); err != nil {
		return nil, err
	}
	return state, nil
}

// SetBackfillPaused pauses or resumes a trigger's backfill.
func (s *Scheduler) SetBackfillPaused(ctx context.Context, tenantID, namespace, flowID, triggerID string, paused bool) (*store.TriggerState, error) {
	state, err := s.triggers.GetTriggerState(ctx, tenantID, namespace, flowID, triggerID)
	if err != nil {
		return nil, err
	}
	if state.Backfill == nil {
		return nil, fmt.Errorf("trigger %s has no backfill", state.Key())
	}

	state.Backfill.Paused = paused
	if err := s.triggers.SaveTriggerState(ctx, nil, state); err != nil {
		return nil, err
	}
	return state, nil
}

// DeleteBackfill removes a trigger's backfill and re-anchors the cursor on
// the next live fire.
func (s *Scheduler) DeleteBackfill(ctx context.Context, tenantID, namespace, flowID, triggerID string) (*store.TriggerState, error) {
	state, err := s.triggers.GetTriggerState(ctx, tenantID, namespace, flowID, triggerID)
	if err != nil {
		return nil, err
	}
	if state.Backfill == nil {
		return nil, fmt.Errorf("trigger %s has no backfill", state.Key())
	}

	_, sched, err := s.resolve(ctx, *state)
	if err != nil {
		return nil, err
	}

	state.Backfill = nil
	state.NextDate = nil
	if next, ok, err := sched.FireAfter(s.now()); err != nil {
		return nil, err
	} else if ok {
		state.NextDate = &next
	}

	if err := s.triggers.SaveTriggerState(ctx, nil, state); err != nil {
		return nil, err
	}
	return state, nil
}
