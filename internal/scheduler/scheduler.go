// Package scheduler runs the evaluation loop for schedule triggers: it
// claims due triggers, evaluates them against their flow, persists the
// produced executions and advances each trigger's next fire date.
package scheduler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"flowplane/internal/flow"
	"flowplane/internal/schedule"
	"flowplane/internal/store"
)

// Config holds configuration for the scheduler loop.
type Config struct {
	Concurrency  int
	PollInterval time.Duration
	MaxBackoff   time.Duration // Maximum backoff when nothing is due (default: 30s)
	BatchSize    int           // Maximum triggers claimed per poll
}

// Scheduler is the evaluation loop. One process may run several; the
// store's claim semantics partition due triggers between them.
type Scheduler struct {
	triggers   store.TriggerStore
	flows      store.FlowStore
	executions store.ExecutionStore
	renderer   schedule.VariableRenderer
	log        *slog.Logger
	config     Config
	done       chan struct{}

	evaluationCounter metric.Int64Counter
	executionCounter  metric.Int64Counter

	// now is swapped in tests.
	now func() time.Time
}

// New creates a scheduler with defaults filled in.
func New(triggers store.TriggerStore, flows store.FlowStore, executions store.ExecutionStore, renderer schedule.VariableRenderer, log *slog.Logger, config Config) *Scheduler {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}

	meter := otel.Meter("scheduler")
	evaluations, _ := meter.Int64Counter("scheduler.trigger.evaluations")
	executions_, _ := meter.Int64Counter("scheduler.executions.created")

	return &Scheduler{
		triggers:          triggers,
		flows:             flows,
		executions:        executions,
		renderer:          renderer,
		log:               log,
		config:            config,
		done:              make(chan struct{}),
		evaluationCounter: evaluations,
		executionCounter:  executions_,
		now:               time.Now,
	}
}

// Run starts the main evaluation loop. It blocks until the context is
// cancelled; in-flight evaluations are allowed to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler starting", "concurrency", s.config.Concurrency, "poll_interval", s.config.PollInterval)

	sem := make(chan struct{}, s.config.Concurrency)
	var wg sync.WaitGroup

	// Channel to signal when a slot becomes available (adaptive polling)
	pollNow := make(chan struct{}, 1)
	currentBackoff := s.config.PollInterval

	triggerPoll := func() {
		select {
		case pollNow <- struct{}{}:
		default:
			// Already a poll pending
		}
	}

	triggerPoll()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("context cancelled, waiting for running evaluations to finish")
			wg.Wait()
			close(s.done)
			return ctx.Err()

		case <-time.After(currentBackoff):
			triggerPoll()

		case <-pollNow:
			availableSlots := s.config.Concurrency - len(sem)
			if availableSlots <= 0 {
				continue
			}

			limit := availableSlots
			if limit > s.config.BatchSize {
				limit = s.config.BatchSize
			}

			states, err := s.triggers.ClaimDue(ctx, s.now(), limit)
			if err != nil {
				s.log.Error("claiming due triggers failed", "error", err)
				continue
			}

			if len(states) == 0 {
				// Nothing due - increase backoff (exponential, capped at MaxBackoff)
				currentBackoff = currentBackoff * 2
				if currentBackoff > s.config.MaxBackoff {
					currentBackoff = s.config.MaxBackoff
				}
				continue
			}

			currentBackoff = s.config.PollInterval

			for _, state := range states {
				sem <- struct{}{}

				wg.Add(1)
				go func(state store.TriggerState) {
					defer wg.Done()
					defer func() {
						<-sem
						triggerPoll()
					}()
					s.process(ctx, state)
				}(state)
			}

			if len(states) < availableSlots {
				triggerPoll()
			}
		}
	}
}

// Done returns a channel that is closed when the scheduler has fully stopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// process evaluates one claimed trigger and persists the outcome.
func (s *Scheduler) process(ctx context.Context, state store.TriggerState) {
	tracer := otel.Tracer("scheduler")
	ctx, span := tracer.Start(ctx, "evaluate_trigger",
		trace.WithAttributes(
			attribute.String("tenant.id", state.TenantID),
			attribute.String("flow.namespace", state.Namespace),
			attribute.String("flow.id", state.FlowID),
			attribute.String("trigger.id", state.TriggerID),
		),
	)
	defer span.End()

	log := s.log.With("tenant", state.TenantID, "namespace", state.Namespace,
		"flow", state.FlowID, "trigger", state.TriggerID)

	s.evaluationCounter.Add(ctx, 1)

	f, sched, err := s.resolve(ctx, state)
	if err != nil {
		if errors.Is(err, errTriggerGone) {
			log.Warn("trigger no longer exists on its flow, disabling")
			if err := s.triggers.SetTriggerDisabled(ctx, state.TenantID, state.Namespace, state.FlowID, state.TriggerID, true); err != nil {
				log.Error("disabling orphaned trigger failed", "error", err)
			}
			return
		}
		span.RecordError(err)
		log.Error("resolving trigger failed, releasing claim", "error", err)
		s.release(ctx, state, log)
		return
	}

	if f.Disabled {
		log.Info("flow is disabled, trigger disabled")
		if err := s.triggers.SetTriggerDisabled(ctx, state.TenantID, state.Namespace, state.FlowID, state.TriggerID, true); err != nil {
			log.Error("disabling trigger failed", "error", err)
		}
		return
	}

	state, skip, err := s.applyRecovery(sched, state)
	if err != nil {
		span.RecordError(err)
		log.Error("missed schedule recovery failed", "error", err)
		s.release(ctx, state, log)
		return
	}
	if skip {
		if err := s.triggers.SaveTriggerState(ctx, nil, &state); err != nil {
			log.Error("saving recovered trigger state failed", "error", err)
		}
		return
	}

	condCtx := schedule.ConditionContext{
		Flow:     f,
		Renderer: s.renderer,
		Logger:   log,
	}
	triggerCtx := schedule.TriggerContext{
		TenantID:  state.TenantID,
		Namespace: state.Namespace,
		FlowID:    state.FlowID,
		TriggerID: state.TriggerID,
		Backfill:  state.Backfill,
	}
	if state.NextDate != nil {
		triggerCtx.Date = *state.NextDate
	}

	execution, err := sched.Evaluate(condCtx, triggerCtx)
	if err != nil {
		// only a broken trigger definition ends up here
		span.RecordError(err)
		log.Error("trigger definition is invalid, disabling", "error", err)
		if err := s.triggers.SetTriggerDisabled(ctx, state.TenantID, state.Namespace, state.FlowID, state.TriggerID, true); err != nil {
			log.Error("disabling trigger failed", "error", err)
		}
		return
	}

	if execution != nil {
		if err := s.persistExecution(ctx, state, execution); err != nil {
			span.RecordError(err)
			log.Error("persisting execution failed, releasing claim", "error", err)
			s.release(ctx, state, log)
			return
		}
		s.executionCounter.Add(ctx, 1)
		span.SetAttributes(attribute.String("execution.id", execution.ID))
		log.Info("execution created", "execution", execution.ID, "state", string(execution.State.Current))
	}

	if err := s.advance(ctx, condCtx, sched, state); err != nil {
		span.RecordError(err)
		log.Error("advancing trigger state failed", "error", err)
		s.release(ctx, state, log)
	}
}

var errTriggerGone = errors.New("trigger gone")

// resolve loads the flow behind a trigger state and finds the schedule
// trigger on it.
func (s *Scheduler) resolve(ctx context.Context, state store.TriggerState) (*flow.Flow, *schedule.Schedule, error) {
	record, err := s.flows.GetFlow(ctx, state.TenantID, state.Namespace, state.FlowID, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, errTriggerGone
		}
		return nil, nil, fmt.Errorf("load flow: %w", err)
	}

	f, schedules, err := DecodeFlow(record)
	if err != nil {
		return nil, nil, err
	}

	for _, sched := range schedules {
		if sched.ID == state.TriggerID {
			sched.SetClock(s.now)
			return f, sched, nil
		}
	}
	return nil, nil, errTriggerGone
}

// applyRecovery implements the missed-schedule policy when the persisted
// next date has fallen behind. ALL leaves the cursor alone so the loop
// replays every missed fire in order. LAST jumps the cursor to the most
// recent missed fire. NONE skips everything missed and reports skip=true
// so the tick only re-seeds the cursor.
func (s *Scheduler) applyRecovery(sched *schedule.Schedule, state store.TriggerState) (store.TriggerState, bool, error) {
	if state.NextDate == nil || state.Backfill != nil {
		return state, false, nil
	}

	now := s.now()
	next, ok, err := sched.FireAfter(*state.NextDate)
	if err != nil {
		return state, false, err
	}
	// behind by less than one full cadence means not missed, just due
	if !ok || !next.Before(now) {
		return state, false, nil
	}

	switch sched.RecoverPolicy() {
	case schedule.RecoverLast:
		last, ok, err := sched.FireBefore(now)
		if err != nil {
			return state, false, err
		}
		if ok && last.After(*state.NextDate) {
			state.NextDate = &last
		}
		return state, false, nil
	case schedule.RecoverNone:
		upcoming, ok, err := sched.FireAfter(now)
		if err != nil {
			return state, false, err
		}
		if ok {
			state.NextDate = &upcoming
		} else {
			state.NextDate = nil
		}
		return state, true, nil
	default:
		return state, false, nil
	}
}

// persistExecution stores the seed produced by an evaluation.
func (s *Scheduler) persistExecution(ctx context.Context, state store.TriggerState, execution *flow.Execution) error {
	payload, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("marshal execution %s: %w", execution.ID, err)
	}

	record := &store.ExecutionRecord{
		ID:           execution.ID,
		TenantID:     execution.TenantID,
		Namespace:    execution.Namespace,
		FlowID:       execution.FlowID,
		FlowRevision: execution.FlowRevision,
		State:        string(execution.State.Current),
		TriggerID:    &state.TriggerID,
		Payload:      payload,
	}
	if date, ok := triggerDate(execution); ok {
		record.ScheduleDate = &date
	}

	return s.executions.CreateExecution(ctx, nil, record)
}

// advance moves the trigger's backfill progress and next fire date, then
// saves the state, which also releases the claim.
func (s *Scheduler) advance(ctx context.Context, condCtx schedule.ConditionContext, sched *schedule.Schedule, state store.TriggerState) error {
	if state.Backfill != nil {
		if state.Backfill.Paused {
			// nothing moves while paused, saving only releases the claim
			return s.triggers.SaveTriggerState(ctx, nil, &state)
		}

		next, ok, err := sched.FireAfter(state.Backfill.CurrentDate)
		if err != nil {
			return err
		}
		if ok && !next.After(state.Backfill.End) {
			if err := state.Backfill.Advance(next); err != nil {
				return err
			}
			state.NextDate = &next
			return s.triggers.SaveTriggerState(ctx, nil, &state)
		}

		// backfill finished, live evaluation resumes from now
		state.Backfill = nil
		state.NextDate = nil
	}

	var last *schedule.TriggerContext
	if state.NextDate != nil {
		last = &schedule.TriggerContext{
			TenantID:  state.TenantID,
			Namespace: state.Namespace,
			FlowID:    state.FlowID,
			TriggerID: state.TriggerID,
			Date:      *state.NextDate,
		}
	}

	next, err := sched.NextEvaluationDate(condCtx, last)
	if err != nil {
		return err
	}

	if next.IsZero() {
		state.NextDate = nil
	} else {
		state.NextDate = &next
	}

	return s.triggers.SaveTriggerState(ctx, nil, &state)
}

func (s *Scheduler) release(ctx context.Context, state store.TriggerState, log *slog.Logger) {
	if err := s.triggers.ReleaseTrigger(ctx, state.TenantID, state.Namespace, state.FlowID, state.TriggerID); err != nil {
		log.Error("releasing trigger claim failed", "error", err)
	}
}

// triggerDate extracts the fire date from an execution's trigger block.
func triggerDate(execution *flow.Execution) (time.Time, bool) {
	if execution.Trigger == nil {
		return time.Time{}, false
	}
	date, ok := execution.Trigger.Variables["date"].(time.Time)
	return date, ok
}
