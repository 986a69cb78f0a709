package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"flowplane/internal/cron"
	"flowplane/internal/flow"
)

// TriggerType identifies executions produced by a schedule trigger.
const TriggerType = "schedule"

// conditionSearchYears bounds the forward/backward search for a fire
// accepted by the conditions.
const conditionSearchYears = 10

// RecoverMissedSchedules selects the catch-up policy when the scheduler
// falls behind the persisted last fire date.
type RecoverMissedSchedules string

const (
	// RecoverAll fires every missed occurrence in order.
	RecoverAll RecoverMissedSchedules = "ALL"
	// RecoverLast fires only the most recent missed occurrence.
	RecoverLast RecoverMissedSchedules = "LAST"
	// RecoverNone resets the cursor to now and fires nothing.
	RecoverNone RecoverMissedSchedules = "NONE"
)

// Duration wraps time.Duration so configuration can spell durations as
// strings like "10m".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	case float64:
		*d = Duration(time.Duration(v))
		return nil
	default:
		return fmt.Errorf("invalid duration %v", raw)
	}
}

// Schedule triggers a flow on a cron cadence. The parsed evaluator is
// built once on first use; a Schedule is safe for concurrent evaluation
// afterwards.
type Schedule struct {
	ID                     string                 `json:"id"`
	Cron                   string                 `json:"cron"`
	WithSeconds            bool                   `json:"withSeconds,omitempty"`
	Timezone               string                 `json:"timezone,omitempty"`
	Inputs                 map[string]any         `json:"inputs,omitempty"`
	Labels                 []flow.Label           `json:"labels,omitempty"`
	LateMaximumDelay       Duration               `json:"lateMaximumDelay,omitempty"`
	RecoverMissedSchedules RecoverMissedSchedules `json:"recoverMissedSchedules,omitempty"`
	StopAfter              []flow.StateType       `json:"stopAfter,omitempty"`

	// Conditions filter fire times; decoding from stored definitions is
	// handled by the scheduler's definition codec.
	Conditions []Condition `json:"-"`

	initOnce sync.Once
	eval     *cron.Evaluator
	initErr  error

	// now is swapped in tests.
	now func() time.Time
}

// SetClock overrides the time source so the scheduler and the schedule
// agree on what "now" means.
func (s *Schedule) SetClock(now func() time.Time) {
	s.now = now
}

// Validate parses the cron expression and timezone eagerly so
// configuration errors surface at load time.
func (s *Schedule) Validate() error {
	_, err := s.evaluator()
	return err
}

// RecoverPolicy returns the configured catch-up policy, defaulting to ALL.
func (s *Schedule) RecoverPolicy() RecoverMissedSchedules {
	if s.RecoverMissedSchedules == "" {
		return RecoverAll
	}
	return s.RecoverMissedSchedules
}

// FireAfter returns the first fire strictly after t.
func (s *Schedule) FireAfter(t time.Time) (time.Time, bool, error) {
	eval, err := s.evaluator()
	if err != nil {
		return time.Time{}, false, err
	}
	next, ok := eval.NextAfter(t)
	return next, ok, nil
}

// FireBefore returns the last fire strictly before t.
func (s *Schedule) FireBefore(t time.Time) (time.Time, bool, error) {
	eval, err := s.evaluator()
	if err != nil {
		return time.Time{}, false, err
	}
	prev, ok := eval.LastBefore(t)
	return prev, ok, nil
}

// MissedFires lists the fires strictly after from and not after to,
// oldest first.
func (s *Schedule) MissedFires(from, to time.Time) ([]time.Time, error) {
	eval, err := s.evaluator()
	if err != nil {
		return nil, err
	}

	var missed []time.Time
	cursor := from
	for {
		next, ok := eval.NextAfter(cursor)
		if !ok || next.After(to) {
			return missed, nil
		}
		missed = append(missed, next)
		cursor = next
	}
}

// NextEvaluationDate computes the next wall clock at which the scheduler
// should consider firing. A zero time means the cron is exhausted or every
// remaining fire is skipped by the late-delay policy.
func (s *Schedule) NextEvaluationDate(ctx ConditionContext, last *TriggerContext) (time.Time, error) {
	eval, err := s.evaluator()
	if err != nil {
		return time.Time{}, err
	}

	var backfill *Backfill
	var nextDate time.Time

	if last != nil && (last.Backfill != nil || !last.Date.IsZero()) {
		var lastDate time.Time
		if last.Backfill != nil {
			backfill = last.Backfill
			lastDate = backfill.CurrentDate.In(eval.Location())
		} else {
			lastDate = last.Date.In(eval.Location())
		}

		if len(s.Conditions) > 0 {
			next, err := s.searchWithConditions(eval, ctx, lastDate, true)
			if err != nil {
				ctx.logger().Warn("unable to evaluate conditions for the next evaluation date, conditions skipped",
					"trigger", s.ID, "error", err)
			} else if !next.IsZero() {
				return next.Truncate(time.Second), nil
			}
		}

		if next, ok := eval.NextAfter(lastDate); ok {
			nextDate = next
		}

		// a backfill whose next fire passed its end re-anchors on now
		if backfill != nil && !nextDate.IsZero() && nextDate.After(backfill.End) {
			nextDate = time.Time{}
			if next, ok := eval.NextAfter(s.clock().In(eval.Location())); ok {
				nextDate = next
			}
		}
	} else {
		if next, ok := eval.NextAfter(s.clock().In(eval.Location())); ok {
			nextDate = next
		}
	}

	if s.LateMaximumDelay > 0 && !nextDate.IsZero() && backfill == nil {
		out, ok := s.scheduleDates(eval, nextDate)
		if ok {
			out, ok = s.applyLateDelay(eval, out)
		}
		if !ok {
			return time.Time{}, nil
		}
		nextDate = out.Date
	}

	return nextDate, nil
}

// Evaluate decides whether the trigger fires at triggerCtx.Date and builds
// the execution seed. It returns (nil, nil) for a silent skip, and a
// FAILED seed when condition or variable evaluation errors out, so a
// broken trigger is not retried every tick.
func (s *Schedule) Evaluate(ctx ConditionContext, triggerCtx TriggerContext) (*flow.Execution, error) {
	eval, err := s.evaluator()
	if err != nil {
		return nil, err
	}

	cursor := triggerCtx.Date.In(eval.Location())
	backfill := triggerCtx.Backfill
	if backfill != nil {
		if backfill.Paused {
			return nil, nil
		}
		cursor = backfill.CurrentDate.In(eval.Location())
	}

	out, ok := s.scheduleDates(eval, cursor)
	if !ok {
		return nil, nil
	}

	// should never happen, the scheduler only ticks past-due dates
	if out.Date.After(s.clock().Add(time.Second)) {
		ctx.logger().Debug("schedule date is in the future, execution skipped",
			"trigger", s.ID, "date", out.Date)
		return nil, nil
	}

	executionID := uuid.New().String()
	ctx = ctx.WithVariables(map[string]any{
		"schedule": out.ToMap(),
		"trigger":  out.ToMap(),
	})

	if len(s.Conditions) > 0 {
		accepted, err := evaluateConditions(s.Conditions, ctx)
		if err != nil {
			ctx.logger().Error("unable to evaluate the schedule trigger", "trigger", s.ID, "error", err)
			return s.failedExecution(ctx, triggerCtx, executionID), nil
		}
		if !accepted {
			return nil, nil
		}

		out, err = s.outputWithConditions(eval, ctx, out)
		if err != nil {
			ctx.logger().Error("unable to evaluate the schedule trigger", "trigger", s.ID, "error", err)
			return s.failedExecution(ctx, triggerCtx, executionID), nil
		}
	}

	variables := out.In(eval.Location()).ToMap()

	labels, err := s.generateLabels(ctx, backfill, executionID)
	if err != nil {
		ctx.logger().Error("unable to render labels for the schedule trigger", "trigger", s.ID, "error", err)
		return s.failedExecution(ctx, triggerCtx, executionID), nil
	}

	inputs, err := s.generateInputs(ctx, backfill)
	if err != nil {
		ctx.logger().Error("unable to render inputs for the schedule trigger", "trigger", s.ID, "error", err)
		return s.failedExecution(ctx, triggerCtx, executionID), nil
	}

	execution := s.newExecution(ctx, triggerCtx, executionID, labels, inputs, variables)
	return &execution, nil
}

// scheduleDates computes the (date, next, previous) window anchored at
// cursor. The date is the first fire at or after the cursor.
func (s *Schedule) scheduleDates(eval *cron.Evaluator, cursor time.Time) (Output, bool) {
	date, ok := eval.NextAfter(cursor.Add(-time.Second))
	if !ok {
		return Output{}, false
	}

	out := Output{Date: date}
	if next, ok := eval.NextAfter(date); ok {
		out.Next = next
	}
	if previous, ok := eval.LastBefore(cursor); ok {
		out.Previous = previous
	}
	return out.In(eval.Location()), true
}

// applyLateDelay skips windows whose date is older than now minus the
// configured late maximum delay.
func (s *Schedule) applyLateDelay(eval *cron.Evaluator, out Output) (Output, bool) {
	delay := time.Duration(s.LateMaximumDelay)
	if delay <= 0 {
		return out, true
	}

	horizon := s.clock().Year() + conditionSearchYears
	for out.Date.Add(delay).Before(s.clock()) {
		if out.Next.IsZero() {
			return Output{}, false
		}
		var ok bool
		out, ok = s.scheduleDates(eval, out.Next)
		if !ok || out.Date.Year() > horizon {
			return Output{}, false
		}
	}
	return out, true
}

// searchWithConditions walks fire by fire until the conditions accept one,
// bounded to ten years from now in either direction. A zero result means
// the search exhausted the horizon.
func (s *Schedule) searchWithConditions(eval *cron.Evaluator, ctx ConditionContext, from time.Time, forward bool) (time.Time, error) {
	now := s.clock()
	for {
		if forward && from.Year() >= now.Year()+conditionSearchYears {
			return time.Time{}, nil
		}
		if !forward && from.Year() <= now.Year()-conditionSearchYears {
			return time.Time{}, nil
		}

		var candidate time.Time
		var ok bool
		if forward {
			candidate, ok = eval.NextAfter(from)
		} else {
			candidate, ok = eval.LastBefore(from)
		}
		if !ok {
			return time.Time{}, nil
		}

		out, ok := s.scheduleDates(eval, candidate)
		if !ok {
			return time.Time{}, nil
		}

		candidateCtx := ctx.WithVariables(map[string]any{
			"schedule": out.ToMap(),
			"trigger":  out.ToMap(),
		})
		accepted, err := evaluateConditions(s.Conditions, candidateCtx)
		if err != nil {
			return time.Time{}, err
		}
		if accepted {
			return candidate, nil
		}

		from = candidate
	}
}

// outputWithConditions re-projects previous and next through the condition
// filter so the emitted window only references accepted fires.
func (s *Schedule) outputWithConditions(eval *cron.Evaluator, ctx ConditionContext, out Output) (Output, error) {
	projected := Output{Date: out.Date}

	next, err := s.searchWithConditions(eval, ctx, out.Date, true)
	if err != nil {
		return Output{}, err
	}
	projected.Next = next

	previous, err := s.searchWithConditions(eval, ctx, out.Date, false)
	if err != nil {
		return Output{}, err
	}
	projected.Previous = previous

	return projected, nil
}

func (s *Schedule) generateLabels(ctx ConditionContext, backfill *Backfill, executionID string) ([]flow.Label, error) {
	var labels []flow.Label
	if ctx.Flow != nil {
		labels = append(labels, flow.SystemLabels(ctx.Flow.Labels)...)
	}
	if _, ok := flow.FindLabel(labels, flow.CorrelationIDLabel); !ok {
		labels = append(labels, flow.Label{Key: flow.CorrelationIDLabel, Value: executionID})
	}

	if backfill != nil {
		for _, label := range backfill.Labels {
			value, err := s.render(ctx, label.Value)
			if err != nil {
				return nil, err
			}
			if value != "" {
				labels = append(labels, flow.Label{Key: label.Key, Value: value})
			}
		}
	}

	for _, label := range s.Labels {
		value, err := s.render(ctx, label.Value)
		if err != nil {
			return nil, err
		}
		labels = append(labels, flow.Label{Key: label.Key, Value: value})
	}

	return labels, nil
}

func (s *Schedule) generateInputs(ctx ConditionContext, backfill *Backfill) (map[string]any, error) {
	inputs := map[string]any{}

	if len(s.Inputs) > 0 {
		rendered, err := s.renderMap(ctx, s.Inputs)
		if err != nil {
			return nil, err
		}
		for k, v := range rendered {
			inputs[k] = v
		}
	}

	// backfill inputs override the trigger's
	if backfill != nil && len(backfill.Inputs) > 0 {
		rendered, err := s.renderMap(ctx, backfill.Inputs)
		if err != nil {
			return nil, err
		}
		for k, v := range rendered {
			inputs[k] = v
		}
	}

	return inputs, nil
}

func (s *Schedule) newExecution(ctx ConditionContext, triggerCtx TriggerContext, id string, labels []flow.Label, inputs, variables map[string]any) flow.Execution {
	revision := 0
	if ctx.Flow != nil {
		revision = ctx.Flow.Revision
	}

	return flow.Execution{
		ID:           id,
		TenantID:     triggerCtx.TenantID,
		Namespace:    triggerCtx.Namespace,
		FlowID:       triggerCtx.FlowID,
		FlowRevision: revision,
		Labels:       labels,
		Inputs:       inputs,
		Variables: map[string]any{
			// dual exposure kept for compatibility with older flows
			"schedule": variables,
			"trigger":  variables,
		},
		Trigger: &flow.ExecutionTrigger{
			ID:        s.ID,
			Type:      TriggerType,
			Variables: variables,
		},
		State: flow.NewState(),
	}
}

func (s *Schedule) failedExecution(ctx ConditionContext, triggerCtx TriggerContext, id string) *flow.Execution {
	revision := 0
	if ctx.Flow != nil {
		revision = ctx.Flow.Revision
	}

	// labels are best effort here, render errors already aborted the fire
	var labels []flow.Label
	if ctx.Flow != nil {
		labels = append(labels, flow.SystemLabels(ctx.Flow.Labels)...)
	}

	return &flow.Execution{
		ID:           id,
		TenantID:     triggerCtx.TenantID,
		Namespace:    triggerCtx.Namespace,
		FlowID:       triggerCtx.FlowID,
		FlowRevision: revision,
		Labels:       labels,
		Trigger: &flow.ExecutionTrigger{
			ID:   s.ID,
			Type: TriggerType,
		},
		State: flow.NewStateAt(flow.StateFailed, s.clock()),
	}
}

func (s *Schedule) render(ctx ConditionContext, expr string) (string, error) {
	if ctx.Renderer == nil {
		return expr, nil
	}
	return ctx.Renderer.Render(expr, ctx.Variables)
}

func (s *Schedule) renderMap(ctx ConditionContext, m map[string]any) (map[string]any, error) {
	if ctx.Renderer == nil {
		return m, nil
	}
	return ctx.Renderer.RenderMap(m, ctx.Variables)
}

func (s *Schedule) evaluator() (*cron.Evaluator, error) {
	s.initOnce.Do(func() {
		loc := time.Local
		if s.Timezone != "" {
			var err error
			loc, err = time.LoadLocation(s.Timezone)
			if err != nil {
				s.initErr = fmt.Errorf("invalid timezone %s: %w", strconv.Quote(s.Timezone), err)
				return
			}
		}
		s.eval, s.initErr = cron.Parse(s.Cron, s.WithSeconds, loc)
	})
	return s.eval, s.initErr
}

func (s *Schedule) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
