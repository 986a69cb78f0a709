package schedule

import (
	"fmt"
	"log/slog"
	"time"

	"flowplane/internal/flow"
)

// VariableRenderer renders templated strings and maps against a variable
// set. The engine ships a template-based implementation; richer renderers
// can be plugged in by the host.
type VariableRenderer interface {
	Render(expr string, vars map[string]any) (string, error)
	RenderMap(m map[string]any, vars map[string]any) (map[string]any, error)
}

// Condition filters candidate fire times. Conditions are AND-ed in order.
// A false result silently skips the fire; an error aborts the evaluation
// and surfaces a FAILED execution seed.
type Condition interface {
	ID() string
	Evaluate(ctx ConditionContext) (bool, error)
}

// ConditionContext carries everything a condition may inspect: the target
// flow, the variables of the candidate window and a renderer.
type ConditionContext struct {
	Flow      *flow.Flow
	Variables map[string]any
	Renderer  VariableRenderer
	Logger    *slog.Logger
}

// WithVariables returns a copy of the context with extra variables merged
// in. The receiver is not modified.
func (c ConditionContext) WithVariables(vars map[string]any) ConditionContext {
	merged := make(map[string]any, len(c.Variables)+len(vars))
	for k, v := range c.Variables {
		merged[k] = v
	}
	for k, v := range vars {
		merged[k] = v
	}
	c.Variables = merged
	return c
}

func (c ConditionContext) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// scheduleDate extracts the candidate fire date injected by the trigger.
func (c ConditionContext) scheduleDate() (time.Time, error) {
	vars, ok := c.Variables["schedule"].(map[string]any)
	if !ok {
		return time.Time{}, fmt.Errorf("no schedule variables in condition context")
	}
	date, ok := vars["date"].(time.Time)
	if !ok {
		return time.Time{}, fmt.Errorf("no schedule date in condition context")
	}
	return date, nil
}

// evaluateConditions ANDs the conditions in order, stopping at the first
// false or error.
func evaluateConditions(conditions []Condition, ctx ConditionContext) (bool, error) {
	for _, cond := range conditions {
		ok, err := cond.Evaluate(ctx)
		if err != nil {
			return false, fmt.Errorf("condition %q: %w", cond.ID(), err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
