package runner

import (
	"context"
	"fmt"
	"time"

	"flowplane/internal/flow"
)

// SubflowID addresses the flow an executable task launches. A nil
// revision means the latest one.
type SubflowID struct {
	Namespace string
	FlowID    string
	Revision  *int
}

// ExecutableTask is a task that spawns subflow executions.
type ExecutableTask interface {
	TaskID() string
	TaskType() string
	Subflow() SubflowID
}

// SubflowExecution pairs a child execution seed with its parent task run
// moved to RUNNING. Nothing is persisted here; the executor owns that.
type SubflowExecution struct {
	ParentTaskRun flow.TaskRun
	Execution     flow.Execution
}

// SubflowExecutionResult reports a child execution's terminal state back
// to the parent.
type SubflowExecutionResult struct {
	ExecutionID   string
	State         flow.StateType
	ParentTaskRun flow.TaskRun
}

// NewSubflowExecutionResult records one attempt at the parent task run's
// current state and wraps it for transport.
func NewSubflowExecutionResult(parentTaskRun flow.TaskRun, execution flow.Execution) SubflowExecutionResult {
	return SubflowExecutionResult{
		ExecutionID:   execution.ID,
		State:         parentTaskRun.State.Current,
		ParentTaskRun: parentTaskRun.WithAttempt(flow.Attempt{State: parentTaskRun.State}),
	}
}

// Launcher builds child executions for executable tasks.
type Launcher struct {
	lookup   FlowLookup
	inputs   InputReader
	renderer VariableRenderer
}

// NewLauncher wires the collaborators a launch needs.
func NewLauncher(lookup FlowLookup, inputs InputReader, renderer VariableRenderer) *Launcher {
	return &Launcher{lookup: lookup, inputs: inputs, renderer: renderer}
}

// Launch resolves the target flow and seeds one child execution. System
// labels and the correlation id propagate from the parent; the trigger
// block on the child points back at the parent task. The parent task run
// is returned in RUNNING state.
func (l *Launcher) Launch(
	ctx context.Context,
	parentExecution flow.Execution,
	parentFlow flow.Flow,
	task ExecutableTask,
	parentTaskRun flow.TaskRun,
	inputs map[string]any,
	labels []flow.Label,
	scheduleDate *time.Time,
) (*SubflowExecution, error) {
	subflow := task.Subflow()

	namespace, err := l.render(subflow.Namespace, parentExecution.Variables)
	if err != nil {
		return nil, fmt.Errorf("render subflow namespace: %w", err)
	}
	flowID, err := l.render(subflow.FlowID, parentExecution.Variables)
	if err != nil {
		return nil, fmt.Errorf("render subflow id: %w", err)
	}

	target, err := l.lookup.FindByIDFromTask(
		ctx,
		parentExecution.TenantID,
		namespace,
		flowID,
		subflow.Revision,
		parentExecution.TenantID,
		parentFlow.Namespace,
		parentFlow.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("find flow %s.%s: %w", namespace, flowID, err)
	}
	if target.Disabled {
		return nil, fmt.Errorf("%w: cannot execute %s.%s", ErrFlowDisabled, namespace, flowID)
	}
	if target.Invalid() {
		return nil, fmt.Errorf("%w: cannot execute %s.%s: %s", ErrInvalidFlow, namespace, flowID, target.Error)
	}

	// keep the parent's system labels; mint a correlation id when absent
	newLabels := flow.SystemLabels(parentExecution.Labels)
	if _, ok := flow.FindLabel(newLabels, flow.CorrelationIDLabel); !ok {
		newLabels = append(newLabels, flow.Label{Key: flow.CorrelationIDLabel, Value: parentExecution.ID})
	}
	newLabels = append(newLabels, labels...)

	execution := flow.NewExecution(target, newLabels)

	resolvedInputs, err := l.inputs.ReadExecutionInputs(ctx, target, &execution, inputs)
	if err != nil {
		return nil, fmt.Errorf("read subflow inputs: %w", err)
	}
	execution.Inputs = resolvedInputs

	execution.Trigger = &flow.ExecutionTrigger{
		ID:   task.TaskID(),
		Type: task.TaskType(),
		Variables: map[string]any{
			"executionId":  parentExecution.ID,
			"namespace":    parentFlow.Namespace,
			"flowId":       parentFlow.ID,
			"flowRevision": parentFlow.Revision,
		},
	}
	execution.ScheduleDate = scheduleDate

	running, err := parentTaskRun.WithState(flow.StateRunning)
	if err != nil {
		return nil, fmt.Errorf("move parent task run to RUNNING: %w", err)
	}

	return &SubflowExecution{
		ParentTaskRun: running,
		Execution:     execution,
	}, nil
}

func (l *Launcher) render(expr string, vars map[string]any) (string, error) {
	if l.renderer == nil {
		return expr, nil
	}
	return l.renderer.Render(expr, vars)
}
