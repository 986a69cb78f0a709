package runner

import (
	"fmt"

	"flowplane/internal/flow"
)

// Output keys written on the parent task run of a fan-out task.
const (
	OutputIterations            = "iterations"
	OutputNumberOfBatches       = "numberOfBatches"
	OutputSubflowOutputsBaseURI = "subflowOutputsBaseUri"
)

// GuessState collapses a single child execution's state into the parent
// task state. Failures can be downgraded to WARNING with allowedFailure,
// and warnings further to SUCCESS with allowWarning.
func GuessState(execution flow.Execution, transmitFailed, allowedFailure, allowWarning bool) flow.StateType {
	current := execution.State.Current
	if !transmitFailed {
		return flow.StateSuccess
	}

	switch {
	case current.IsFailed(), current.IsPaused(), current == flow.StateKilled, current == flow.StateWarning:
		final := current
		if allowedFailure && current.IsFailed() {
			final = flow.StateWarning
		}
		if final == flow.StateWarning && allowWarning {
			return flow.StateSuccess
		}
		return final
	default:
		return flow.StateSuccess
	}
}

// AggregateIterations folds one child terminal event into the fan-out
// parent's per-state counters, and collapses the parent to a terminal
// state once every batch has finished.
//
// Each batch occupies exactly one counter slot at any time: the incoming
// state is incremented and the state it left is decremented. A state seen
// for the first time on the decrement side defaults to numberOfBatches,
// which encodes the implicit initial occupancy of the starting state.
//
// Redelivery of the same (child, state) event without an intervening
// transition must be filtered by the caller's dedup layer.
func AggregateIterations(
	storage Storage,
	incoming flow.TaskRun,
	currentExecution flow.Execution,
	transmitFailed, allowFailure, allowWarning bool,
) (flow.TaskRun, error) {
	previous, ok := currentExecution.FindTaskRunByID(incoming.ID)
	if !ok {
		return flow.TaskRun{}, fmt.Errorf("missing parent task run %s in execution %s", incoming.ID, currentExecution.ID)
	}

	numberOfBatches, err := intOutput(previous.Outputs, OutputNumberOfBatches)
	if err != nil {
		return flow.TaskRun{}, fmt.Errorf("parent task run %s: %w", previous.ID, err)
	}

	iterations := map[string]int{}
	if raw, ok := previous.Outputs[OutputIterations]; ok {
		iterations, err = intMap(raw)
		if err != nil {
			return flow.TaskRun{}, fmt.Errorf("parent task run %s: %w", previous.ID, err)
		}
	}

	currentState := incoming.State.Current
	iterations[string(currentState)]++

	if previousState, ok := incoming.State.PreviousState(); ok && previousState != currentState {
		count, seen := iterations[string(previousState)]
		if !seen {
			count = numberOfBatches
		}
		iterations[string(previousState)] = count - 1
	}

	terminated := 0
	for _, state := range flow.TerminalStates {
		terminated += iterations[string(state)]
	}

	if terminated == numberOfBatches {
		state := flow.StateSuccess
		if transmitFailed {
			state = findTerminalState(iterations, allowFailure, allowWarning)
		}

		outputs := map[string]any{
			OutputIterations:      iterations,
			OutputNumberOfBatches: numberOfBatches,
		}
		if storage != nil {
			if base := storage.ContextBaseURI(); base != nil {
				outputs[OutputSubflowOutputsBaseURI] = base.Path
			}
		}

		done := previous
		done.Iteration = incoming.Iteration
		done = done.WithOutputs(outputs)
		done = done.WithAttempt(flow.Attempt{State: flow.NewStateAt(state, incoming.State.Histories[len(incoming.State.Histories)-1].Date)})
		return done.WithState(state)
	}

	// still converging, only the counters move
	progressing := previous
	progressing.Iteration = incoming.Iteration
	return progressing.WithOutputs(map[string]any{
		OutputIterations:      iterations,
		OutputNumberOfBatches: numberOfBatches,
	}), nil
}

// findTerminalState ranks the aggregated outcome: FAILED wins over
// KILLED, which wins over WARNING, which wins over SUCCESS. allowFailure
// downgrades FAILED to WARNING and allowWarning downgrades WARNING to
// SUCCESS.
func findTerminalState(iterations map[string]int, allowFailure, allowWarning bool) flow.StateType {
	if iterations[string(flow.StateFailed)] > 0 {
		if !allowFailure {
			return flow.StateFailed
		}
		if allowWarning {
			return flow.StateSuccess
		}
		return flow.StateWarning
	}
	if iterations[string(flow.StateKilled)] > 0 {
		return flow.StateKilled
	}
	if iterations[string(flow.StateWarning)] > 0 {
		if allowWarning {
			return flow.StateSuccess
		}
		return flow.StateWarning
	}
	return flow.StateSuccess
}

// intOutput reads an integer that may have round-tripped through JSON.
func intOutput(outputs map[string]any, key string) (int, error) {
	raw, ok := outputs[key]
	if !ok {
		return 0, fmt.Errorf("missing output %q", key)
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("output %q has unexpected type %T", key, raw)
	}
}

func intMap(raw any) (map[string]int, error) {
	switch v := raw.(type) {
	case map[string]int:
		out := make(map[string]int, len(v))
		for k, n := range v {
			out[k] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]int, len(v))
		for k := range v {
			i, err := intOutput(v, k)
			if err != nil {
				return nil, err
			}
			out[k] = i
		}
		return out, nil
	default:
		return nil, fmt.Errorf("output %q has unexpected type %T", OutputIterations, raw)
	}
}
