package flow

// Attempt is one recorded attempt of a task run.
type Attempt struct {
	State State `json:"state"`
}

// TaskRun is one run of one task inside an execution.
type TaskRun struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"executionId"`
	TaskID      string         `json:"taskId"`
	Iteration   *int           `json:"iteration,omitempty"`
	State       State          `json:"state"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	Attempts    []Attempt      `json:"attempts,omitempty"`
}

// WithState appends a state transition and returns the new task run.
func (t TaskRun) WithState(state StateType) (TaskRun, error) {
	s, err := t.State.WithState(state)
	if err != nil {
		return t, err
	}
	t.State = s
	return t, nil
}

// WithAttempt records one more attempt and returns the new task run.
func (t TaskRun) WithAttempt(a Attempt) TaskRun {
	attempts := make([]Attempt, len(t.Attempts), len(t.Attempts)+1)
	copy(attempts, t.Attempts)
	t.Attempts = append(attempts, a)
	return t
}

// WithOutputs replaces the outputs map and returns the new task run.
func (t TaskRun) WithOutputs(outputs map[string]any) TaskRun {
	t.Outputs = outputs
	return t
}
