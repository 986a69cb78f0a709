// Package flow contains the domain model shared by the scheduler and the
// runner: execution states, labels, executions, task runs and flow
// definitions. All values are immutable snapshots; mutating helpers return
// copies.
package flow

import (
	"fmt"
	"time"
)

// StateType is the name of an execution or task-run state.
type StateType string

const (
	StateCreated   StateType = "CREATED"
	StateRunning   StateType = "RUNNING"
	StatePaused    StateType = "PAUSED"
	StateKilled    StateType = "KILLED"
	StateWarning   StateType = "WARNING"
	StateFailed    StateType = "FAILED"
	StateSuccess   StateType = "SUCCESS"
	StateCancelled StateType = "CANCELLED"
)

// TerminalStates lists every state an execution cannot leave.
var TerminalStates = []StateType{StateSuccess, StateFailed, StateKilled, StateWarning, StateCancelled}

// IsTerminal reports whether the state is final.
func (t StateType) IsTerminal() bool {
	switch t {
	case StateSuccess, StateFailed, StateKilled, StateWarning, StateCancelled:
		return true
	}
	return false
}

// IsFailed reports whether the state is FAILED.
func (t StateType) IsFailed() bool { return t == StateFailed }

// IsPaused reports whether the state is PAUSED.
func (t StateType) IsPaused() bool { return t == StatePaused }

// StateHistory is one entry of a state timeline.
type StateHistory struct {
	State StateType `json:"state"`
	Date  time.Time `json:"date"`
}

// State is an ordered state timeline. The current state is the last entry.
type State struct {
	Current   StateType      `json:"current"`
	Histories []StateHistory `json:"histories"`
}

// NewState returns a timeline starting in CREATED.
func NewState() State {
	return NewStateAt(StateCreated, time.Now().UTC())
}

// NewStateAt returns a timeline starting in the given state.
func NewStateAt(t StateType, at time.Time) State {
	return State{
		Current:   t,
		Histories: []StateHistory{{State: t, Date: at}},
	}
}

// WithState appends a transition and returns the new timeline. A terminal
// state can only be followed by another terminal state.
func (s State) WithState(t StateType) (State, error) {
	if s.Current.IsTerminal() && !t.IsTerminal() {
		return s, fmt.Errorf("invalid transition from terminal state %s to %s", s.Current, t)
	}

	histories := make([]StateHistory, len(s.Histories), len(s.Histories)+1)
	copy(histories, s.Histories)
	histories = append(histories, StateHistory{State: t, Date: time.Now().UTC()})

	return State{Current: t, Histories: histories}, nil
}

// PreviousState returns the state before the current one, if any.
func (s State) PreviousState() (StateType, bool) {
	if len(s.Histories) < 2 {
		return "", false
	}
	return s.Histories[len(s.Histories)-2].State, true
}
