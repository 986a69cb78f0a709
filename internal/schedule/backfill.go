package schedule

import (
	"fmt"
	"time"

	"flowplane/internal/flow"
)

// Backfill replays historical fires over a date range. CurrentDate tracks
// progress and only advances; once it passes End the backfill is complete
// and live evaluation resumes.
type Backfill struct {
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	CurrentDate time.Time      `json:"currentDate"`
	Paused      bool           `json:"paused"`
	Labels      []flow.Label   `json:"labels,omitempty"`
	Inputs      map[string]any `json:"inputs,omitempty"`
}

// NewBackfill validates the range and starts progress at Start.
func NewBackfill(start, end time.Time, labels []flow.Label, inputs map[string]any) (*Backfill, error) {
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("backfill start and end are required")
	}
	if end.Before(start) {
		return nil, fmt.Errorf("backfill end %s is before start %s", end, start)
	}
	return &Backfill{
		Start:       start,
		End:         end,
		CurrentDate: start,
		Labels:      labels,
		Inputs:      inputs,
	}, nil
}

// Complete reports whether progress has moved past the end of the range.
func (b *Backfill) Complete() bool {
	return b.CurrentDate.After(b.End)
}

// Advance moves progress forward. Backfills never move backwards.
func (b *Backfill) Advance(to time.Time) error {
	if to.Before(b.CurrentDate) {
		return fmt.Errorf("backfill cannot move backwards from %s to %s", b.CurrentDate, to)
	}
	b.CurrentDate = to
	return nil
}

// TriggerContext is the read-only snapshot the scheduler hands to each
// evaluation of a trigger.
type TriggerContext struct {
	TenantID  string    `json:"tenantId"`
	Namespace string    `json:"namespace"`
	FlowID    string    `json:"flowId"`
	TriggerID string    `json:"triggerId"`
	Date      time.Time `json:"date"`
	Backfill  *Backfill `json:"backfill,omitempty"`
}
