package scheduler

import (
	"encoding/json"
	"fmt"

	"flowplane/internal/flow"
	"flowplane/internal/schedule"
	"flowplane/internal/store"
)

// Condition type tags as they appear in stored flow definitions.
const (
	conditionTypeDayWeekInMonth = "dayWeekInMonth"
	conditionTypeWeekend        = "weekend"
	conditionTypeDateBetween    = "dateBetween"
)

// flowDefinition is the stored shape of a flow, schedule triggers included.
type flowDefinition struct {
	flow.Flow
	Triggers []triggerDefinition `json:"triggers,omitempty"`
}

type triggerDefinition struct {
	Type string `json:"type"`
	raw  json.RawMessage
}

func (t *triggerDefinition) UnmarshalJSON(b []byte) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	t.Type = head.Type
	t.raw = append(t.raw[:0], b...)
	return nil
}

// DecodeFlow parses a stored flow record into the flow and its schedule
// triggers. Triggers of other types are ignored here; the scheduler only
// owns cron-based ones.
func DecodeFlow(record *store.FlowRecord) (*flow.Flow, []*schedule.Schedule, error) {
	var def flowDefinition
	if err := json.Unmarshal(record.Definition, &def); err != nil {
		return nil, nil, fmt.Errorf("decode flow %s/%s.%s: %w", record.TenantID, record.Namespace, record.ID, err)
	}

	f := def.Flow
	f.TenantID = record.TenantID
	f.Namespace = record.Namespace
	f.ID = record.ID
	f.Revision = record.Revision
	f.Disabled = f.Disabled || record.Disabled

	var schedules []*schedule.Schedule
	for _, trigger := range def.Triggers {
		if trigger.Type != schedule.TriggerType {
			continue
		}
		sched, err := decodeSchedule(trigger.raw)
		if err != nil {
			return nil, nil, fmt.Errorf("flow %s/%s.%s: %w", record.TenantID, record.Namespace, record.ID, err)
		}
		schedules = append(schedules, sched)
	}

	return &f, schedules, nil
}

func decodeSchedule(raw json.RawMessage) (*schedule.Schedule, error) {
	var sched schedule.Schedule
	if err := json.Unmarshal(raw, &sched); err != nil {
		return nil, fmt.Errorf("decode schedule trigger: %w", err)
	}

	var withConditions struct {
		Conditions []json.RawMessage `json:"conditions,omitempty"`
	}
	if err := json.Unmarshal(raw, &withConditions); err != nil {
		return nil, fmt.Errorf("decode schedule trigger %s: %w", sched.ID, err)
	}

	for _, rawCondition := range withConditions.Conditions {
		condition, err := decodeCondition(rawCondition)
		if err != nil {
			return nil, fmt.Errorf("schedule trigger %s: %w", sched.ID, err)
		}
		sched.Conditions = append(sched.Conditions, condition)
	}

	return &sched, nil
}

func decodeCondition(raw json.RawMessage) (schedule.Condition, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode condition: %w", err)
	}

	switch head.Type {
	case conditionTypeDayWeekInMonth:
		var c schedule.DayWeekInMonthCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode dayWeekInMonth condition: %w", err)
		}
		return c, nil
	case conditionTypeWeekend:
		var c schedule.WeekendCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode weekend condition: %w", err)
		}
		return c, nil
	case conditionTypeDateBetween:
		var c schedule.DateBetweenCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode dateBetween condition: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown condition type %q", head.Type)
	}
}
