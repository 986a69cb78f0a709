package schedule

import (
	"fmt"
	"time"
)

// WeekPosition selects which occurrence of a weekday within its month.
type WeekPosition string

const (
	WeekPositionFirst  WeekPosition = "FIRST"
	WeekPositionSecond WeekPosition = "SECOND"
	WeekPositionThird  WeekPosition = "THIRD"
	WeekPositionFourth WeekPosition = "FOURTH"
	WeekPositionLast   WeekPosition = "LAST"
)

// DayWeekInMonthCondition accepts fires falling on a given occurrence of a
// weekday within the month, e.g. the first Monday.
type DayWeekInMonthCondition struct {
	ConditionID string       `json:"id"`
	DayOfWeek   time.Weekday `json:"dayOfWeek"`
	DayInMonth  WeekPosition `json:"dayInMonth"`
}

func (c DayWeekInMonthCondition) ID() string { return c.ConditionID }

func (c DayWeekInMonthCondition) Evaluate(ctx ConditionContext) (bool, error) {
	date, err := ctx.scheduleDate()
	if err != nil {
		return false, err
	}
	if date.Weekday() != c.DayOfWeek {
		return false, nil
	}

	occurrence := (date.Day()-1)/7 + 1
	switch c.DayInMonth {
	case WeekPositionFirst:
		return occurrence == 1, nil
	case WeekPositionSecond:
		return occurrence == 2, nil
	case WeekPositionThird:
		return occurrence == 3, nil
	case WeekPositionFourth:
		return occurrence == 4, nil
	case WeekPositionLast:
		return date.AddDate(0, 0, 7).Month() != date.Month(), nil
	default:
		return false, fmt.Errorf("unknown day-in-month position %q", c.DayInMonth)
	}
}

// WeekendCondition accepts fires on Saturday and Sunday.
type WeekendCondition struct {
	ConditionID string `json:"id"`
}

func (c WeekendCondition) ID() string { return c.ConditionID }

func (c WeekendCondition) Evaluate(ctx ConditionContext) (bool, error) {
	date, err := ctx.scheduleDate()
	if err != nil {
		return false, err
	}
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday, nil
}

// DateBetweenCondition accepts fires inside a closed date interval. A zero
// bound is open.
type DateBetweenCondition struct {
	ConditionID string    `json:"id"`
	After       time.Time `json:"after,omitempty"`
	Before      time.Time `json:"before,omitempty"`
}

func (c DateBetweenCondition) ID() string { return c.ConditionID }

func (c DateBetweenCondition) Evaluate(ctx ConditionContext) (bool, error) {
	date, err := ctx.scheduleDate()
	if err != nil {
		return false, err
	}
	if !c.After.IsZero() && date.Before(c.After) {
		return false, nil
	}
	if !c.Before.IsZero() && date.After(c.Before) {
		return false, nil
	}
	return true, nil
}
