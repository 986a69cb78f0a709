// Package cron parses cron expressions and computes fire times.
//
// Expressions use the standard 5-field Unix form (minute, hour, day of
// month, month, day of week), optionally extended with a leading seconds
// field. The nicknames @yearly, @annually, @monthly, @weekly, @daily,
// @midnight and @hourly are accepted. Day of week accepts both 0 and 7 as
// Sunday.
package cron

import (
	"fmt"
	"strings"
	"time"

	robfig "github.com/robfig/cron/v3"
)

// lookbackHorizon bounds the backward search for the previous fire. Every
// valid expression fires at least once per four years (February 29 being
// the sparsest pattern), so five years of lookback always suffices.
const lookbackHorizon = 5 * 366 * 24 * time.Hour

var (
	parser = robfig.NewParser(
		robfig.Minute | robfig.Hour | robfig.Dom | robfig.Month | robfig.Dow | robfig.Descriptor,
	)
	parserWithSeconds = robfig.NewParser(
		robfig.Second | robfig.Minute | robfig.Hour | robfig.Dom | robfig.Month | robfig.Dow | robfig.Descriptor,
	)
)

// InvalidExpressionError reports a cron expression that failed to parse.
type InvalidExpressionError struct {
	Expression string
	Err        error
}

func (e *InvalidExpressionError) Error() string {
	return fmt.Sprintf("invalid cron expression %q: %v", e.Expression, e.Err)
}

func (e *InvalidExpressionError) Unwrap() error { return e.Err }

// Evaluator computes next and previous fire times for one parsed
// expression in one timezone. It is immutable and safe for concurrent use.
type Evaluator struct {
	schedule robfig.Schedule
	loc      *time.Location
}

// Parse compiles the expression. With withSeconds a leading seconds field
// is expected. loc is the evaluation timezone; nil means the system zone.
func Parse(expression string, withSeconds bool, loc *time.Location) (*Evaluator, error) {
	if loc == nil {
		loc = time.Local
	}

	normalized, err := normalize(expression, withSeconds)
	if err != nil {
		return nil, &InvalidExpressionError{Expression: expression, Err: err}
	}

	p := parser
	if withSeconds {
		p = parserWithSeconds
	}

	schedule, err := p.Parse(normalized)
	if err != nil {
		return nil, &InvalidExpressionError{Expression: expression, Err: err}
	}

	return &Evaluator{schedule: schedule, loc: loc}, nil
}

// Location returns the evaluation timezone.
func (e *Evaluator) Location() *time.Location { return e.loc }

// NextAfter returns the smallest fire instant strictly greater than t,
// expressed in the evaluator's timezone. It returns false when no fire
// exists within the search horizon.
func (e *Evaluator) NextAfter(t time.Time) (time.Time, bool) {
	next := e.schedule.Next(t.In(e.loc))
	if next.IsZero() {
		return time.Time{}, false
	}
	return next.Truncate(time.Second).In(e.loc), true
}

// LastBefore returns the largest fire instant strictly smaller than t,
// expressed in the evaluator's timezone. It returns false when no fire
// exists within the lookback horizon.
//
// The underlying schedule only computes forward, so the previous fire is
// found by a binary search on the cursor: for every instant u the set
// {u : NextAfter(u) < t} is a half line ending right before the fire we
// are looking for.
func (e *Evaluator) LastBefore(t time.Time) (time.Time, bool) {
	target := t.In(e.loc).Truncate(time.Second)

	lo := target.Add(-lookbackHorizon)
	if next, ok := e.NextAfter(lo); !ok || !next.Before(target) {
		return time.Time{}, false
	}

	hi := target
	for hi.Sub(lo) > time.Second {
		mid := lo.Add(hi.Sub(lo) / 2).Truncate(time.Second)
		if !mid.After(lo) {
			break
		}
		if next, ok := e.NextAfter(mid); ok && next.Before(target) {
			lo = mid
		} else {
			hi = mid
		}
	}

	last, ok := e.NextAfter(lo)
	if !ok || !last.Before(target) {
		return time.Time{}, false
	}
	return last, true
}

// normalize rewrites day-of-week 7 to 0 so both forms of Sunday are
// accepted, and validates the field arity.
func normalize(expression string, withSeconds bool) (string, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return "", fmt.Errorf("empty expression")
	}
	if strings.HasPrefix(expression, "@") {
		return expression, nil
	}

	fields := strings.Fields(expression)
	want := 5
	if withSeconds {
		want = 6
	}
	if len(fields) != want {
		return "", fmt.Errorf("expected %d fields, found %d", want, len(fields))
	}

	dow, err := normalizeDayOfWeek(fields[want-1])
	if err != nil {
		return "", err
	}
	fields[want-1] = dow

	return strings.Join(fields, " "), nil
}

// normalizeDayOfWeek maps 7 to 0 in single values and range bounds. A
// range ending on 7 wraps, so "5-7" becomes "5-6,0".
func normalizeDayOfWeek(field string) (string, error) {
	parts := strings.Split(field, ",")
	out := make([]string, 0, len(parts))

	for _, part := range parts {
		expr, step, _ := strings.Cut(part, "/")

		switch {
		case expr == "7":
			expr = "0"
		case strings.Contains(expr, "-"):
			from, to, _ := strings.Cut(expr, "-")
			if from == "7" {
				from = "0"
			}
			if to == "7" {
				if step != "" {
					return "", fmt.Errorf("day-of-week range %q: step not supported with Sunday as 7", part)
				}
				if from == "0" {
					expr = "0"
					break
				}
				out = append(out, from+"-6")
				expr = "0"
			} else {
				expr = from + "-" + to
			}
		}

		if step != "" {
			expr += "/" + step
		}
		out = append(out, expr)
	}

	return strings.Join(out, ","), nil
}
