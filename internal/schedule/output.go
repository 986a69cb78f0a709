// Package schedule implements the cron schedule trigger: the (date,
// previous, next) window computation, condition filtering, late-delay
// skipping and backfills.
package schedule

import "time"

// Output is the window computed for one firing. Date is the fire under
// evaluation; Previous and Next are the adjacent fires, zero when the
// pattern has no fire in that direction.
type Output struct {
	Date     time.Time `json:"date"`
	Next     time.Time `json:"next,omitempty"`
	Previous time.Time `json:"previous,omitempty"`
}

// ToMap exposes the window as trigger variables.
func (o Output) ToMap() map[string]any {
	m := map[string]any{"date": o.Date}
	if !o.Next.IsZero() {
		m["next"] = o.Next
	}
	if !o.Previous.IsZero() {
		m["previous"] = o.Previous
	}
	return m
}

// In rewrites all three dates into the given timezone, preserving the
// instants.
func (o Output) In(loc *time.Location) Output {
	out := Output{Date: o.Date.In(loc)}
	if !o.Next.IsZero() {
		out.Next = o.Next.In(loc)
	}
	if !o.Previous.IsZero() {
		out.Previous = o.Previous.In(loc)
	}
	return out
}
