package eligibility

import (
	"fmt"
	"time"
)

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// WindowPolicy defines the "one per day" period for the daily limiter.
type WindowPolicy interface {
	// Window returns the period that contains now.
	Window(now time.Time) Window
	// ReopensAt returns when a redemption made at last stops blocking new ones.
	ReopensAt(last, now time.Time) time.Time
	// Name identifies the policy in logs and config.
	Name() string
}

// CalendarDay is the local-midnight policy: one redemption per calendar day in Location.
type CalendarDay struct {
	Location *time.Location
}

func (p CalendarDay) loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// Window returns [local midnight, next local midnight). The exclusive end covers
// 23:59:59.999... and stays correct on DST transition days.
func (p CalendarDay) Window(now time.Time) Window {
	start := StartOfDay(now, p.loc())
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// ReopensAt returns the next local midnight after now.
func (p CalendarDay) ReopensAt(_, now time.Time) time.Time {
	return p.Window(now).End
}

// Name implements WindowPolicy.
func (p CalendarDay) Name() string { return "calendar" }

// Rolling24h blocks for 24 hours after each redemption regardless of the calendar.
type Rolling24h struct{}

// Window returns [now-24h, now], extended by one nanosecond so now itself is inside.
func (Rolling24h) Window(now time.Time) Window {
	return Window{Start: now.Add(-24 * time.Hour), End: now.Add(time.Nanosecond)}
}

// ReopensAt returns last + 24h.
func (Rolling24h) ReopensAt(last, _ time.Time) time.Time {
	return last.Add(24 * time.Hour)
}

// Name implements WindowPolicy.
func (Rolling24h) Name() string { return "rolling" }

// ParsePolicy builds a WindowPolicy from its config name.
func ParsePolicy(name string, loc *time.Location) (WindowPolicy, error) {
	switch name {
	case "", "calendar":
		return CalendarDay{Location: loc}, nil
	case "rolling":
		return Rolling24h{}, nil
	default:
		return nil, fmt.Errorf("unknown day window policy %q", name)
	}
}

// StartOfDay returns local midnight of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
