package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time in the business timezone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// On returns the instant this time of day falls on for the calendar date of day in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, loc)
}

func (t TimeOfDay) IsZero() bool {
	return t.Hour == 0 && t.Minute == 0
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

// Policy holds the booking rules of one deployment. It is immutable once built.
type Policy struct {
	SlotDuration     time.Duration
	WorkdayStart     TimeOfDay
	WorkdayEnd       TimeOfDay
	BreakStart       TimeOfDay
	BreakEnd         TimeOfDay
	MinimumNotice    time.Duration
	ExcludedWeekdays []time.Weekday
	Location         *time.Location
}

// Validate reports the first inconsistency in the policy.
func (p Policy) Validate() error {
	if p.SlotDuration <= 0 {
		return errors.New("slot duration must be positive")
	}
	if p.Location == nil {
		return errors.New("business timezone is required")
	}
	if p.WorkdayEnd.minutes() <= p.WorkdayStart.minutes() {
		return fmt.Errorf("working hours end %s must be after start %s", p.WorkdayEnd, p.WorkdayStart)
	}
	if p.HasBreak() && p.BreakEnd.minutes() <= p.BreakStart.minutes() {
		return fmt.Errorf("break end %s must be after break start %s", p.BreakEnd, p.BreakStart)
	}
	if p.MinimumNotice < 0 {
		return errors.New("minimum notice must not be negative")
	}
	return nil
}

// HasBreak reports whether a break window is configured.
func (p Policy) HasBreak() bool {
	return !(p.BreakStart.IsZero() && p.BreakEnd.IsZero())
}

// IsExcluded reports whether t falls on an excluded weekday in the business timezone.
func (p Policy) IsExcluded(t time.Time) bool {
	wd := t.In(p.Location).Weekday()
	for _, excluded := range p.ExcludedWeekdays {
		if wd == excluded {
			return true
		}
	}
	return false
}

// WithinWorkingHours reports whether the time of day of t lies in [WorkdayStart, WorkdayEnd).
func (p Policy) WithinWorkingHours(t time.Time) bool {
	local := t.In(p.Location)
	start := p.WorkdayStart.On(local, p.Location)
	end := p.WorkdayEnd.On(local, p.Location)
	return !local.Before(start) && local.Before(end)
}

// BreakWindow returns the break interval on the calendar date of day.
func (p Policy) BreakWindow(day time.Time) (Interval, bool) {
	if !p.HasBreak() {
		return Interval{}, false
	}
	return Interval{Start: p.BreakStart.On(day, p.Location), End: p.BreakEnd.On(day, p.Location)}, true
}

// Slots lists the bookable grid on the calendar date of day before notice and
// busy time are applied. Slots follow each other from WorkdayStart, resume at
// the break end when they would overlap the break, and never end after
// WorkdayEnd.
func (p Policy) Slots(day time.Time) []Interval {
	cursor := p.WorkdayStart.On(day, p.Location)
	dayEnd := p.WorkdayEnd.On(day, p.Location)
	breakWindow, hasBreak := p.BreakWindow(day)

	var slots []Interval
	for cursor.Before(dayEnd) {
		candidate := Interval{Start: cursor, End: cursor.Add(p.SlotDuration)}
		if candidate.End.After(dayEnd) {
			break
		}
		if hasBreak && candidate.Overlaps(breakWindow) {
			cursor = breakWindow.End
			continue
		}
		slots = append(slots, candidate)
		cursor = candidate.End
	}
	return slots
}

// IsSlotStart reports whether t is the start of a slot on its day's grid.
func (p Policy) IsSlotStart(t time.Time) bool {
	for _, slot := range p.Slots(t) {
		if slot.Start.Equal(t) {
			return true
		}
	}
	return false
}
