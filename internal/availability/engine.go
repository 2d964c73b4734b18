// Package availability computes bookable slots for the shared sales calendar.
//
// The engine is pure: no I/O, no goroutines, and the clock is an argument, so
// identical inputs always yield identical output.
package availability

import (
	"time"

	"coworkspace/internal/entities"
)

const (
	dateLayout        = "2006-01-02"
	displayDateLayout = "Monday, January 2"
	labelLayout       = "3:04 PM"
)

type Engine struct {
	policy Policy
}

func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

func (e *Engine) Policy() Policy {
	return e.policy
}

// Compute returns the free slots for each business day of the window starting
// on the calendar date of windowStart. Days without a free slot are omitted.
func (e *Engine) Compute(windowStart time.Time, days int, busy []Interval, now time.Time) []entities.DayAvailability {
	loc := e.policy.Location
	merged := MergeBusy(busy)
	noticeBoundary := now.Add(e.policy.MinimumNotice)

	first := windowStart.In(loc)
	result := make([]entities.DayAvailability, 0, days)
	for i := 0; i < days; i++ {
		day := time.Date(first.Year(), first.Month(), first.Day()+i, 0, 0, 0, 0, loc)
		if e.policy.IsExcluded(day) {
			continue
		}
		slots := e.daySlots(day, merged, noticeBoundary)
		if len(slots) == 0 {
			continue
		}
		result = append(result, entities.DayAvailability{
			Date:        day.Format(dateLayout),
			DisplayDate: day.Format(displayDateLayout),
			Slots:       slots,
		})
	}
	return result
}

func (e *Engine) daySlots(day time.Time, busy []Interval, noticeBoundary time.Time) []entities.TimeSlot {
	var slots []entities.TimeSlot
	for _, candidate := range e.policy.Slots(day) {
		if candidate.Start.Before(noticeBoundary) {
			continue
		}
		if overlapsAny(candidate, busy) {
			continue
		}
		slots = append(slots, entities.TimeSlot{
			StartTime:    candidate.Start,
			EndTime:      candidate.End,
			DisplayLabel: candidate.Start.Format(labelLayout),
		})
	}
	return slots
}

// busy must be sorted by start.
func overlapsAny(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if !b.Start.Before(candidate.End) {
			return false
		}
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}
