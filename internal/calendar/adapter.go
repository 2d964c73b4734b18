// Package calendar wraps the remote calendar that backs the sales meeting
// schedule, along with the OAuth credentials it needs.
//
// Adapter methods return errors; callers decide how to degrade. The booking
// flow treats every adapter error as "no data".
package calendar

import (
	"context"
	"errors"
	"time"

	"coworkspace/internal/availability"
)

// ErrNotAuthorized is returned when no usable credential is stored.
var ErrNotAuthorized = errors.New("calendar: not authorized")

type EventRequest struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	AttendeeEmail string
	AttendeeName  string
}

type EventRef struct {
	EventID  string
	JoinLink string
}

type Adapter interface {
	BusyIntervals(ctx context.Context, from, to time.Time) ([]availability.Interval, error)
	CreateEvent(ctx context.Context, req EventRequest) (*EventRef, error)
	DeleteEvent(ctx context.Context, eventID string) error
}
