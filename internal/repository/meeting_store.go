package repository

import (
	"context"
	"errors"
	"time"

	"coworkspace/internal/db"
)

// ErrSlotConflict is returned by Insert when another active meeting already
// holds an overlapping interval. It is the storage-level guard against
// double-booking and must be treated like a failed availability pre-check.
var ErrSlotConflict = errors.New("slot already booked")

// MeetingStore persists booked meetings. An empty excludeStatus filters nothing.
// UpdateStatus only moves a Scheduled meeting; any other current status yields a
// wrapped ErrNotScheduled from the errors package.
type MeetingStore interface {
	FindOverlapping(ctx context.Context, start, end time.Time, excludeStatus db.MeetingStatus) ([]db.Meeting, error)
	FindInRange(ctx context.Context, start, end time.Time, excludeStatus db.MeetingStatus) ([]db.Meeting, error)
	Insert(ctx context.Context, m *db.Meeting) error
	FindByID(ctx context.Context, id string) (*db.Meeting, error)
	UpdateStatus(ctx context.Context, id string, status db.MeetingStatus) (*db.Meeting, error)
}

// MeetingPurger is implemented by stores without native expiry.
type MeetingPurger interface {
	DeleteExpiredMeetings(ctx context.Context, before time.Time) (int64, error)
}
