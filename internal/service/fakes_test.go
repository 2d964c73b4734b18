package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"coworkspace/internal/availability"
	"coworkspace/internal/calendar"
	"coworkspace/internal/db"
	apperrors "coworkspace/internal/errors"
	"coworkspace/internal/repository"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func testPolicy() availability.Policy {
	return availability.Policy{
		SlotDuration:     30 * time.Minute,
		WorkdayStart:     availability.TimeOfDay{Hour: 10},
		WorkdayEnd:       availability.TimeOfDay{Hour: 19},
		BreakStart:       availability.TimeOfDay{Hour: 13, Minute: 30},
		BreakEnd:         availability.TimeOfDay{Hour: 14},
		MinimumNotice:    time.Hour,
		ExcludedWeekdays: []time.Weekday{time.Sunday},
		Location:         ist,
	}
}

// 2026-10-19 is a Monday.
func onDay(day, hour, minute int) time.Time {
	return time.Date(2026, time.October, day, hour, minute, 0, 0, ist)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memoryStore struct {
	mu        sync.Mutex
	meetings  map[string]db.Meeting
	insertErr error
	findErr   error
	inserts   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{meetings: map[string]db.Meeting{}}
}

func (s *memoryStore) filter(keep func(db.Meeting) bool) []db.Meeting {
	var out []db.Meeting
	for _, m := range s.meetings {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (s *memoryStore) FindOverlapping(_ context.Context, start, end time.Time, exclude db.MeetingStatus) ([]db.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.filter(func(m db.Meeting) bool {
		return m.Status != exclude && m.StartTime.Before(end) && m.EndTime.After(start)
	}), nil
}

func (s *memoryStore) FindInRange(_ context.Context, start, end time.Time, exclude db.MeetingStatus) ([]db.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.filter(func(m db.Meeting) bool {
		return m.Status != exclude && !m.StartTime.Before(start) && m.StartTime.Before(end)
	}), nil
}

func (s *memoryStore) Insert(_ context.Context, m *db.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, existing := range s.meetings {
		if existing.Status != db.StatusCancelled && existing.StartTime.Before(m.EndTime) && existing.EndTime.After(m.StartTime) {
			return repository.ErrSlotConflict
		}
	}
	s.meetings[m.ID] = *m
	return nil
}

func (s *memoryStore) FindByID(_ context.Context, id string) (*db.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, fmt.Errorf("meeting '%s': %w", id, apperrors.ErrNotFound)
	}
	return &m, nil
}

func (s *memoryStore) UpdateStatus(_ context.Context, id string, status db.MeetingStatus) (*db.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, fmt.Errorf("meeting '%s': %w", id, apperrors.ErrNotFound)
	}
	if m.Status != db.StatusScheduled {
		return nil, fmt.Errorf("meeting '%s' is %s: %w", id, m.Status, apperrors.ErrNotScheduled)
	}
	m.Status = status
	s.meetings[id] = m
	return &m, nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.meetings)
}

type fakeCalendar struct {
	mu        sync.Mutex
	busy      []availability.Interval
	busyErr   error
	createErr error
	deleteErr error
	created   []calendar.EventRequest
	deleted   []string
}

func (c *fakeCalendar) BusyIntervals(_ context.Context, _, _ time.Time) ([]availability.Interval, error) {
	if c.busyErr != nil {
		return nil, c.busyErr
	}
	return c.busy, nil
}

func (c *fakeCalendar) CreateEvent(_ context.Context, req calendar.EventRequest) (*calendar.EventRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.createErr != nil {
		return nil, c.createErr
	}
	c.created = append(c.created, req)
	n := len(c.created)
	return &calendar.EventRef{
		EventID:  fmt.Sprintf("evt-%d", n),
		JoinLink: fmt.Sprintf("https://meet.google.com/abc-defg-%03d", n),
	}, nil
}

func (c *fakeCalendar) DeleteEvent(_ context.Context, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, eventID)
	return c.deleteErr
}

type recordingNotifier struct {
	mu     sync.Mutex
	booked []db.Meeting
	err    error
}

func (n *recordingNotifier) MeetingBooked(_ context.Context, m db.Meeting) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.booked = append(n.booked, m)
	return n.err
}
