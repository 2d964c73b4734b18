package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"coworkspace/internal/calendar"
	"coworkspace/internal/db"
	apperrors "coworkspace/internal/errors"
	"coworkspace/internal/repository"
)

const maxAdminRangeDays = 92

// AdminService backs the staff endpoints: listing and closing out meetings.
type AdminService struct {
	store           repository.MeetingStore
	calendar        calendar.Adapter
	location        *time.Location
	calendarTimeout time.Duration
	logger          *slog.Logger
}

func NewAdminService(store repository.MeetingStore, cal calendar.Adapter, loc *time.Location, calendarTimeout time.Duration, logger *slog.Logger) *AdminService {
	if loc == nil {
		loc = time.UTC
	}
	if calendarTimeout <= 0 {
		calendarTimeout = defaultCalendarTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{store: store, calendar: cal, location: loc, calendarTimeout: calendarTimeout, logger: logger}
}

// ListMeetings returns every meeting, cancelled ones included, starting on a
// business date between from and to inclusive (YYYY-MM-DD).
func (s *AdminService) ListMeetings(ctx context.Context, from, to string) ([]db.Meeting, error) {
	start, err := time.ParseInLocation("2006-01-02", from, s.location)
	if err != nil {
		return nil, apperrors.ErrBadRequest("from must be a date in YYYY-MM-DD format")
	}
	end, err := time.ParseInLocation("2006-01-02", to, s.location)
	if err != nil {
		return nil, apperrors.ErrBadRequest("to must be a date in YYYY-MM-DD format")
	}
	if end.Before(start) {
		return nil, apperrors.ErrBadRequest("to must not be before from")
	}
	if end.Sub(start) > maxAdminRangeDays*24*time.Hour {
		return nil, apperrors.ErrBadRequest(fmt.Sprintf("range must not exceed %d days", maxAdminRangeDays))
	}
	return s.store.FindInRange(ctx, start, end.AddDate(0, 0, 1), "")
}

// CancelMeeting frees the slot and removes the external event, if any.
func (s *AdminService) CancelMeeting(ctx context.Context, id string) (*db.Meeting, error) {
	m, err := s.store.UpdateStatus(ctx, id, db.StatusCancelled)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "meeting cancelled", "meeting_id", id)

	if s.calendar != nil && m.ExternalEventID != "" {
		callCtx, cancel := context.WithTimeout(ctx, s.calendarTimeout)
		defer cancel()
		if err := s.calendar.DeleteEvent(callCtx, m.ExternalEventID); err != nil {
			s.logger.WarnContext(ctx, "calendar event not removed for cancelled meeting", "meeting_id", id, "event_id", m.ExternalEventID, "error", err)
		}
	}
	return m, nil
}

func (s *AdminService) CompleteMeeting(ctx context.Context, id string) (*db.Meeting, error) {
	m, err := s.store.UpdateStatus(ctx, id, db.StatusCompleted)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "meeting completed", "meeting_id", id)
	return m, nil
}
