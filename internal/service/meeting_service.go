package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"coworkspace/internal/availability"
	"coworkspace/internal/calendar"
	"coworkspace/internal/db"
	"coworkspace/internal/entities"
	apperrors "coworkspace/internal/errors"
	"coworkspace/internal/repository"
)

const defaultCalendarTimeout = 5 * time.Second

// Notifier tells the requester about a confirmed meeting.
type Notifier interface {
	MeetingBooked(ctx context.Context, m db.Meeting) error
}

type MeetingServiceConfig struct {
	GracePeriod     time.Duration
	CalendarTimeout time.Duration
	DefaultDays     int
	MaxDays         int
}

// MeetingService computes availability for the sales calendar and commits
// bookings against it.
type MeetingService struct {
	engine   *availability.Engine
	store    repository.MeetingStore
	calendar calendar.Adapter
	notifier Notifier
	cfg      MeetingServiceConfig
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
}

func NewMeetingService(
	engine *availability.Engine,
	store repository.MeetingStore,
	cal calendar.Adapter,
	notifier Notifier,
	cfg MeetingServiceConfig,
	logger *slog.Logger,
) *MeetingService {
	if cfg.CalendarTimeout <= 0 {
		cfg.CalendarTimeout = defaultCalendarTimeout
	}
	if cfg.DefaultDays <= 0 {
		cfg.DefaultDays = 7
	}
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MeetingService{
		engine:   engine,
		store:    store,
		calendar: cal,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   logger,
	}
}

// WithClock replaces the time source; used by tests.
func (s *MeetingService) WithClock(now func() time.Time) *MeetingService {
	s.now = now
	return s
}

func (s *MeetingService) DefaultDays() int {
	return s.cfg.DefaultDays
}

func (s *MeetingService) MaxDays() int {
	return s.cfg.MaxDays
}

// GetAvailability returns the free slots for the next days business days,
// starting today in the business timezone.
func (s *MeetingService) GetAvailability(ctx context.Context, days int) ([]entities.DayAvailability, error) {
	if days <= 0 {
		days = s.cfg.DefaultDays
	}
	if days > s.cfg.MaxDays {
		return nil, apperrors.ErrBadRequest(fmt.Sprintf("days must be between 1 and %d", s.cfg.MaxDays))
	}

	policy := s.engine.Policy()
	now := s.now().In(policy.Location)
	rangeStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, policy.Location)
	rangeEnd := rangeStart.AddDate(0, 0, days)

	booked, err := s.store.FindInRange(ctx, rangeStart, rangeEnd, db.StatusCancelled)
	if err != nil {
		s.logger.ErrorContext(ctx, "could not load booked meetings", "error", err, "from", rangeStart, "to", rangeEnd)
		return nil, fmt.Errorf("error loading booked meetings: %w", err)
	}
	external := s.externalBusy(ctx, rangeStart, rangeEnd)

	busy := make([]availability.Interval, 0, len(booked))
	for _, m := range booked {
		busy = append(busy, availability.Interval{Start: m.StartTime, End: m.EndTime})
	}
	return s.engine.Compute(rangeStart, days, availability.MergeBusy(busy, external), now), nil
}

// externalBusy degrades to "nothing busy" when the calendar is unreachable or
// not authorized, so availability keeps working without it.
func (s *MeetingService) externalBusy(ctx context.Context, from, to time.Time) []availability.Interval {
	if s.calendar == nil {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CalendarTimeout)
	defer cancel()

	intervals, err := s.calendar.BusyIntervals(callCtx, from, to)
	if err != nil {
		s.logger.WarnContext(ctx, "calendar degraded: busy intervals unavailable", "error", err)
		return nil
	}
	return intervals
}

// BookMeeting validates req against policy and current bookings, then
// commits it. The store's uniqueness constraint is the final arbiter between
// concurrent requests for the same slot.
func (s *MeetingService) BookMeeting(ctx context.Context, req entities.BookingRequest) (*db.Meeting, error) {
	policy := s.engine.Policy()
	now := s.now()
	slotStart := req.SlotTime.In(policy.Location)
	slotEnd := slotStart.Add(policy.SlotDuration)

	if err := s.validate(ctx, slotStart, slotEnd, now); err != nil {
		return nil, err
	}

	meeting := &db.Meeting{
		ID:          s.newID(),
		FullName:    strings.TrimSpace(req.FullName),
		Email:       strings.TrimSpace(req.Email),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		StartTime:   slotStart,
		EndTime:     slotEnd,
		Status:      db.StatusScheduled,
		Notes:       strings.TrimSpace(req.Notes),
		ExpiresAt:   slotEnd.Add(s.cfg.GracePeriod),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}

	if ref := s.createExternalEvent(ctx, meeting); ref != nil {
		meeting.ExternalEventID = ref.EventID
		meeting.ExternalJoinLink = ref.JoinLink
	}

	if err := s.store.Insert(ctx, meeting); err != nil {
		s.compensateEvent(ctx, meeting)
		if errors.Is(err, repository.ErrSlotConflict) {
			s.logger.InfoContext(ctx, "booking lost race for slot", "slot_start", slotStart)
			return nil, slotTaken(slotStart)
		}
		s.logger.ErrorContext(ctx, "could not persist meeting", "error", err, "slot_start", slotStart, "email", meeting.Email)
		return nil, fmt.Errorf("error saving meeting: %w", err)
	}

	s.logger.InfoContext(ctx, "meeting booked", "meeting_id", meeting.ID, "slot_start", slotStart, "has_join_link", meeting.ExternalJoinLink != "")

	if s.notifier != nil {
		if err := s.notifier.MeetingBooked(ctx, *meeting); err != nil {
			s.logger.WarnContext(ctx, "meeting confirmation not delivered", "meeting_id", meeting.ID, "error", err)
		}
	}
	return meeting, nil
}

// validate runs the policy checks in order; the first failure wins.
func (s *MeetingService) validate(ctx context.Context, slotStart, slotEnd, now time.Time) error {
	policy := s.engine.Policy()

	if slotStart.Before(now.Add(policy.MinimumNotice)) {
		return apperrors.NewRejection(apperrors.ReasonTooSoon,
			"Meetings must be booked at least %s in advance", humanDuration(policy.MinimumNotice))
	}
	if !policy.WithinWorkingHours(slotStart) {
		return apperrors.NewRejection(apperrors.ReasonOutsideWorkingHours,
			"Meetings can only start between %s and %s", policy.WorkdayStart, policy.WorkdayEnd)
	}
	if policy.IsExcluded(slotStart) {
		return apperrors.NewRejection(apperrors.ReasonExcludedDay,
			"Meetings cannot be booked on %s", slotStart.Weekday())
	}
	if slotEnd.After(policy.WorkdayEnd.On(slotStart, policy.Location)) {
		return apperrors.NewRejection(apperrors.ReasonOutsideWorkingHours,
			"Meetings must end by %s", policy.WorkdayEnd)
	}
	if breakWindow, ok := policy.BreakWindow(slotStart); ok && breakWindow.Overlaps(availability.Interval{Start: slotStart, End: slotEnd}) {
		return apperrors.NewRejection(apperrors.ReasonOutsideWorkingHours,
			"Meetings cannot overlap the break from %s to %s", policy.BreakStart, policy.BreakEnd)
	}
	// Every start on the grid keeps start-time uniqueness in the stores
	// equivalent to interval uniqueness.
	if !policy.IsSlotStart(slotStart) {
		return apperrors.NewRejection(apperrors.ReasonOutsideWorkingHours,
			"Meetings must start on one of the offered %s slots", humanDuration(policy.SlotDuration))
	}

	conflicts, err := s.store.FindOverlapping(ctx, slotStart, slotEnd, db.StatusCancelled)
	if err != nil {
		s.logger.ErrorContext(ctx, "could not check slot", "error", err, "slot_start", slotStart)
		return fmt.Errorf("error checking slot: %w", err)
	}
	if len(conflicts) > 0 {
		return slotTaken(slotStart)
	}
	return nil
}

func (s *MeetingService) createExternalEvent(ctx context.Context, m *db.Meeting) *calendar.EventRef {
	if s.calendar == nil {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CalendarTimeout)
	defer cancel()

	ref, err := s.calendar.CreateEvent(callCtx, calendar.EventRequest{
		Summary:       fmt.Sprintf("Sales meeting with %s", m.FullName),
		Description:   eventDescription(m),
		Start:         m.StartTime,
		End:           m.EndTime,
		AttendeeEmail: m.Email,
		AttendeeName:  m.FullName,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "calendar degraded: event not created", "error", err, "slot_start", m.StartTime)
		return nil
	}
	return ref
}

// compensateEvent removes an event created for a booking that was not saved.
func (s *MeetingService) compensateEvent(ctx context.Context, m *db.Meeting) {
	if s.calendar == nil || m.ExternalEventID == "" {
		return
	}
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CalendarTimeout)
	defer cancel()
	if err := s.calendar.DeleteEvent(callCtx, m.ExternalEventID); err != nil {
		s.logger.WarnContext(ctx, "orphaned calendar event", "event_id", m.ExternalEventID, "error", err)
	}
}

func (s *MeetingService) GetMeetingByID(ctx context.Context, id string) (*db.Meeting, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("meeting '%s': %w", id, apperrors.ErrNotFound)
	}
	return s.store.FindByID(ctx, id)
}

func slotTaken(slotStart time.Time) error {
	return apperrors.NewRejection(apperrors.ReasonSlotTaken,
		"The slot at %s is no longer available", slotStart.Format("Mon 02 Jan 15:04"))
}

func eventDescription(m *db.Meeting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\nEmail: %s\nPhone: %s\n", m.FullName, m.Email, m.PhoneNumber)
	if m.Notes != "" {
		fmt.Fprintf(&b, "\nNotes:\n%s\n", m.Notes)
	}
	return b.String()
}

func humanDuration(d time.Duration) string {
	switch {
	case d%time.Hour == 0 && d >= time.Hour:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
