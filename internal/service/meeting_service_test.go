package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coworkspace/internal/availability"
	"coworkspace/internal/calendar"
	"coworkspace/internal/db"
	"coworkspace/internal/entities"
	apperrors "coworkspace/internal/errors"
	"coworkspace/internal/repository"
)

func newTestMeetingService(store repository.MeetingStore, cal calendar.Adapter, notifier Notifier, now time.Time) *MeetingService {
	svc := NewMeetingService(
		availability.NewEngine(testPolicy()),
		store,
		cal,
		notifier,
		MeetingServiceConfig{GracePeriod: 24 * time.Hour, CalendarTimeout: time.Second},
		discardLogger(),
	)
	return svc.WithClock(func() time.Time { return now })
}

func bookingFor(slot time.Time) entities.BookingRequest {
	return entities.BookingRequest{
		FullName:    "Asha Rao",
		Email:       "asha@example.com",
		PhoneNumber: "+919800000000",
		SlotTime:    slot,
		Notes:       "Team of six",
	}
}

func startsOn(days []entities.DayAvailability, date string) []string {
	for _, d := range days {
		if d.Date == date {
			out := make([]string, 0, len(d.Slots))
			for _, s := range d.Slots {
				out = append(out, s.StartTime.Format("15:04"))
			}
			return out
		}
	}
	return nil
}

func TestBookMeeting_Success(t *testing.T) {
	store := newMemoryStore()
	cal := &fakeCalendar{}
	notifier := &recordingNotifier{}
	svc := newTestMeetingService(store, cal, notifier, onDay(19, 9, 0))

	m, err := svc.BookMeeting(context.Background(), bookingFor(onDay(20, 11, 0)))
	require.NoError(t, err)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, db.StatusScheduled, m.Status)
	assert.True(t, m.StartTime.Equal(onDay(20, 11, 0)))
	assert.True(t, m.EndTime.Equal(onDay(20, 11, 30)))
	assert.True(t, m.ExpiresAt.Equal(onDay(21, 11, 30)))
	assert.Equal(t, "evt-1", m.ExternalEventID)
	assert.Equal(t, "https://meet.google.com/abc-defg-001", m.ExternalJoinLink)

	require.Len(t, cal.created, 1)
	assert.Equal(t, "asha@example.com", cal.created[0].AttendeeEmail)
	assert.Contains(t, cal.created[0].Description, "Team of six")

	require.Len(t, notifier.booked, 1)
	assert.Equal(t, m.ID, notifier.booked[0].ID)

	stored, err := svc.GetMeetingByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ExternalJoinLink, stored.ExternalJoinLink)
}

func TestBookMeeting_Rejections(t *testing.T) {
	now := onDay(19, 10, 40)

	cases := []struct {
		name   string
		slot   time.Time
		reason apperrors.RejectionReason
	}{
		{"twenty minutes ahead", onDay(19, 11, 0), apperrors.ReasonTooSoon},
		{"in the past", onDay(18, 11, 0), apperrors.ReasonTooSoon},
		{"before opening", onDay(20, 9, 30), apperrors.ReasonOutsideWorkingHours},
		{"at closing", onDay(20, 19, 0), apperrors.ReasonOutsideWorkingHours},
		{"runs past closing", onDay(20, 18, 45), apperrors.ReasonOutsideWorkingHours},
		{"inside break", onDay(20, 13, 30), apperrors.ReasonOutsideWorkingHours},
		{"straddles break start", onDay(20, 13, 15), apperrors.ReasonOutsideWorkingHours},
		{"off grid", onDay(20, 10, 7), apperrors.ReasonOutsideWorkingHours},
		{"quarter past", onDay(20, 10, 15), apperrors.ReasonOutsideWorkingHours},
		{"sunday", onDay(25, 11, 0), apperrors.ReasonExcludedDay},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemoryStore()
			cal := &fakeCalendar{}
			svc := newTestMeetingService(store, cal, nil, now)

			m, err := svc.BookMeeting(context.Background(), bookingFor(tc.slot))
			assert.Nil(t, m)
			require.Error(t, err)
			assert.True(t, apperrors.IsRejection(err, tc.reason), "got %v", err)
			assert.Equal(t, http.StatusBadRequest, apperrors.ToHTTP(err).Code)
			assert.Zero(t, store.count())
			assert.Empty(t, cal.created)
		})
	}
}

func TestBookMeeting_TooSoonWinsOverExcludedDay(t *testing.T) {
	sunday := onDay(25, 10, 15)
	svc := newTestMeetingService(newMemoryStore(), nil, nil, sunday)

	_, err := svc.BookMeeting(context.Background(), bookingFor(onDay(25, 10, 30)))
	assert.True(t, apperrors.IsRejection(err, apperrors.ReasonTooSoon))
}

func TestBookMeeting_SlotTaken(t *testing.T) {
	store := newMemoryStore()
	svc := newTestMeetingService(store, nil, nil, onDay(19, 9, 0))

	_, err := svc.BookMeeting(context.Background(), bookingFor(onDay(20, 11, 0)))
	require.NoError(t, err)

	_, err = svc.BookMeeting(context.Background(), bookingFor(onDay(20, 11, 0)))
	assert.True(t, apperrors.IsRejection(err, apperrors.ReasonSlotTaken))

	assert.Equal(t, 1, store.count())
}

func TestBookMeeting_SlotTakenByOverlappingMeeting(t *testing.T) {
	store := newMemoryStore()
	// Booked under an earlier grid, it straddles the 11:00 slot.
	require.NoError(t, store.Insert(context.Background(), &db.Meeting{
		ID:        "legacy",
		StartTime: onDay(20, 10, 45),
		EndTime:   onDay(20, 11, 15),
		Status:    db.StatusScheduled,
	}))
	svc := newTestMeetingService(store, nil, nil, onDay(19, 9, 0))

	_, err := svc.BookMeeting(context.Background(), bookingFor(onDay(20, 11, 0)))
	assert.True(t, apperrors.IsRejection(err, apperrors.ReasonSlotTaken))
	assert.Equal(t, 1, store.count())
}

func TestBookMeeting_ConcurrentRequestsForSameSlot(t *testing.T) {
	store := newMemoryStore()
	cal := &fakeCalendar{}
	svc := newTestMeetingService(store, cal, nil, onDay(19, 9, 0))

	const attempts = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		taken     int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.BookMeeting(context.Background(), bookingFor(onDay(21, 15, 0)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperrors.IsRejection(err, apperrors.ReasonSlotTaken):
				taken++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, taken)
	assert.Equal(t, 1, store.count())
	// Every event created for a losing request is removed again.
	assert.Len(t, cal.deleted, len(cal.created)-1)
}

func TestBookMeeting_CompensatesEventWhenInsertConflicts(t *testing.T) {
	store := newMemoryStore()
	store.insertErr = repository.ErrSlotConflict
	cal := &fakeCalendar{}
	svc := newTestMeetingService(store, cal, nil, onDay(19, 9, 0))

	_, err := svc.BookMeeting(context.Background(), bookingFor(onDay(20, 16, 0)))
	assert.True(t, apperrors.IsRejection(err, apperrors.ReasonSlotTaken))
	assert.Equal(t, []string{"evt-1"}, cal.deleted)
}

func TestBookMeeting_StoreFailureIsInternal(t *testing.T) {
	store := newMemoryStore()
	store.insertErr = errors.New("connection reset")
	cal := &fakeCalendar{}
	svc := newTestMeetingService(store, cal, nil, onDay(19, 9, 0))

	_, err := svc.BookMeeting(context.Background(), bookingFor(onDay(20, 16, 0)))
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperrors.ToHTTP(err).Code)
	assert.Equal(t, []string{"evt-1"}, cal.deleted)
}

func TestBookMeeting_CalendarFailureStillBooks(t *testing.T) {
	store := newMemoryStore()
	cal := &fakeCalendar{createErr: calendar.ErrNotAuthorized}
	svc := newTestMeetingService(store, cal, nil, onDay(19, 9, 0))

	m, err := svc.BookMeeting(context.Background(), bookingFor(onDay(20, 12, 0)))
	require.NoError(t, err)
	assert.Empty(t, m.ExternalJoinLink)
	assert.Empty(t, m.ExternalEventID)
	assert.Equal(t, 1, store.count())
}

func TestBookMeeting_NotifierFailureStillBooks(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("twilio down")}
	svc := newTestMeetingService(newMemoryStore(), nil, notifier, onDay(19, 9, 0))

	m, err := svc.BookMeeting(context.Background(), bookingFor(onDay(20, 12, 0)))
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Len(t, notifier.booked, 1)
}

func TestBookMeeting_CancelledMeetingFreesSlot(t *testing.T) {
	store := newMemoryStore()
	svc := newTestMeetingService(store, nil, nil, onDay(19, 9, 0))

	first, err := svc.BookMeeting(context.Background(), bookingFor(onDay(20, 11, 0)))
	require.NoError(t, err)
	_, err = store.UpdateStatus(context.Background(), first.ID, db.StatusCancelled)
	require.NoError(t, err)

	second, err := svc.BookMeeting(context.Background(), bookingFor(onDay(20, 11, 0)))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestGetAvailability_ReflectsBookings(t *testing.T) {
	store := newMemoryStore()
	svc := newTestMeetingService(store, &fakeCalendar{}, nil, onDay(19, 9, 0))

	before, err := svc.GetAvailability(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, before, 2)
	assert.Contains(t, startsOn(before, "2026-10-20"), "11:00")

	_, err = svc.BookMeeting(context.Background(), bookingFor(onDay(20, 11, 0)))
	require.NoError(t, err)

	after, err := svc.GetAvailability(context.Background(), 2)
	require.NoError(t, err)
	assert.NotContains(t, startsOn(after, "2026-10-20"), "11:00")
	assert.Len(t, startsOn(after, "2026-10-20"), len(startsOn(before, "2026-10-20"))-1)
}

func TestGetAvailability_ExternalBusyRemovesSlots(t *testing.T) {
	cal := &fakeCalendar{busy: []availability.Interval{
		{Start: onDay(20, 15, 0).UTC(), End: onDay(20, 16, 0).UTC()},
	}}
	svc := newTestMeetingService(newMemoryStore(), cal, nil, onDay(19, 9, 0))

	days, err := svc.GetAvailability(context.Background(), 2)
	require.NoError(t, err)
	starts := startsOn(days, "2026-10-20")
	assert.NotContains(t, starts, "15:00")
	assert.NotContains(t, starts, "15:30")
	assert.Contains(t, starts, "16:00")
}

func TestGetAvailability_CalendarFailureDegrades(t *testing.T) {
	cal := &fakeCalendar{busyErr: errors.New("googleapi: Error 503")}
	svc := newTestMeetingService(newMemoryStore(), cal, nil, onDay(19, 9, 0))

	days, err := svc.GetAvailability(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Len(t, days[0].Slots, 17)
}

func TestGetAvailability_Days(t *testing.T) {
	svc := newTestMeetingService(newMemoryStore(), nil, nil, onDay(18, 9, 0))

	days, err := svc.GetAvailability(context.Background(), 0)
	require.NoError(t, err)
	// Default window of 7 days starting Sunday skips the Sunday.
	assert.Len(t, days, 6)
	assert.Equal(t, "2026-10-19", days[0].Date)

	_, err = svc.GetAvailability(context.Background(), 31)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperrors.ToHTTP(err).Code)
}

func TestGetAvailability_StoreFailure(t *testing.T) {
	store := newMemoryStore()
	store.findErr = errors.New("timeout")
	svc := newTestMeetingService(store, nil, nil, onDay(19, 9, 0))

	_, err := svc.GetAvailability(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperrors.ToHTTP(err).Code)
}

func TestGetMeetingByID_NotFound(t *testing.T) {
	svc := newTestMeetingService(newMemoryStore(), nil, nil, onDay(19, 9, 0))

	_, err := svc.GetMeetingByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.GetMeetingByID(context.Background(), "5b0b7f3e-3c59-4b1b-a9a6-1f3a2f8e6c11")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "1 hour", humanDuration(time.Hour))
	assert.Equal(t, "2 hours", humanDuration(2*time.Hour))
	assert.Equal(t, "90 minutes", humanDuration(90*time.Minute))
	assert.Equal(t, "45s", humanDuration(45*time.Second))
}
