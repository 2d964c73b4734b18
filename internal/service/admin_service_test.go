package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coworkspace/internal/db"
	apperrors "coworkspace/internal/errors"
)

func seedMeeting(t *testing.T, store *memoryStore, id string, start time.Time, status db.MeetingStatus, eventID string) {
	t.Helper()
	store.meetings[id] = db.Meeting{
		ID:              id,
		FullName:        "Seed " + id,
		StartTime:       start,
		EndTime:         start.Add(30 * time.Minute),
		Status:          status,
		ExternalEventID: eventID,
	}
}

func TestAdminService_ListMeetings(t *testing.T) {
	store := newMemoryStore()
	seedMeeting(t, store, "a", onDay(19, 11, 0), db.StatusScheduled, "")
	seedMeeting(t, store, "b", onDay(20, 18, 30), db.StatusCancelled, "")
	seedMeeting(t, store, "c", onDay(21, 10, 0), db.StatusCompleted, "")
	svc := NewAdminService(store, nil, ist, time.Second, discardLogger())

	meetings, err := svc.ListMeetings(context.Background(), "2026-10-19", "2026-10-20")
	require.NoError(t, err)
	require.Len(t, meetings, 2)
	assert.Equal(t, "a", meetings[0].ID)
	assert.Equal(t, "b", meetings[1].ID)
}

func TestAdminService_ListMeetingsValidation(t *testing.T) {
	svc := NewAdminService(newMemoryStore(), nil, ist, time.Second, discardLogger())

	for _, tc := range []struct{ from, to string }{
		{"", "2026-10-20"},
		{"2026-10-19", "20/10/2026"},
		{"2026-10-20", "2026-10-19"},
		{"2026-01-01", "2026-12-31"},
	} {
		_, err := svc.ListMeetings(context.Background(), tc.from, tc.to)
		require.Error(t, err, "%s..%s", tc.from, tc.to)
		assert.Equal(t, http.StatusBadRequest, apperrors.ToHTTP(err).Code)
	}
}

func TestAdminService_CancelMeeting(t *testing.T) {
	store := newMemoryStore()
	seedMeeting(t, store, "a", onDay(20, 11, 0), db.StatusScheduled, "evt-42")
	cal := &fakeCalendar{}
	svc := NewAdminService(store, cal, ist, time.Second, discardLogger())

	m, err := svc.CancelMeeting(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, db.StatusCancelled, m.Status)
	assert.Equal(t, []string{"evt-42"}, cal.deleted)
}

func TestAdminService_CancelMeetingCalendarFailure(t *testing.T) {
	store := newMemoryStore()
	seedMeeting(t, store, "a", onDay(20, 11, 0), db.StatusScheduled, "evt-42")
	cal := &fakeCalendar{deleteErr: errors.New("googleapi: Error 500")}
	svc := NewAdminService(store, cal, ist, time.Second, discardLogger())

	m, err := svc.CancelMeeting(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, db.StatusCancelled, m.Status)
}

func TestAdminService_CompleteMeeting(t *testing.T) {
	store := newMemoryStore()
	seedMeeting(t, store, "a", onDay(20, 11, 0), db.StatusScheduled, "evt-42")
	cal := &fakeCalendar{}
	svc := NewAdminService(store, cal, ist, time.Second, discardLogger())

	m, err := svc.CompleteMeeting(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, db.StatusCompleted, m.Status)
	assert.Empty(t, cal.deleted)

	_, err = svc.CompleteMeeting(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAdminService_CancelledMeetingStaysCancelledAfterRebooking(t *testing.T) {
	store := newMemoryStore()
	cal := &fakeCalendar{}
	meetings := newTestMeetingService(store, cal, nil, onDay(19, 9, 0))
	admin := NewAdminService(store, cal, ist, time.Second, discardLogger())
	ctx := context.Background()

	first, err := meetings.BookMeeting(ctx, bookingFor(onDay(20, 11, 0)))
	require.NoError(t, err)
	_, err = admin.CancelMeeting(ctx, first.ID)
	require.NoError(t, err)
	second, err := meetings.BookMeeting(ctx, bookingFor(onDay(20, 11, 0)))
	require.NoError(t, err)

	_, err = admin.CompleteMeeting(ctx, first.ID)
	require.ErrorIs(t, err, apperrors.ErrNotScheduled)
	assert.Equal(t, http.StatusConflict, apperrors.ToHTTP(err).Code)

	_, err = admin.CancelMeeting(ctx, first.ID)
	require.ErrorIs(t, err, apperrors.ErrNotScheduled)

	active, err := store.FindOverlapping(ctx, onDay(20, 11, 0), onDay(20, 11, 30), db.StatusCancelled)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)
	assert.Equal(t, db.StatusScheduled, active[0].Status)
}

func TestAdminService_CompletedMeetingCannotBeCancelled(t *testing.T) {
	store := newMemoryStore()
	seedMeeting(t, store, "a", onDay(20, 11, 0), db.StatusCompleted, "evt-42")
	cal := &fakeCalendar{}
	svc := NewAdminService(store, cal, ist, time.Second, discardLogger())

	_, err := svc.CancelMeeting(context.Background(), "a")
	require.ErrorIs(t, err, apperrors.ErrNotScheduled)
	assert.Empty(t, cal.deleted)
	assert.Equal(t, db.StatusCompleted, store.meetings["a"].Status)
}
