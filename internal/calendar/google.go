package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"coworkspace/internal/availability"
)

// TokenSourceProvider yields credentials for one request.
type TokenSourceProvider interface {
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// GoogleCalendar is the Adapter backed by the Google Calendar API.
type GoogleCalendar struct {
	tokens     TokenSourceProvider
	calendarID string
	location   *time.Location
	opts       []option.ClientOption
}

func NewGoogleCalendar(tokens TokenSourceProvider, calendarID string, location *time.Location, opts ...option.ClientOption) *GoogleCalendar {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleCalendar{
		tokens:     tokens,
		calendarID: calendarID,
		location:   location,
		opts:       opts,
	}
}

func (g *GoogleCalendar) service(ctx context.Context) (*gcal.Service, error) {
	ts, err := g.tokens.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, g.opts...)
	srv, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar: create service: %w", err)
	}
	return srv, nil
}

func (g *GoogleCalendar) BusyIntervals(ctx context.Context, from, to time.Time) ([]availability.Interval, error) {
	srv, err := g.service(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := srv.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin:  from.Format(time.RFC3339),
		TimeMax:  to.Format(time.RFC3339),
		TimeZone: g.location.String(),
		Items:    []*gcal.FreeBusyRequestItem{{Id: g.calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: freebusy query: %w", err)
	}

	cal, ok := resp.Calendars[g.calendarID]
	if !ok {
		return nil, fmt.Errorf("calendar: freebusy response has no entry for %q", g.calendarID)
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("calendar: freebusy reported %q for %q", cal.Errors[0].Reason, g.calendarID)
	}

	intervals := make([]availability.Interval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			return nil, fmt.Errorf("calendar: busy start %q: %w", period.Start, err)
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			return nil, fmt.Errorf("calendar: busy end %q: %w", period.End, err)
		}
		intervals = append(intervals, availability.Interval{Start: start.In(g.location), End: end.In(g.location)})
	}
	return intervals, nil
}

// CreateEvent books the event with a Meet conference and invites the attendee.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, req EventRequest) (*EventRef, error) {
	srv, err := g.service(ctx)
	if err != nil {
		return nil, err
	}
	event := &gcal.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start: &gcal.EventDateTime{
			DateTime: req.Start.In(g.location).Format(time.RFC3339),
			TimeZone: g.location.String(),
		},
		End: &gcal.EventDateTime{
			DateTime: req.End.In(g.location).Format(time.RFC3339),
			TimeZone: g.location.String(),
		},
		Attendees: []*gcal.EventAttendee{{Email: req.AttendeeEmail, DisplayName: req.AttendeeName}},
		ConferenceData: &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}

	created, err := srv.Events.Insert(g.calendarID, event).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: insert event: %w", err)
	}
	return &EventRef{EventID: created.Id, JoinLink: joinLink(created)}, nil
}

// DeleteEvent treats an already deleted event as success.
func (g *GoogleCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	srv, err := g.service(ctx)
	if err != nil {
		return err
	}
	err = srv.Events.Delete(g.calendarID, eventID).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			return nil
		}
		return fmt.Errorf("calendar: delete event %s: %w", eventID, err)
	}
	return nil
}

func joinLink(e *gcal.Event) string {
	if e.HangoutLink != "" {
		return e.HangoutLink
	}
	if e.ConferenceData != nil {
		for _, ep := range e.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				return ep.Uri
			}
		}
	}
	return ""
}
