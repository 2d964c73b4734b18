package service

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"sync"
	"time"

	"coworkspace/internal/db"
	"coworkspace/internal/entities"
)

//go:embed templates/meeting_email.html
var templateFS embed.FS

var meetingEmailTemplate = template.Must(template.ParseFS(templateFS, "templates/meeting_email.html"))

type messenger interface {
	EmailEnabled() bool
	SMSEnabled() bool
	SendEmail(toAddress, toName, subject, plainTextContent, htmlContent string) error
	SendSMS(toNumber, body string) error
}

// SenderService sends booking confirmations. Deliveries run in the background
// so a slow provider never holds up the booking response; Wait drains them.
type SenderService struct {
	messenger messenger
	location  *time.Location
	logger    *slog.Logger
	wg        sync.WaitGroup
}

func NewSenderService(m messenger, loc *time.Location, logger *slog.Logger) *SenderService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SenderService{messenger: m, location: loc, logger: logger}
}

// MeetingBooked queues the confirmation email and SMS. Only a failure to
// render the email is returned; delivery failures are logged.
func (s *SenderService) MeetingBooked(ctx context.Context, m db.Meeting) error {
	var renderErr error
	if s.messenger.EmailEnabled() && m.Email != "" {
		renderErr = s.sendMeetingEmail(ctx, m)
	}
	if s.messenger.SMSEnabled() && m.PhoneNumber != "" {
		s.wg.Add(1)
		go func(to, body string) {
			defer s.wg.Done()
			if err := s.messenger.SendSMS(to, body); err != nil {
				s.logger.ErrorContext(ctx, "confirmation sms failed", "meeting_id", m.ID, "to", to, "error", err)
			}
		}(m.PhoneNumber, s.smsBody(m))
	}
	if renderErr != nil {
		return fmt.Errorf("confirmation email for meeting %s: %w", m.ID, renderErr)
	}
	return nil
}

// Wait blocks until background deliveries finish.
func (s *SenderService) Wait() {
	s.wg.Wait()
}

func (s *SenderService) sendMeetingEmail(ctx context.Context, m db.Meeting) error {
	data := entities.MeetingEmailData{
		UserName:           m.FullName,
		MeetingID:          m.ID,
		StartTimeFormatted: m.StartTime.In(s.location).Format("Monday, 02 Jan 2006 15:04 MST"),
		EndTimeFormatted:   m.EndTime.In(s.location).Format("15:04 MST"),
		JoinLink:           m.ExternalJoinLink,
		Notes:              m.Notes,
		CurrentYear:        time.Now().In(s.location).Year(),
	}

	var html bytes.Buffer
	if err := meetingEmailTemplate.Execute(&html, data); err != nil {
		return err
	}
	subject := fmt.Sprintf("Your meeting is confirmed for %s", data.StartTimeFormatted)
	plain := plainEmailBody(data)

	s.wg.Add(1)
	go func(to, name, subject, plain, html string) {
		defer s.wg.Done()
		if err := s.messenger.SendEmail(to, name, subject, plain, html); err != nil {
			s.logger.ErrorContext(ctx, "confirmation email failed", "meeting_id", m.ID, "to", to, "error", err)
		}
	}(m.Email, m.FullName, subject, plain, html.String())
	return nil
}

func (s *SenderService) smsBody(m db.Meeting) string {
	body := fmt.Sprintf("Coworkspace: your meeting is confirmed for %s.",
		m.StartTime.In(s.location).Format("02/01 15:04"))
	if m.ExternalJoinLink != "" {
		body += "\nJoin: " + m.ExternalJoinLink
	}
	return body
}

func plainEmailBody(d entities.MeetingEmailData) string {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour meeting with our sales team is confirmed.\n\n"+
			"Reference: %s\n"+
			"Starts: %s\n"+
			"Ends: %s\n",
		d.UserName, d.MeetingID, d.StartTimeFormatted, d.EndTimeFormatted,
	)
	if d.JoinLink != "" {
		body += "Join: " + d.JoinLink + "\n"
	} else {
		body += "\nWe will send you the meeting link separately.\n"
	}
	return body + fmt.Sprintf("\n%d Coworkspace. All rights reserved.", d.CurrentYear)
}
