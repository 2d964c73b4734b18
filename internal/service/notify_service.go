package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

var (
	ErrEmailNotConfigured = errors.New("sendgrid is not configured")
	ErrSMSNotConfigured   = errors.New("twilio is not configured")
)

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

type emailClient interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

type smsClient interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// Messenger delivers email through SendGrid and SMS through Twilio. Either
// channel may be left unconfigured.
type Messenger struct {
	email      emailClient
	sms        smsClient
	from       *mail.Email
	fromNumber string
	logger     *slog.Logger
}

func NewMessenger(sg SendGridConfig, tw TwilioConfig, logger *slog.Logger) *Messenger {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Messenger{logger: logger}

	if sg.APIKey != "" && sg.FromEmail != "" {
		fromName := sg.FromName
		if fromName == "" {
			fromName = "Coworkspace"
		}
		m.email = sendgrid.NewSendClient(sg.APIKey)
		m.from = mail.NewEmail(fromName, sg.FromEmail)
	} else {
		logger.Warn("SENDGRID_API_KEY or SENDGRID_FROM_EMAIL not set; confirmation emails disabled")
	}

	if tw.AccountSID != "" && tw.AuthToken != "" && tw.FromNumber != "" {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username:   tw.AccountSID,
			Password:   tw.AuthToken,
			AccountSid: tw.AccountSID,
		})
		m.sms = client.Api
		m.fromNumber = tw.FromNumber
	} else {
		logger.Warn("Twilio credentials not set; confirmation SMS disabled")
	}
	return m
}

func (m *Messenger) EmailEnabled() bool { return m.email != nil }

func (m *Messenger) SMSEnabled() bool { return m.sms != nil }

func (m *Messenger) SendEmail(toAddress, toName, subject, plainTextContent, htmlContent string) error {
	if m.email == nil {
		return ErrEmailNotConfigured
	}
	to := mail.NewEmail(toName, toAddress)
	message := mail.NewSingleEmail(m.from, subject, to, plainTextContent, htmlContent)

	response, err := m.email.Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid send to %s: %w", toAddress, err)
	}
	if response.StatusCode >= 200 && response.StatusCode < 300 {
		m.logger.Info("email sent", "to", toAddress, "subject", subject, "status", response.StatusCode)
		return nil
	}
	return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
}

func (m *Messenger) SendSMS(toNumber, body string) error {
	if m.sms == nil {
		return ErrSMSNotConfigured
	}
	if !strings.HasPrefix(toNumber, "+") {
		m.logger.Warn("destination number is not in E.164 format; SMS may fail", "to", toNumber)
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(toNumber)
	params.SetFrom(m.fromNumber)
	params.SetBody(body)

	resp, err := m.sms.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send to %s: %w", toNumber, err)
	}
	if resp != nil && resp.Sid != nil {
		m.logger.Info("sms sent", "to", toNumber, "sid", *resp.Sid)
	}
	return nil
}
