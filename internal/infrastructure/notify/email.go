package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// EmailSender delivers provider alerts.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	log       *logrus.Logger
}

// NewSendGridSender returns nil without an API key so callers can fall back to the stub.
func NewSendGridSender(apiKey, fromEmail, fromName string, log *logrus.Logger) *SendGridSender {
	if apiKey == "" {
		return nil
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
		log:       log,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.client == nil {
		return ErrNotConfigured
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, "")

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("notify: sendgrid returned status %d", resp.StatusCode)
	}

	s.log.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("Email sent via SendGrid")
	return nil
}

// StubEmailSender logs instead of sending.
type StubEmailSender struct {
	log *logrus.Logger
}

func NewStubEmailSender(log *logrus.Logger) *StubEmailSender {
	return &StubEmailSender{log: log}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.log.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("Email sender disabled, skipping")
	return nil
}

var (
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
)
