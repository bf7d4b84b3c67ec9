package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/evcraddock/field-visits/internal/email"
	"github.com/evcraddock/field-visits/internal/visit"
)

// Notifier delivers a reminder for one entry.
type Notifier interface {
	Notify(ctx context.Context, e visit.Entry) error
}

// LogNotifier writes reminders to the structured log.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(ctx context.Context, e visit.Entry) error {
	slog.InfoContext(ctx, "reminder due",
		"id", e.ID.String(),
		"company", e.CompanyName,
		"reminder", e.Reminder,
		"message", Message(e),
	)
	return nil
}

// messageCreator is the part of the Twilio API the notifier needs.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMSConfig holds Twilio credentials and phone numbers.
type SMSConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	To         string
}

// SMSNotifier texts reminders to the rep's phone through Twilio.
type SMSNotifier struct {
	api  messageCreator
	from string
	to   string
}

// NewSMSNotifier creates a Twilio-backed notifier.
func NewSMSNotifier(cfg SMSConfig) (*SMSNotifier, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required")
	}
	if cfg.From == "" || cfg.To == "" {
		return nil, fmt.Errorf("sender and recipient phone numbers are required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &SMSNotifier{api: client.Api, from: cfg.From, to: cfg.To}, nil
}

// Notify implements Notifier.
func (n *SMSNotifier) Notify(ctx context.Context, e visit.Entry) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(n.to)
	params.SetFrom(n.from)
	params.SetBody(Message(e))

	resp, err := n.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("sending reminder for %s: %w", e.ID, err)
	}
	if resp != nil && resp.Sid != nil {
		slog.InfoContext(ctx, "reminder sent", "id", e.ID.String(), "sid", *resp.Sid)
	}
	return nil
}

// mailSender is the part of email.Mailer the notifier needs.
type mailSender interface {
	Send(to []string, subject, body string) error
}

// EmailNotifier mails reminders over SMTP.
type EmailNotifier struct {
	mailer mailSender
	to     []string
}

// NewEmailNotifier creates an SMTP-backed notifier sending to the given addresses.
func NewEmailNotifier(cfg email.SMTPConfig, to ...string) (*EmailNotifier, error) {
	if len(to) == 0 {
		return nil, fmt.Errorf("recipient email address is required")
	}
	m, err := email.NewMailer(cfg)
	if err != nil {
		return nil, err
	}
	return &EmailNotifier{mailer: m, to: to}, nil
}

// Notify implements Notifier.
func (n *EmailNotifier) Notify(ctx context.Context, e visit.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.mailer.Send(n.to, email.ReminderSubject(e), email.FormatReminder(e)); err != nil {
		return fmt.Errorf("mailing reminder for %s: %w", e.ID, err)
	}
	slog.InfoContext(ctx, "reminder mailed", "id", e.ID.String(), "to", len(n.to))
	return nil
}

// Multi delivers each reminder through every notifier, continuing past failures.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, e visit.Entry) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
