// Package email formats follow-up reminders and sends them over SMTP.
package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/evcraddock/field-visits/internal/visit"
)

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

// IsConfigured returns true if SMTP settings are present.
func (c SMTPConfig) IsConfigured() bool {
	return c.Host != "" && c.From != ""
}

func (c SMTPConfig) addr() string {
	port := c.Port
	if port == "" {
		port = "587"
	}
	return c.Host + ":" + port
}

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends plain-text mail through one SMTP server.
type Mailer struct {
	cfg  SMTPConfig
	send sendFunc
	now  func() time.Time
}

// NewMailer creates a mailer. Port 465 uses implicit TLS, anything else STARTTLS.
func NewMailer(cfg SMTPConfig) (*Mailer, error) {
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("SMTP not configured")
	}
	m := &Mailer{cfg: cfg, send: smtp.SendMail, now: time.Now}
	if cfg.Port == "465" {
		m.send = m.sendImplicitTLS
	}
	return m, nil
}

// Send delivers one message.
func (m *Mailer) Send(to []string, subject, body string) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}

	msg := buildMessage(m.cfg.From, to, subject, body, m.now())
	if err := m.send(m.cfg.addr(), auth, m.cfg.From, to, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

func buildMessage(from string, to []string, subject, body string, date time.Time) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", date.Format(time.RFC1123Z))
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(body)
	return buf.Bytes()
}

// sendImplicitTLS connects over TLS directly (port 465/SMTPS).
func (m *Mailer) sendImplicitTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) (err error) {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return fmt.Errorf("TLS dial: %w", err)
	}

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer func() {
		if quitErr := c.Quit(); quitErr != nil && err == nil {
			err = fmt.Errorf("quit: %w", quitErr)
		}
	}()

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return w.Close()
}

// ReminderSubject is the subject line for one entry's reminder.
func ReminderSubject(e visit.Entry) string {
	return "Follow-up due: " + e.CompanyName
}

// FormatReminder builds a plain-text reminder body for one entry.
func FormatReminder(e visit.Entry) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Hi,\n\nA follow-up is due for %s.\n\n", e.CompanyName)
	fmt.Fprintf(&buf, "Reminder: %s\n", e.Reminder)
	fmt.Fprintf(&buf, "Visited:  %s\n", e.Date)
	fmt.Fprintf(&buf, "Status:   %s\n", e.EffectiveStatus().Label())
	if e.Address != "" {
		fmt.Fprintf(&buf, "Address:  %s\n", e.Address)
	}

	if len(e.Contacts) > 0 {
		fmt.Fprintf(&buf, "\nContacts:\n")
		for _, c := range e.Contacts {
			var details []string
			if c.Phone != "" {
				details = append(details, c.Phone)
			}
			if c.Email != "" {
				details = append(details, c.Email)
			}
			if len(details) > 0 {
				fmt.Fprintf(&buf, "  - %s (%s)\n", c.ContactName, strings.Join(details, " | "))
			} else {
				fmt.Fprintf(&buf, "  - %s\n", c.ContactName)
			}
		}
	}

	if e.Notes != "" {
		fmt.Fprintf(&buf, "\nNotes:\n  %s\n", e.Notes)
	}

	fmt.Fprintf(&buf, "\nThanks!\n")

	return buf.String()
}
