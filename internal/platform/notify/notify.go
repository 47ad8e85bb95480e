// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package notify delivers outbound email and SMS messages.

Delivery is synchronous and never retried here: a failed send is returned to
the caller, which reports it to the user.

Drivers:

  - log: writes the message to the structured log (development, tests).
  - smtp: plain SMTP with PLAIN auth over STARTTLS.
  - twilio: Twilio Programmable Messaging REST API.

The smtp and twilio drivers are paced by a per-process token bucket.
*/
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Email is a single outbound email.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends emails.
type Mailer interface {
	SendEmail(ctx context.Context, email Email) error
}

// SMSSender sends text messages to an E.164 phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// # Log Driver

// LogMailer writes emails to the log instead of sending them.
// Development only: bodies (codes, links) are logged in clear.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a [LogMailer].
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendEmail implements [Mailer].
func (mailer *LogMailer) SendEmail(ctx context.Context, email Email) error {
	mailer.logger.InfoContext(ctx, "email_dispatched",
		slog.String("to", email.To),
		slog.String("subject", email.Subject),
		slog.String("body", email.Body),
	)
	return nil
}

// LogSMS writes text messages to the log instead of sending them.
type LogSMS struct {
	logger *slog.Logger
}

// NewLogSMS creates a [LogSMS].
func NewLogSMS(logger *slog.Logger) *LogSMS {
	return &LogSMS{logger: logger}
}

// SendSMS implements [SMSSender].
func (sender *LogSMS) SendSMS(ctx context.Context, to, body string) error {
	sender.logger.InfoContext(ctx, "sms_dispatched",
		slog.String("to", to),
		slog.String("body", body),
	)
	return nil
}

// # Driver Selection

// MailerConfig selects and configures the mail driver.
type MailerConfig struct {
	Driver   string
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// SendRate caps messages per second for real relays, 0 for no cap.
	SendRate float64
}

// NewMailer builds the [Mailer] named by cfg.Driver.
func NewMailer(cfg MailerConfig, logger *slog.Logger) (Mailer, error) {
	switch cfg.Driver {
	case "", "log":
		return NewLogMailer(logger), nil
	case "smtp":
		if cfg.Host == "" {
			return nil, fmt.Errorf("notify: SMTP_HOST is required for the smtp driver")
		}
		return NewPacedMailer(NewSMTPMailer(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.From), cfg.SendRate), nil
	default:
		return nil, fmt.Errorf("notify: unknown mail driver %q", cfg.Driver)
	}
}

// SMSConfig selects and configures the SMS driver.
type SMSConfig struct {
	Driver     string
	AccountSID string
	AuthToken  string
	FromNumber string

	// SendRate caps messages per second for Twilio, 0 for no cap.
	SendRate float64
}

// NewSMSSender builds the [SMSSender] named by cfg.Driver.
func NewSMSSender(cfg SMSConfig, logger *slog.Logger) (SMSSender, error) {
	switch cfg.Driver {
	case "", "log":
		return NewLogSMS(logger), nil
	case "twilio":
		if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" {
			return nil, fmt.Errorf("notify: TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER are required")
		}
		twilio := NewTwilioSMS(cfg.AccountSID, cfg.AuthToken, cfg.FromNumber, &http.Client{Timeout: 10 * time.Second})
		return NewPacedSMS(twilio, cfg.SendRate), nil
	default:
		return nil, fmt.Errorf("notify: unknown sms driver %q", cfg.Driver)
	}
}
