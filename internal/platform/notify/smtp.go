// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// SMTPMailer sends email through an SMTP relay.
type SMTPMailer struct {
	address  string
	host     string
	username string
	password string
	from     string
	send     func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer creates a mailer for host:port. PLAIN auth is used when a username is set.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		address:  net.JoinHostPort(host, strconv.Itoa(port)),
		host:     host,
		username: username,
		password: password,
		from:     from,
		send:     smtp.SendMail,
	}
}

// SendEmail implements [Mailer].
func (mailer *SMTPMailer) SendEmail(ctx context.Context, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if mailer.username != "" {
		auth = smtp.PlainAuth("", mailer.username, mailer.password, mailer.host)
	}

	if err := mailer.send(mailer.address, auth, mailer.from, []string{email.To}, mailer.compose(email)); err != nil {
		return fmt.Errorf("notify_smtp_send_failed: %w", err)
	}
	return nil
}

// compose renders a minimal RFC 5322 text/plain message.
func (mailer *SMTPMailer) compose(email Email) []byte {
	var builder strings.Builder
	builder.WriteString("From: " + mailer.from + "\r\n")
	builder.WriteString("To: " + email.To + "\r\n")
	builder.WriteString("Subject: " + sanitizeHeader(email.Subject) + "\r\n")
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(email.Body)
	return []byte(builder.String())
}

func sanitizeHeader(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}
