// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// # Outbound Pacing

// Providers reject bursts above their throughput (a Twilio long code takes
// one message per second), so real drivers are wrapped in a token bucket
// shared by every request of this process. A send waits for a token until
// its context expires.

// PacedMailer spaces out calls to the wrapped [Mailer].
type PacedMailer struct {
	next    Mailer
	limiter *rate.Limiter
}

// NewPacedMailer wraps next; a non-positive perSecond disables pacing.
func NewPacedMailer(next Mailer, perSecond float64) Mailer {
	if perSecond <= 0 {
		return next
	}
	return &PacedMailer{next: next, limiter: newBucket(perSecond)}
}

// SendEmail implements [Mailer].
func (mailer *PacedMailer) SendEmail(ctx context.Context, email Email) error {
	if err := mailer.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notify_mail_paced_out: %w", err)
	}
	return mailer.next.SendEmail(ctx, email)
}

// PacedSMS spaces out calls to the wrapped [SMSSender].
type PacedSMS struct {
	next    SMSSender
	limiter *rate.Limiter
}

// NewPacedSMS wraps next; a non-positive perSecond disables pacing.
func NewPacedSMS(next SMSSender, perSecond float64) SMSSender {
	if perSecond <= 0 {
		return next
	}
	return &PacedSMS{next: next, limiter: newBucket(perSecond)}
}

// SendSMS implements [SMSSender].
func (sender *PacedSMS) SendSMS(ctx context.Context, to, body string) error {
	if err := sender.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notify_sms_paced_out: %w", err)
	}
	return sender.next.SendSMS(ctx, to, body)
}

// newBucket allows one second worth of messages as a burst, at least one.
func newBucket(perSecond float64) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
}
