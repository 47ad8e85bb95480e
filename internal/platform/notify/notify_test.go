// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
TestSMTPMailer_SendEmail verifies the relay address, envelope and rendered message.
*/
func TestSMTPMailer_SendEmail(t *testing.T) {
	mailer := NewSMTPMailer("smtp.example.com", 587, "user", "pass", "no-reply@quill.app")

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	mailer.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		assert.NotNil(t, auth)
		return nil
	}

	err := mailer.SendEmail(context.Background(), Email{
		To:      "ada@example.com",
		Subject: "Verify\r\nBcc: evil@example.com",
		Body:    "Your one-time code is 123456.",
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "no-reply@quill.app", gotFrom)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Verify  Bcc: evil@example.com\r\n")
	assert.Contains(t, string(gotMsg), "\r\n\r\nYour one-time code is 123456.")
}

/*
TestSMTPMailer_SendError verifies that relay failures are returned to the caller.
*/
func TestSMTPMailer_SendError(t *testing.T) {
	mailer := NewSMTPMailer("smtp.example.com", 25, "", "", "no-reply@quill.app")
	mailer.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := mailer.SendEmail(context.Background(), Email{To: "ada@example.com"})
	assert.ErrorContains(t, err, "connection refused")
}

/*
TestTwilioSMS_SendSMS verifies the request shape and error propagation.
*/
func TestTwilioSMS_SendSMS(t *testing.T) {
	var form url.Values
	status := http.StatusCreated

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", request.URL.Path)
		user, pass, ok := request.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		body, _ := io.ReadAll(request.Body)
		form, _ = url.ParseQuery(string(body))

		writer.WriteHeader(status)
		_, _ = writer.Write([]byte(`{"message":"bad number"}`))
	}))
	defer server.Close()

	sender := NewTwilioSMS("AC123", "secret", "+15005550006", server.Client()).WithBaseURL(server.URL)

	require.NoError(t, sender.SendSMS(context.Background(), "+14155550100", "Code: 654321"))
	assert.Equal(t, "+14155550100", form.Get("To"))
	assert.Equal(t, "+15005550006", form.Get("From"))
	assert.Equal(t, "Code: 654321", form.Get("Body"))

	status = http.StatusBadRequest
	err := sender.SendSMS(context.Background(), "+1", "Code")
	assert.ErrorContains(t, err, "status 400")
}

/*
TestDriverSelection covers driver names and required settings.
*/
func TestDriverSelection(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mailer, err := NewMailer(MailerConfig{Driver: "log"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, mailer)

	_, err = NewMailer(MailerConfig{Driver: "smtp"}, logger)
	assert.Error(t, err)

	_, err = NewMailer(MailerConfig{Driver: "carrier-pigeon"}, logger)
	assert.Error(t, err)

	sms, err := NewSMSSender(SMSConfig{}, logger)
	require.NoError(t, err)
	assert.IsType(t, &LogSMS{}, sms)

	_, err = NewSMSSender(SMSConfig{Driver: "twilio", AccountSID: "AC1"}, logger)
	assert.Error(t, err)

	sms, err = NewSMSSender(SMSConfig{Driver: "twilio", AccountSID: "AC1", AuthToken: "t", FromNumber: "+1", SendRate: 1}, logger)
	require.NoError(t, err)
	assert.IsType(t, &PacedSMS{}, sms)

	mailer, err = NewMailer(MailerConfig{Driver: "smtp", Host: "smtp.example.com"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, mailer)
}

type countingSMS struct {
	sent int
}

func (sender *countingSMS) SendSMS(context.Context, string, string) error {
	sender.sent++
	return nil
}

type countingMailer struct {
	sent int
}

func (mailer *countingMailer) SendEmail(context.Context, Email) error {
	mailer.sent++
	return nil
}

/*
TestPacing verifies that a send beyond the burst waits for a token and gives
up, without reaching the provider, when the context cannot wait that long.
*/
func TestPacing(t *testing.T) {
	t.Run("sms", func(t *testing.T) {
		inner := &countingSMS{}
		sender := NewPacedSMS(inner, 0.001)

		require.NoError(t, sender.SendSMS(context.Background(), "+1", "first"))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := sender.SendSMS(ctx, "+1", "second")
		assert.ErrorContains(t, err, "notify_sms_paced_out")
		assert.Equal(t, 1, inner.sent)
	})

	t.Run("mail", func(t *testing.T) {
		inner := &countingMailer{}
		mailer := NewPacedMailer(inner, 0.001)

		require.NoError(t, mailer.SendEmail(context.Background(), Email{To: "a@quill.app"}))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := mailer.SendEmail(ctx, Email{To: "b@quill.app"})
		assert.ErrorContains(t, err, "notify_mail_paced_out")
		assert.Equal(t, 1, inner.sent)
	})

	t.Run("disabled", func(t *testing.T) {
		inner := &countingSMS{}
		assert.Same(t, inner, NewPacedSMS(inner, 0))
	})
}
