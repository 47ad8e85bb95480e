// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// twilioBaseURL is the Twilio REST API root.
const twilioBaseURL = "https://api.twilio.com"

// TwilioSMS sends text messages through the Twilio Messages API.
type TwilioSMS struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
}

// NewTwilioSMS creates a Twilio sender.
func NewTwilioSMS(accountSID, authToken, from string, client *http.Client) *TwilioSMS {
	return &TwilioSMS{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    twilioBaseURL,
		client:     client,
	}
}

// WithBaseURL points the sender at another API root.
func (sender *TwilioSMS) WithBaseURL(baseURL string) *TwilioSMS {
	sender.baseURL = strings.TrimRight(baseURL, "/")
	return sender
}

// SendSMS implements [SMSSender].
func (sender *TwilioSMS) SendSMS(ctx context.Context, to, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", sender.baseURL, sender.accountSID)
	form := url.Values{"To": {to}, "From": {sender.from}, "Body": {body}}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("notify_twilio_request_failed: %w", err)
	}
	request.SetBasicAuth(sender.accountSID, sender.authToken)
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := sender.client.Do(request)
	if err != nil {
		return fmt.Errorf("notify_twilio_send_failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return fmt.Errorf("notify_twilio_send_failed: status %d: %s", response.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
