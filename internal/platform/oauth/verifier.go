// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package oauth exchanges a social provider token for the identity it belongs to.

Each provider is queried over HTTPS with the client-supplied token; nothing is
stored. Only identities with an email address the provider vouches for are
accepted.

Supported providers: google (ID token), github (OAuth access token),
facebook (user access token).
*/
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Provider identifies a social identity provider.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderGitHub   Provider = "github"
	ProviderFacebook Provider = "facebook"
)

var (
	// ErrUnsupportedProvider is returned for provider names not listed above.
	ErrUnsupportedProvider = errors.New("oauth: unsupported provider")

	// ErrRejected is returned when the provider does not accept the token or
	// does not vouch for an email address.
	ErrRejected = errors.New("oauth: token rejected by provider")
)

// ExternalUser is the identity asserted by a provider.
type ExternalUser struct {
	Provider Provider
	Subject  string
	Email    string
	Name     string
}

// Endpoints holds the provider API roots. Zero values use the public endpoints.
type Endpoints struct {
	GoogleTokenInfo string
	GitHubAPI       string
	FacebookGraph   string
}

func (endpoints Endpoints) withDefaults() Endpoints {
	if endpoints.GoogleTokenInfo == "" {
		endpoints.GoogleTokenInfo = "https://oauth2.googleapis.com/tokeninfo"
	}
	if endpoints.GitHubAPI == "" {
		endpoints.GitHubAPI = "https://api.github.com"
	}
	if endpoints.FacebookGraph == "" {
		endpoints.FacebookGraph = "https://graph.facebook.com"
	}
	return endpoints
}

// Verifier resolves provider tokens into [ExternalUser] values.
type Verifier struct {
	client         *http.Client
	endpoints      Endpoints
	googleClientID string
}

// NewVerifier creates a Verifier. When googleClientID is set, Google ID tokens
// must have been issued for that audience.
func NewVerifier(client *http.Client, endpoints Endpoints, googleClientID string) *Verifier {
	return &Verifier{
		client:         client,
		endpoints:      endpoints.withDefaults(),
		googleClientID: googleClientID,
	}
}

// Supported reports whether provider can be verified.
func Supported(provider string) bool {
	switch Provider(provider) {
	case ProviderGoogle, ProviderGitHub, ProviderFacebook:
		return true
	}
	return false
}

// Exchange asks provider who token belongs to.
func (verifier *Verifier) Exchange(ctx context.Context, provider, token string) (*ExternalUser, error) {
	switch Provider(provider) {
	case ProviderGoogle:
		return verifier.google(ctx, token)
	case ProviderGitHub:
		return verifier.github(ctx, token)
	case ProviderFacebook:
		return verifier.facebook(ctx, token)
	default:
		return nil, ErrUnsupportedProvider
	}
}

// # Providers

func (verifier *Verifier) google(ctx context.Context, token string) (*ExternalUser, error) {
	var payload struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified string `json:"email_verified"`
		Audience      string `json:"aud"`
		Name          string `json:"name"`
	}

	endpoint := verifier.endpoints.GoogleTokenInfo + "?" + url.Values{"id_token": {token}}.Encode()
	if err := verifier.getJSON(ctx, endpoint, "", &payload); err != nil {
		return nil, err
	}

	if payload.EmailVerified != "true" || payload.Email == "" {
		return nil, ErrRejected
	}
	if verifier.googleClientID != "" && payload.Audience != verifier.googleClientID {
		return nil, ErrRejected
	}

	return &ExternalUser{Provider: ProviderGoogle, Subject: payload.Subject, Email: payload.Email, Name: payload.Name}, nil
}

func (verifier *Verifier) github(ctx context.Context, token string) (*ExternalUser, error) {
	var profile struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
	}
	if err := verifier.getJSON(ctx, verifier.endpoints.GitHubAPI+"/user", token, &profile); err != nil {
		return nil, err
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := verifier.getJSON(ctx, verifier.endpoints.GitHubAPI+"/user/emails", token, &emails); err != nil {
		return nil, err
	}

	for _, email := range emails {
		if email.Primary && email.Verified {
			name := profile.Name
			if name == "" {
				name = profile.Login
			}
			return &ExternalUser{Provider: ProviderGitHub, Subject: fmt.Sprint(profile.ID), Email: email.Email, Name: name}, nil
		}
	}
	return nil, ErrRejected
}

func (verifier *Verifier) facebook(ctx context.Context, token string) (*ExternalUser, error) {
	var payload struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	endpoint := verifier.endpoints.FacebookGraph + "/me?" + url.Values{
		"fields":       {"id,name,email"},
		"access_token": {token},
	}.Encode()
	if err := verifier.getJSON(ctx, endpoint, "", &payload); err != nil {
		return nil, err
	}

	if payload.Email == "" {
		return nil, ErrRejected
	}
	return &ExternalUser{Provider: ProviderFacebook, Subject: payload.ID, Email: payload.Email, Name: payload.Name}, nil
}

// # Transport

func (verifier *Verifier) getJSON(ctx context.Context, endpoint, bearer string, target any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("oauth_request_failed: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	if bearer != "" {
		request.Header.Set("Authorization", "Bearer "+bearer)
	}

	response, err := verifier.client.Do(request)
	if err != nil {
		return fmt.Errorf("oauth_provider_unreachable: %w", err)
	}
	defer response.Body.Close()

	// 4xx means the provider refused the token
	if response.StatusCode >= 400 && response.StatusCode < 500 {
		return ErrRejected
	}
	if response.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(response.Body, 256))
		return fmt.Errorf("oauth_provider_error: status %d: %s", response.StatusCode, strings.TrimSpace(string(detail)))
	}

	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		return fmt.Errorf("oauth_decode_failed: %w", err)
	}
	return nil
}
