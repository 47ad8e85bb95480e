// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/oauth"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/platform/validate"
	"github.com/taibuivan/quill/internal/users/account"
)

// # Social Sign-In

// SocialInput carries a provider token presented by the client.
type SocialInput struct {
	Provider string
	Token    string
}

/*
SocialLogin signs in, or signs up, through a social identity provider.

Description: The provider vouches for the email address. An existing account
must have been created with the same provider and still be active. A new
account is created verified and active with a random password that is never
disclosed.

Parameters:
  - context: context.Context
  - input: SocialInput

Returns:
  - *TokenPair: Issued tokens
  - error: Unsupported provider, rejected token, WRONG_PROVIDER or
    ACCOUNT_DEACTIVATED
*/
func (service *Service) SocialLogin(context context.Context, input SocialInput) (*TokenPair, error) {
	validator := &validate.Validator{}
	validator.Required("provider", input.Provider).Required("token", input.Token)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if !oauth.Supported(input.Provider) {
		return nil, apperr.BadRequest(fmt.Sprintf("Provider %s is not supported.", input.Provider))
	}

	// 1. Provider exchange
	external, err := service.social.Exchange(context, input.Provider, input.Token)
	if err != nil {
		switch {
		case errors.Is(err, oauth.ErrRejected):
			return nil, apperr.BadRequest("Invalid social token.").WithCode(CodeTokenInvalid)
		case errors.Is(err, oauth.ErrUnsupportedProvider):
			return nil, apperr.BadRequest(fmt.Sprintf("Provider %s is not supported.", input.Provider))
		}
		return nil, fmt.Errorf("auth_service_social_exchange_failed: %w", err)
	}

	provider := account.Provider(external.Provider)
	email := account.NormalizeEmail(external.Email)

	// 2. Existing account
	subject, err := service.accountRepository.FindByEmail(context, email)
	switch {
	case err == nil:
		if subject.AuthProvider != provider {
			return nil, apperr.BusinessRule(fmt.Sprintf(
				"User with this email already created using %s. Please login using %s.",
				subject.AuthProvider, subject.AuthProvider,
			)).WithCode(CodeWrongProvider)
		}
		if !subject.IsActive {
			return nil, apperr.BusinessRule("Account is deactivated. Contact your admin.").WithCode(CodeAccountDeactivated)
		}
		return service.Issue(context, subject)

	case !apperr.IsNotFound(err):
		return nil, fmt.Errorf("auth_service_social_lookup_failed: %w", err)
	}

	// 3. First sign-in
	subject, err = service.createSocialAccount(context, email, provider, external.Name)
	if err != nil {
		return nil, err
	}
	return service.Issue(context, subject)
}

// createSocialAccount persists a verified account for a provider identity.
func (service *Service) createSocialAccount(context context.Context, email string, provider account.Provider, name string) (*account.Account, error) {
	password, err := sec.RandomPassword(SocialPasswordLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_social_password_failed: %w", err)
	}

	hash, err := sec.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	firstName, lastName, _ := strings.Cut(strings.TrimSpace(name), " ")

	subject := account.NewAccount(account.NewAccountInput{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		Provider:     provider,
		Verified:     true,
	}, service.clock.Now())

	if err := service.accountRepository.Create(context, subject); err != nil {
		return nil, fmt.Errorf("auth_service_social_create_failed: %w", err)
	}

	service.logger.InfoContext(context, "social_account_created",
		slog.String("user_id", subject.ID),
		slog.String("provider", string(provider)),
	)
	return subject, nil
}
