// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/constants"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/users/account"
)

// # Token Issuance

// TokenPair is the transport form of a freshly issued session.
//
// AccessTokenExpiry is a display value fixed at issuance plus
// [constants.AccessTokenDisplayTTL]; the signed expiry of the access token is
// governed by Policy.AccessTokenTTL.
type TokenPair struct {
	AccessToken       string       `json:"access_token"`
	RefreshToken      string       `json:"refresh_token"`
	AccessTokenExpiry time.Time    `json:"access_token_expiry"`
	UserRole          sec.UserRole `json:"user_role"`
	UserID            string       `json:"user_id"`
}

// errInvalidRefresh is returned for every refresh token that cannot be honored.
func errInvalidRefresh() *apperr.AppError {
	return apperr.Unauthorized("Invalid refresh token").WithCode(CodeTokenInvalid)
}

/*
Issue signs a new access/refresh pair for an account.

Parameters:
  - context: context.Context
  - subject: *account.Account

Returns:
  - *TokenPair: Signed tokens with display metadata
  - error: Signing failures
*/
func (service *Service) Issue(context context.Context, subject *account.Account) (*TokenPair, error) {
	access, _, err := service.tokens.GenerateAccessToken(subject.Subject(), service.policy.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	refresh, _, err := service.tokens.GenerateRefreshToken(subject.Subject(), service.policy.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	service.logger.InfoContext(context, "tokens_issued", slog.String("user_id", subject.ID))

	return &TokenPair{
		AccessToken:       access,
		RefreshToken:      refresh,
		AccessTokenExpiry: service.clock.Now().Add(constants.AccessTokenDisplayTTL),
		UserRole:          subject.Role,
		UserID:            subject.ID,
	}, nil
}

/*
Refresh rotates a refresh token into a new pair.

Description: Implements refresh token rotation. The presented token must
verify, must not be blacklisted, and must belong to an account that may still
sign in. The old jti is revoked before the new pair is issued; a concurrent
replay of the same token loses the insert race and is rejected.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *TokenPair: New credentials
  - error: Unauthorized (TOKEN_INVALID) or account state errors
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := service.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, errInvalidRefresh()
	}

	revoked, err := service.revocationRepository.IsRevoked(context, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_lookup_failed: %w", err)
	}
	if revoked {
		return nil, errInvalidRefresh()
	}

	// 1. Account must still be allowed to hold a session
	subject, err := service.accountRepository.FindByID(context, claims.UserID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, errInvalidRefresh()
		}
		return nil, fmt.Errorf("auth_service_refresh_lookup_failed: %w", err)
	}

	if !subject.IsActive {
		return nil, errDeactivated()
	}
	if subject.AuthProvider == account.ProviderEmail && !subject.IsEmailVerified {
		return nil, errEmailUnverified()
	}

	// 2. Rotation: claim the old jti
	inserted, err := service.revocationRepository.Revoke(context, claims.ID, claims.UserID, claims.ExpiresAt.Time)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_revoke_failed: %w", err)
	}
	if !inserted {
		service.logger.WarnContext(context, "refresh_token_replayed", slog.String("user_id", claims.UserID))
		return nil, errInvalidRefresh()
	}

	return service.Issue(context, subject)
}

/*
Logout blacklists a refresh token.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - error: Unauthorized for unverifiable tokens, storage failures otherwise
*/
func (service *Service) Logout(context context.Context, refreshToken string) error {
	claims, err := service.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return errInvalidRefresh()
	}

	if _, err := service.revocationRepository.Revoke(context, claims.ID, claims.UserID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	service.logger.InfoContext(context, "user_logged_out", slog.String("user_id", claims.UserID))
	return nil
}
