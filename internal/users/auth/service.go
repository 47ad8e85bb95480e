// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the authentication state machine.

It covers password login with a time-windowed lockout counter, email OTP as a
second factor, RS256 access/refresh token issuance with refresh rotation and
logout revocation, signed email links for verification and password reset,
SMS codes for phone verification, and social sign-in.

Architecture:

  - Service: Orchestrates the flows (Login, OTP, Tokens, Verification, Social).
  - OTPSessionStore: Pending logins and phone codes in the TTL cache.
  - RevocationRepository: Refresh token blacklist in Postgres.
  - Sweeper: Periodic cleanup of expired blacklist rows.
*/
package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/taibuivan/quill/internal/platform/notify"
	"github.com/taibuivan/quill/internal/platform/oauth"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/users/account"
)

// # Contracts & Types

// TokenIssuer signs and verifies the access/refresh pair. Satisfied by
// [sec.TokenService].
type TokenIssuer interface {
	GenerateAccessToken(subject sec.Subject, timeToLive time.Duration) (string, *sec.AuthClaims, error)
	GenerateRefreshToken(subject sec.Subject, timeToLive time.Duration) (string, *sec.AuthClaims, error)
	VerifyRefreshToken(tokenString string) (*sec.AuthClaims, error)
}

// SocialVerifier exchanges a provider token for the external identity.
// Satisfied by [oauth.Verifier].
type SocialVerifier interface {
	Exchange(ctx context.Context, provider, token string) (*oauth.ExternalUser, error)
}

// Policy carries the tunable limits of the auth flows.
type Policy struct {
	MaxLoginFailures int
	FailureWindow    time.Duration
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	FrontendURL      string
}

// Dependencies groups the collaborators of [Service].
type Dependencies struct {
	Accounts    account.AccountRepository
	Revocations RevocationRepository
	Sessions    *OTPSessionStore
	Tokens      TokenIssuer
	Links       *sec.LinkSigner
	Sealer      *sec.Sealer
	Mailer      notify.Mailer
	SMS         notify.SMSSender
	Social      SocialVerifier
	Clock       clockwork.Clock
	Logger      *slog.Logger
}

// Service implements the authentication use cases.
type Service struct {
	accountRepository    account.AccountRepository
	revocationRepository RevocationRepository
	sessions             *OTPSessionStore
	tokens               TokenIssuer
	links                *sec.LinkSigner
	sealer               *sec.Sealer
	mailer               notify.Mailer
	sms                  notify.SMSSender
	social               SocialVerifier
	clock                clockwork.Clock
	logger               *slog.Logger
	policy               Policy
}

// NewService constructs a new auth [Service].
func NewService(deps Dependencies, policy Policy) *Service {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Service{
		accountRepository:    deps.Accounts,
		revocationRepository: deps.Revocations,
		sessions:             deps.Sessions,
		tokens:               deps.Tokens,
		links:                deps.Links,
		sealer:               deps.Sealer,
		mailer:               deps.Mailer,
		sms:                  deps.SMS,
		social:               deps.Social,
		clock:                clock,
		logger:               deps.Logger,
		policy:               policy,
	}
}
