// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LinkPurpose scopes a verification link to one flow so an email link cannot
// be replayed as a password reset link.
type LinkPurpose string

const (
	PurposeEmailVerify   LinkPurpose = "email_verify"
	PurposePasswordReset LinkPurpose = "password_reset"
)

var (
	// ErrLinkExpired is returned once the embedded expiry has passed,
	// whether or not the signature is valid.
	ErrLinkExpired = errors.New("sec: verification link expired")

	// ErrLinkInvalid is returned for tampered, malformed or mis-scoped links.
	ErrLinkInvalid = errors.New("sec: verification link invalid")
)

type linkClaims struct {
	jwt.RegisteredClaims
	Purpose LinkPurpose `json:"pur"`
}

// LinkSigner issues and verifies tamper-evident, time-limited links that embed
// an email address. Nothing is persisted server-side; validity is decided by
// signature and expiry alone.
type LinkSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewLinkSigner creates a LinkSigner using HMAC-SHA256 with the given secret.
func NewLinkSigner(secret string, ttl time.Duration) *LinkSigner {
	return &LinkSigner{secret: []byte(secret), ttl: ttl}
}

// TTL returns the lifetime of issued links.
func (signer *LinkSigner) TTL() time.Duration { return signer.ttl }

// Issue creates a signed token for email that expires ttl after now.
func (signer *LinkSigner) Issue(email string, purpose LinkPurpose, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(signer.ttl)
	claims := linkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Purpose: purpose,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signer.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sec: failed to sign link: %w", err)
	}
	return token, expiresAt, nil
}

// Verify returns the email embedded in token.
//
// Expiry is checked before the signature so an expired link always reports
// [ErrLinkExpired].
func (signer *LinkSigner) Verify(token string, purpose LinkPurpose, now time.Time) (string, error) {

	// 1. Expiry from the unverified payload
	unverified := &linkClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, unverified); err != nil {
		return "", ErrLinkInvalid
	}
	if unverified.ExpiresAt == nil {
		return "", ErrLinkInvalid
	}
	if !now.Before(unverified.ExpiresAt.Time) {
		return "", ErrLinkExpired
	}

	// 2. Signature, scope and subject
	claims := &linkClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return signer.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return "", ErrLinkInvalid
	}
	if claims.Purpose != purpose || claims.Subject == "" {
		return "", ErrLinkInvalid
	}

	return claims.Subject, nil
}
