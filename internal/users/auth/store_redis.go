// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taibuivan/quill/internal/platform/cache"
	"github.com/taibuivan/quill/internal/platform/constants"
)

// # OTP Session Store

// OTPSession is a pending two-factor login. The password is sealed before it
// reaches the cache and is bound to the user ID.
type OTPSession struct {
	UserID         string
	Code           string
	Email          string
	SealedPassword string
}

// OTPSessionStore lays OTP sessions and phone codes out in the shared cache.
//
// # Key Layout
//
//   - auth:otp:{user}:id        (60s)  recent-dispatch marker
//   - auth:otp:{user}:code      (600s)
//   - auth:otp:{user}:email     (600s)
//   - auth:otp:{user}:password  (600s) sealed
//   - auth:phone_otp:{phone}    (600s)
type OTPSessionStore struct {
	cache Cache
}

// NewOTPSessionStore creates a store over the given cache.
func NewOTPSessionStore(cache Cache) *OTPSessionStore {
	return &OTPSessionStore{cache: cache}
}

func otpKey(userID, field string) string {
	return constants.RedisPrefixOTP + userID + ":" + field
}

func phoneKey(phone string) string {
	return constants.RedisPrefixPhoneOTP + phone
}

/*
Save writes every field of a session with its own TTL.

Parameters:
  - context: context.Context
  - session: OTPSession

Returns:
  - error: Cache failures
*/
func (repository *OTPSessionStore) Save(context context.Context, session OTPSession) error {
	entries := []struct {
		key   string
		value string
		ttl   time.Duration
	}{
		{otpKey(session.UserID, "id"), session.UserID, OTPMarkerTTL},
		{otpKey(session.UserID, "code"), session.Code, OTPSessionTTL},
		{otpKey(session.UserID, "email"), session.Email, OTPSessionTTL},
		{otpKey(session.UserID, "password"), session.SealedPassword, OTPSessionTTL},
	}

	for _, entry := range entries {
		if err := repository.cache.Set(context, entry.key, entry.value, entry.ttl); err != nil {
			return fmt.Errorf("otp_session_save_failed: %w", err)
		}
	}
	return nil
}

// Code returns the pending code for a user, or [cache.ErrMiss].
func (repository *OTPSessionStore) Code(context context.Context, userID string) (string, error) {
	return repository.cache.Get(context, otpKey(userID, "code"))
}

/*
Credentials returns the cached email and sealed password of a pending login.

Returns:
  - string: Email
  - string: Sealed password
  - error: cache.ErrMiss if either has expired
*/
func (repository *OTPSessionStore) Credentials(context context.Context, userID string) (string, string, error) {
	email, err := repository.cache.Get(context, otpKey(userID, "email"))
	if err != nil {
		return "", "", err
	}

	sealed, err := repository.cache.Get(context, otpKey(userID, "password"))
	if err != nil {
		return "", "", err
	}

	return email, sealed, nil
}

// Cooldown returns the time left before another OTP may be sent, zero when
// no recent dispatch marker exists.
func (repository *OTPSessionStore) Cooldown(context context.Context, userID string) (time.Duration, error) {
	remaining, err := repository.cache.TTL(context, otpKey(userID, "id"))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return 0, nil
		}
		return 0, fmt.Errorf("otp_session_cooldown_failed: %w", err)
	}
	return max(remaining, 0), nil
}

// Clear deletes every key of a user's session.
func (repository *OTPSessionStore) Clear(context context.Context, userID string) error {
	err := repository.cache.Delete(context,
		otpKey(userID, "id"),
		otpKey(userID, "code"),
		otpKey(userID, "email"),
		otpKey(userID, "password"),
	)
	if err != nil {
		return fmt.Errorf("otp_session_clear_failed: %w", err)
	}
	return nil
}

// SavePhoneCode caches a phone verification code keyed by the phone number.
func (repository *OTPSessionStore) SavePhoneCode(context context.Context, phone, code string) error {
	if err := repository.cache.Set(context, phoneKey(phone), code, PhoneOTPTTL); err != nil {
		return fmt.Errorf("otp_phone_save_failed: %w", err)
	}
	return nil
}

// PhoneCode returns the cached code for a phone number, or [cache.ErrMiss].
func (repository *OTPSessionStore) PhoneCode(context context.Context, phone string) (string, error) {
	return repository.cache.Get(context, phoneKey(phone))
}

// ClearPhoneCode deletes a phone verification code.
func (repository *OTPSessionStore) ClearPhoneCode(context context.Context, phone string) error {
	return repository.cache.Delete(context, phoneKey(phone))
}
