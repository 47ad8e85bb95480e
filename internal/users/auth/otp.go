// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/cache"
	"github.com/taibuivan/quill/internal/platform/notify"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/platform/validate"
	"github.com/taibuivan/quill/internal/users/account"
)

// # Email OTP

func errSessionExpired() *apperr.AppError {
	return apperr.BadRequest("Session expired. Please login again.").WithCode(CodeSessionExpired)
}

func errInvalidOTP() *apperr.AppError {
	return apperr.BadRequest("Invalid OTP").WithCode(CodeOTPInvalid)
}

/*
dispatchOTP emails a fresh code and stores the pending login.

Description: The code is mailed first so a failed delivery leaves any previous
session untouched. The sealed password is stored as given.

Returns:
  - *OTPChallenge: Pending-verification response
  - error: DELIVERY_FAILED or cache failures
*/
func (service *Service) dispatchOTP(context context.Context, subject *account.Account, sealedPassword string) (*OTPChallenge, error) {
	code, err := sec.GenerateOTP()
	if err != nil {
		return nil, fmt.Errorf("auth_service_otp_generate_failed: %w", err)
	}

	err = service.mailer.SendEmail(context, notify.Email{
		To:      subject.Email,
		Subject: "Your login code",
		Body:    fmt.Sprintf("Your one-time login code is %s. It expires in %d minutes.", code, int(OTPSessionTTL.Minutes())),
	})
	if err != nil {
		return nil, apperr.DeliveryFailed("Something went wrong, could not send OTP. Try again", err)
	}

	err = service.sessions.Save(context, OTPSession{
		UserID:         subject.ID,
		Code:           code,
		Email:          subject.Email,
		SealedPassword: sealedPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("auth_service_otp_save_failed: %w", err)
	}

	service.logger.InfoContext(context, "otp_dispatched", slog.String("user_id", subject.ID))

	return &OTPChallenge{Message: "Email sent", OTP: true, UserID: subject.ID}, nil
}

/*
ResendOTP issues a new code for a pending login.

Description: Refused while the recent-dispatch marker exists. The cached email
and sealed password are reused; once they expire the login must be restarted.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *OTPChallenge: Pending-verification response
  - error: RATE_LIMITED, SESSION_EXPIRED, account state or delivery failures
*/
func (service *Service) ResendOTP(context context.Context, userID string) (*OTPChallenge, error) {
	validator := &validate.Validator{}
	if err := validator.Required("user_id", userID).Err(); err != nil {
		return nil, err
	}

	cooldown, err := service.sessions.Cooldown(context, userID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_resend_cooldown_failed: %w", err)
	}
	if cooldown > 0 {
		return nil, apperr.Throttled("Too many OTP resend requests.", int(math.Ceil(cooldown.Seconds())))
	}

	_, sealed, err := service.sessions.Credentials(context, userID)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, errSessionExpired()
		}
		return nil, fmt.Errorf("auth_service_resend_credentials_failed: %w", err)
	}

	subject, err := service.accountRepository.FindByID(context, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, errSessionExpired()
		}
		return nil, fmt.Errorf("auth_service_resend_lookup_failed: %w", err)
	}
	if err := checkAccount(subject); err != nil {
		return nil, err
	}

	return service.dispatchOTP(context, subject, sealed)
}

/*
VerifyOTP compares a code with the one cached for userID.

Description: Exact, constant-time comparison. A mismatch does not consume the
code, so the user may retry until it expires.

Returns:
  - bool: True on match
  - error: SESSION_EXPIRED when no code is cached
*/
func (service *Service) VerifyOTP(context context.Context, userID, code string) (bool, error) {
	expected, err := service.sessions.Code(context, userID)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return false, errSessionExpired()
		}
		return false, fmt.Errorf("auth_service_otp_lookup_failed: %w", err)
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1, nil
}

/*
ExchangeOTP completes a 2FA login and issues tokens.

Description: After the code matches, the sealed password is opened and checked
against the current hash, so a password changed during the pending window
invalidates the session. The session is cleared before tokens are issued.

Parameters:
  - context: context.Context
  - userID: string
  - code: string

Returns:
  - *TokenPair: Issued tokens
  - error: OTP_INVALID, SESSION_EXPIRED, INVALID_CREDENTIALS or account state errors
*/
func (service *Service) ExchangeOTP(context context.Context, userID, code string) (*TokenPair, error) {
	validator := &validate.Validator{}
	validator.Required("user_id", userID).Required("otp", code)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	subject, err := service.accountRepository.FindByID(context, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, errInvalidCredentials()
		}
		return nil, fmt.Errorf("auth_service_exchange_lookup_failed: %w", err)
	}
	if err := checkAccount(subject); err != nil {
		return nil, err
	}

	// 1. Code
	matched, err := service.VerifyOTP(context, userID, code)
	if err != nil {
		return nil, err
	}
	if !matched {
		service.logger.WarnContext(context, "otp_mismatch", slog.String("user_id", userID))
		return nil, errInvalidOTP()
	}

	// 2. Pending credentials
	email, sealed, err := service.sessions.Credentials(context, userID)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, errSessionExpired()
		}
		return nil, fmt.Errorf("auth_service_exchange_credentials_failed: %w", err)
	}

	password, err := service.sealer.Unseal(sealed, userID)
	if err != nil {
		return nil, errSessionExpired()
	}
	if email != subject.Email || !sec.CheckPasswordHash(password, subject.PasswordHash) {
		return nil, errInvalidCredentials()
	}

	// 3. Consume and issue
	if err := service.sessions.Clear(context, userID); err != nil {
		return nil, fmt.Errorf("auth_service_exchange_clear_failed: %w", err)
	}

	return service.Issue(context, subject)
}
