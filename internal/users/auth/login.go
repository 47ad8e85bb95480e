// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/platform/validate"
	"github.com/taibuivan/quill/internal/users/account"
)

// # Login State Machine

// LoginInput carries the credentials of a password login.
type LoginInput struct {
	Email    string
	Password string
}

// OTPChallenge is returned instead of tokens when the account has 2FA enabled.
type OTPChallenge struct {
	Message string `json:"message"`
	OTP     bool   `json:"otp"`
	UserID  string `json:"user_id"`
}

// LoginResult holds exactly one of Tokens or Challenge.
type LoginResult struct {
	Tokens    *TokenPair
	Challenge *OTPChallenge
}

func errInvalidCredentials() *apperr.AppError {
	return apperr.BadRequest("Invalid credentials").WithCode(CodeInvalidCredentials)
}

func errDeactivated() *apperr.AppError {
	return apperr.BusinessRule("Account is deactivated. Contact your admin").WithCode(CodeAccountDeactivated)
}

func errEmailUnverified() *apperr.AppError {
	return apperr.BusinessRule("Email is not verified. You must verify your email first").WithCode(CodeEmailUnverified)
}

func errWrongProvider(provider account.Provider) *apperr.AppError {
	return apperr.BusinessRule(fmt.Sprintf("This process cannot be used, as user is created using %s", provider)).
		WithCode(CodeWrongProvider)
}

// checkAccount enforces the preconditions of every password-based flow.
func checkAccount(subject *account.Account) error {
	if subject.AuthProvider != account.ProviderEmail {
		return errWrongProvider(subject.AuthProvider)
	}
	if !subject.IsEmailVerified {
		return errEmailUnverified()
	}
	if !subject.IsActive {
		return errDeactivated()
	}
	return nil
}

/*
Login authenticates an email/password pair.

Description: The account must exist, use the email provider, be verified and
be active. A wrong password advances the failure counter inside a row lock;
reaching the configured limit locks the account. A correct password resets
the counter, then either dispatches an OTP (2FA accounts) or issues tokens.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginResult: Tokens or an OTP challenge
  - error: INVALID_CREDENTIALS, WRONG_PROVIDER, EMAIL_UNVERIFIED,
    ACCOUNT_DEACTIVATED or DELIVERY_FAILED
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginResult, error) {
	email := account.NormalizeEmail(input.Email)

	validator := &validate.Validator{}
	validator.Required("email", email).Required("password", input.Password)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// 1. Account preconditions
	subject, err := service.accountRepository.FindByEmail(context, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, errInvalidCredentials()
		}
		return nil, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
	}

	if err := checkAccount(subject); err != nil {
		return nil, err
	}

	// 2. Password check
	if !sec.CheckPasswordHash(input.Password, subject.PasswordHash) {
		return nil, service.recordFailure(context, subject.ID)
	}

	// 3. Success resets the counter
	subject, err = service.accountRepository.Mutate(context, subject.ID, func(current *account.Account) error {
		current.FailedLoginAttempts = 0
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("auth_service_login_reset_failed: %w", err)
	}

	// 4. Second factor
	if subject.IsTwoFA {
		// A live resend marker means a code went out less than a minute ago.
		cooldown, err := service.sessions.Cooldown(context, subject.ID)
		if err != nil {
			return nil, fmt.Errorf("auth_service_login_cooldown_failed: %w", err)
		}
		if cooldown > 0 {
			return nil, apperr.Throttled("Too many login attempts.", int(math.Ceil(cooldown.Seconds())))
		}

		sealed, err := service.sealer.Seal(input.Password, subject.ID)
		if err != nil {
			return nil, fmt.Errorf("auth_service_seal_failed: %w", err)
		}

		challenge, err := service.dispatchOTP(context, subject, sealed)
		if err != nil {
			return nil, err
		}
		return &LoginResult{Challenge: challenge}, nil
	}

	tokens, err := service.Issue(context, subject)
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(context, "login_succeeded", slog.String("user_id", subject.ID))
	return &LoginResult{Tokens: tokens}, nil
}

/*
recordFailure advances the failed-login counter and applies the lockout.

Description: A failure within the rolling window of the previous one
increments the counter, otherwise the counter restarts at 1. At the limit a
superuser loses email verification and any other account is deactivated.

Returns:
  - error: Always an INVALID_CREDENTIALS error describing the new state,
    or a storage failure
*/
func (service *Service) recordFailure(context context.Context, userID string) error {
	var (
		attempts  int
		locked    bool
		superuser bool
	)

	_, err := service.accountRepository.Mutate(context, userID, func(current *account.Account) error {
		now := service.clock.Now()

		if current.LastFailedLoginAt != nil && now.Sub(*current.LastFailedLoginAt) <= service.policy.FailureWindow {
			current.FailedLoginAttempts++
		} else {
			current.FailedLoginAttempts = 1
		}
		current.LastFailedLoginAt = &now

		attempts = current.FailedLoginAttempts
		superuser = current.IsSuperuser()

		if attempts >= service.policy.MaxLoginFailures {
			locked = true
			if superuser {
				current.IsEmailVerified = false
			} else {
				current.IsActive = false
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("auth_service_record_failure_failed: %w", err)
	}

	service.logger.WarnContext(context, "login_failed",
		slog.String("user_id", userID),
		slog.Int("attempts", attempts),
	)

	switch {
	case locked && superuser:
		service.logger.WarnContext(context, "account_locked", slog.String("user_id", userID), slog.String("effect", "email_unverified"))
		return apperr.BadRequest("Invalid credentials. Your account is deactivated. Verify your email.").
			WithCode(CodeInvalidCredentials)

	case locked:
		service.logger.WarnContext(context, "account_locked", slog.String("user_id", userID), slog.String("effect", "deactivated"))
		return apperr.BadRequest("Invalid credentials. Your account is deactivated. Contact an admin.").
			WithCode(CodeInvalidCredentials)

	case attempts >= WarnAfterFailures:
		remaining := service.policy.MaxLoginFailures - attempts
		return apperr.BadRequest(fmt.Sprintf(
			"Invalid credentials. You have %d more attempt(s) before your account is deactivated.", remaining,
		)).WithCode(CodeInvalidCredentials)
	}

	return errInvalidCredentials()
}
