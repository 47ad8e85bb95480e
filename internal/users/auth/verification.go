// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/cache"
	"github.com/taibuivan/quill/internal/platform/notify"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/platform/validate"
	"github.com/taibuivan/quill/internal/users/account"
	"github.com/taibuivan/quill/pkg/pointer"
)

// # Signed Links

// linkURL builds the frontend address a signed token is delivered on.
func (service *Service) linkURL(path, token string) string {
	return strings.TrimRight(service.policy.FrontendURL, "/") + path + "?token=" + url.QueryEscape(token)
}

// verifyLink maps link verification failures onto client errors.
func (service *Service) verifyLink(token string, purpose sec.LinkPurpose) (string, error) {
	if token == "" {
		return "", validate.RequiredError("token", "is required")
	}

	email, err := service.links.Verify(token, purpose, service.clock.Now())
	switch {
	case errors.Is(err, sec.ErrLinkExpired):
		return "", apperr.BadRequest("The link has expired. Please request a new one.").WithCode(CodeLinkExpired)
	case err != nil:
		return "", apperr.BadRequest("The link is invalid.").WithCode(CodeLinkInvalid)
	}
	return email, nil
}

// accountForLink loads the account a verified link points at.
func (service *Service) accountForLink(context context.Context, email string) (*account.Account, error) {
	subject, err := service.accountRepository.FindByEmail(context, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.BadRequest("The link is invalid.").WithCode(CodeLinkInvalid)
		}
		return nil, fmt.Errorf("auth_service_link_lookup_failed: %w", err)
	}
	return subject, nil
}

// emailAccount loads an email-provider account for a link request.
func (service *Service) emailAccount(context context.Context, email string) (*account.Account, error) {
	email = account.NormalizeEmail(email)

	validator := &validate.Validator{}
	validator.Required("email", email).Email("email", email)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	subject, err := service.accountRepository.FindByEmail(context, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("auth_service_email_lookup_failed: %w", err)
	}

	if subject.AuthProvider != account.ProviderEmail {
		return nil, errWrongProvider(subject.AuthProvider)
	}
	return subject, nil
}

// # Email Verification

/*
SendEmailVerification mails a signed verification link to email.

Description: Used right after registration and by [Service.RequestEmailVerification].
Delivery errors are returned unwrapped so each caller can phrase them.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - error: Signing or delivery failures
*/
func (service *Service) SendEmailVerification(context context.Context, email string) error {
	token, expiresAt, err := service.links.Issue(email, sec.PurposeEmailVerify, service.clock.Now())
	if err != nil {
		return fmt.Errorf("auth_service_link_issue_failed: %w", err)
	}

	err = service.mailer.SendEmail(context, notify.Email{
		To:      email,
		Subject: "Verify your email",
		Body: fmt.Sprintf("Open the link below to verify your email address.\n\n%s\n\nThe link expires at %s.",
			service.linkURL("/email-verify", token), expiresAt.UTC().Format("2006-01-02 15:04 MST")),
	})
	if err != nil {
		return fmt.Errorf("auth_service_verification_mail_failed: %w", err)
	}
	return nil
}

/*
RequestEmailVerification resends the verification link.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - error: NOT_FOUND, WRONG_PROVIDER, ALREADY_VERIFIED or DELIVERY_FAILED
*/
func (service *Service) RequestEmailVerification(context context.Context, email string) error {
	subject, err := service.emailAccount(context, email)
	if err != nil {
		return err
	}

	if subject.IsEmailVerified {
		return apperr.BusinessRule("Email is already verified.").WithCode(CodeAlreadyVerified)
	}

	if err := service.SendEmailVerification(context, subject.Email); err != nil {
		return apperr.DeliveryFailed("Failed to send email verification link.", err)
	}
	return nil
}

/*
VerifyEmail consumes an email verification link.

Description: Marks the account verified and active and clears the failure
counter. Replaying a still-valid link is harmless.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: LINK_EXPIRED, LINK_INVALID or storage failures
*/
func (service *Service) VerifyEmail(context context.Context, token string) error {
	email, err := service.verifyLink(token, sec.PurposeEmailVerify)
	if err != nil {
		return err
	}

	subject, err := service.accountForLink(context, email)
	if err != nil {
		return err
	}

	_, err = service.accountRepository.Mutate(context, subject.ID, func(current *account.Account) error {
		current.IsEmailVerified = true
		current.IsActive = true
		current.FailedLoginAttempts = 0
		return nil
	})
	if err != nil {
		return fmt.Errorf("auth_service_verify_email_failed: %w", err)
	}

	service.logger.InfoContext(context, "email_verified", slog.String("user_id", subject.ID))
	return nil
}

// # Password Reset

/*
SendPasswordReset mails a signed password reset link.

Parameters:
  - context: context.Context
  - email: string

Description: Only accounts that could sign in with a password get a link, so
a deactivated or locked-out account cannot reset its way back in.

Returns:
  - error: NOT_FOUND, WRONG_PROVIDER, EMAIL_UNVERIFIED, ACCOUNT_DEACTIVATED or DELIVERY_FAILED
*/
func (service *Service) SendPasswordReset(context context.Context, email string) error {
	subject, err := service.emailAccount(context, email)
	if err != nil {
		return err
	}
	if err := checkAccount(subject); err != nil {
		return err
	}

	token, expiresAt, err := service.links.Issue(subject.Email, sec.PurposePasswordReset, service.clock.Now())
	if err != nil {
		return fmt.Errorf("auth_service_link_issue_failed: %w", err)
	}

	err = service.mailer.SendEmail(context, notify.Email{
		To:      subject.Email,
		Subject: "Reset your password",
		Body: fmt.Sprintf("Open the link below to choose a new password.\n\n%s\n\nThe link expires at %s.",
			service.linkURL("/password-reset", token), expiresAt.UTC().Format("2006-01-02 15:04 MST")),
	})
	if err != nil {
		return apperr.DeliveryFailed("Failed to send password reset link.", err)
	}

	service.logger.InfoContext(context, "password_reset_requested", slog.String("user_id", subject.ID))
	return nil
}

// ValidatePasswordReset reports whether a reset link is still usable.
func (service *Service) ValidatePasswordReset(context context.Context, token string) error {
	email, err := service.verifyLink(token, sec.PurposePasswordReset)
	if err != nil {
		return err
	}
	_, err = service.accountForLink(context, email)
	return err
}

// ResetPasswordInput carries a reset link token and the new password.
type ResetPasswordInput struct {
	Token           string
	Password        string
	ConfirmPassword string
}

/*
ResetPassword stores a new password for the account a reset link belongs to.

Description: The account must still be verified and active, and the new
password must differ from the current one. Existing refresh tokens are left to
expire on their own.

Parameters:
  - context: context.Context
  - input: ResetPasswordInput

Returns:
  - error: Validation, LINK_EXPIRED, LINK_INVALID, account state or storage failures
*/
func (service *Service) ResetPassword(context context.Context, input ResetPasswordInput) error {
	if input.ConfirmPassword == "" {
		return apperr.BadRequest("Please confirm your password.")
	}
	if input.Password != input.ConfirmPassword {
		return apperr.BadRequest("Passwords do not match")
	}

	validator := &validate.Validator{}
	if err := validator.Password("password", input.Password).Err(); err != nil {
		return err
	}

	email, err := service.verifyLink(input.Token, sec.PurposePasswordReset)
	if err != nil {
		return err
	}

	subject, err := service.accountForLink(context, email)
	if err != nil {
		return err
	}
	if err := checkAccount(subject); err != nil {
		return err
	}

	if sec.CheckPasswordHash(input.Password, subject.PasswordHash) {
		return apperr.ValidationError("New password cannot be the same as the old password.",
			apperr.FieldError{Field: "password", Message: "must differ from the current password"})
	}

	hash, err := sec.HashPassword(input.Password)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	_, err = service.accountRepository.Mutate(context, subject.ID, func(current *account.Account) error {
		current.PasswordHash = hash
		return nil
	})
	if err != nil {
		return fmt.Errorf("auth_service_reset_password_failed: %w", err)
	}

	service.logger.InfoContext(context, "password_reset", slog.String("user_id", subject.ID))
	return nil
}

// # Phone Verification

// phoneOf returns the account's phone number or PHONE_MISSING.
func phoneOf(subject *account.Account) (string, error) {
	phone := pointer.Val(subject.PhoneNumber)
	if phone == "" {
		return "", apperr.BadRequest("Phone number is not set.").WithCode(CodePhoneMissing)
	}
	return phone, nil
}

/*
SendPhoneOTP texts a verification code to the account's phone number.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: PHONE_MISSING, ALREADY_VERIFIED or DELIVERY_FAILED
*/
func (service *Service) SendPhoneOTP(context context.Context, userID string) error {
	subject, err := service.accountRepository.FindByID(context, userID)
	if err != nil {
		return err
	}

	phone, err := phoneOf(subject)
	if err != nil {
		return err
	}
	if subject.IsPhoneVerified {
		return apperr.BusinessRule("Phone number is already verified.").WithCode(CodeAlreadyVerified)
	}

	code, err := sec.GenerateOTP()
	if err != nil {
		return fmt.Errorf("auth_service_otp_generate_failed: %w", err)
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(PhoneOTPTTL.Minutes()))
	if err := service.sms.SendSMS(context, phone, body); err != nil {
		return apperr.DeliveryFailed("Failed to send OTP to your phone number.", err)
	}

	if err := service.sessions.SavePhoneCode(context, phone, code); err != nil {
		return fmt.Errorf("auth_service_phone_save_failed: %w", err)
	}

	service.logger.InfoContext(context, "phone_otp_dispatched", slog.String("user_id", userID))
	return nil
}

/*
VerifyPhone checks a phone code and marks the phone number verified.

Description: The code is keyed by phone number, so a number changed after the
code was sent cannot be verified with it.

Parameters:
  - context: context.Context
  - userID: string
  - code: string

Returns:
  - error: PHONE_MISSING, SESSION_EXPIRED, OTP_INVALID or storage failures
*/
func (service *Service) VerifyPhone(context context.Context, userID, code string) error {
	validator := &validate.Validator{}
	if err := validator.Required("otp", code).Err(); err != nil {
		return err
	}

	subject, err := service.accountRepository.FindByID(context, userID)
	if err != nil {
		return err
	}

	phone, err := phoneOf(subject)
	if err != nil {
		return err
	}

	expected, err := service.sessions.PhoneCode(context, phone)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return apperr.BadRequest("OTP expired. Please request a new one.").WithCode(CodeSessionExpired)
		}
		return fmt.Errorf("auth_service_phone_lookup_failed: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) != 1 {
		return errInvalidOTP()
	}

	_, err = service.accountRepository.Mutate(context, userID, func(current *account.Account) error {
		if pointer.Val(current.PhoneNumber) != phone {
			return errInvalidOTP()
		}
		current.IsPhoneVerified = true
		return nil
	})
	if err != nil {
		return err
	}

	if err := service.sessions.ClearPhoneCode(context, phone); err != nil {
		service.logger.WarnContext(context, "phone_otp_clear_failed", slog.Any("error", err))
	}

	service.logger.InfoContext(context, "phone_verified", slog.String("user_id", userID))
	return nil
}
