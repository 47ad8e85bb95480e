// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// OTPMarkerTTL is how long the "OTP recently sent" marker lives. While it
	// exists a new OTP cannot be requested for the same account.
	OTPMarkerTTL = 60 * time.Second

	// OTPSessionTTL bounds the code, email and sealed password of a pending login.
	OTPSessionTTL = 600 * time.Second

	// PhoneOTPTTL bounds a phone verification code.
	PhoneOTPTTL = 600 * time.Second

	// WarnAfterFailures is the failure count from which remaining attempts are reported.
	WarnAfterFailures = 3

	// SocialPasswordLength is the length of the unusable password given to
	// accounts created through a social provider.
	SocialPasswordLength = 16
)

// Machine codes returned by the auth flows.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeWrongProvider      = "WRONG_PROVIDER"
	CodeEmailUnverified    = "EMAIL_UNVERIFIED"
	CodeAccountDeactivated = "ACCOUNT_DEACTIVATED"
	CodeAlreadyVerified    = "ALREADY_VERIFIED"
	CodeOTPInvalid         = "OTP_INVALID"
	CodeSessionExpired     = "SESSION_EXPIRED"
	CodeLinkExpired        = "LINK_EXPIRED"
	CodeLinkInvalid        = "LINK_INVALID"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodePhoneMissing       = "PHONE_MISSING"
)
