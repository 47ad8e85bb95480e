// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate provides a chainable Validator that collects field-level
// errors before returning a single [apperr.AppError].
//
// # Architecture
//
// Handlers run the shape checks (required, format); services run the policy
// checks (password strength, username charset) so every entry point that
// creates or changes credentials applies the same rules.
package validate

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/taibuivan/quill/internal/platform/apperr"
)

var (
	// uuidRegex matches a UUIDv4 or UUIDv7 string.
	uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	// usernameRegex matches the characters allowed in a username.
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._@-]+$`)
	// phoneRegex matches an E.164 phone number.
	phoneRegex = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

	// ErrInvalidJSON is returned when the request body cannot be decoded.
	ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")
)

// # Credential Policy

const (
	// PasswordMinLen is the minimum number of characters in a password.
	PasswordMinLen = 8
	// UsernameMinLen and UsernameMaxLen bound the username length.
	UsernameMinLen = 6
	UsernameMaxLen = 255
)

// Validator collects field-level validation errors via a fluent, chainable API.
//
// # Concurrency
//
// Validator is not safe for concurrent use. A new instance must be created
// for every request/operation.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, "This field is required")
	}
	return v
}

// MaxLen fails if the Unicode character count exceeds max.
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.add(field, fmt.Sprintf("Maximum %d characters", max))
	}
	return v
}

// MinLen fails if the Unicode character count is below min.
func (v *Validator) MinLen(field, value string, min int) *Validator {
	if utf8.RuneCountInString(value) < min {
		v.add(field, fmt.Sprintf("Minimum %d characters", min))
	}
	return v
}

// Email fails if the value is not a bare RFC 5322 address.
// Display-name forms such as "Ada <ada@example.com>" are rejected.
func (v *Validator) Email(field, value string) *Validator {
	address, err := mail.ParseAddress(value)
	if err != nil || address.Address != value {
		v.add(field, "Must be a valid email address")
	}
	return v
}

// UUID fails if the value is not a valid UUID string (case-insensitive).
func (v *Validator) UUID(field, value string) *Validator {
	lower := strings.ToLower(value)
	if !uuidRegex.MatchString(lower) {
		v.add(field, "Must be a valid UUID")
	}
	return v
}

// OneOf fails if the value is not in the allowed set of strings.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.add(field, fmt.Sprintf("Must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// Password fails if the value does not satisfy the password policy:
// at least [PasswordMinLen] characters with a lowercase letter, an uppercase
// letter, a digit and a special character.
func (v *Validator) Password(field, value string) *Validator {
	if utf8.RuneCountInString(value) < PasswordMinLen {
		v.add(field, fmt.Sprintf("Password must be at least %d characters long", PasswordMinLen))
		return v
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range value {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	switch {
	case !hasLower:
		v.add(field, "Password must contain at least one lowercase letter")
	case !hasUpper:
		v.add(field, "Password must contain at least one uppercase letter")
	case !hasDigit:
		v.add(field, "Password must contain at least one digit")
	case !hasSpecial:
		v.add(field, "Password must contain at least one special character")
	}
	return v
}

// Username fails if the value is shorter than [UsernameMinLen], longer than
// [UsernameMaxLen], contains spaces or characters outside [a-zA-Z0-9._@-].
func (v *Validator) Username(field, value string) *Validator {
	length := utf8.RuneCountInString(value)
	switch {
	case length < UsernameMinLen || length > UsernameMaxLen:
		v.add(field, fmt.Sprintf("Username must be between %d and %d characters long", UsernameMinLen, UsernameMaxLen))
	case strings.ContainsAny(value, " \t\n"):
		v.add(field, "Username cannot contain spaces")
	case !usernameRegex.MatchString(value):
		v.add(field, "Username can only contain letters, digits and . _ @ -")
	}
	return v
}

// Phone fails if the value is not an E.164 phone number (e.g. +14155550100).
func (v *Validator) Phone(field, value string) *Validator {
	if !phoneRegex.MatchString(value) {
		v.add(field, "Must be a valid phone number in international format")
	}
	return v
}

// Custom adds a failure with a custom message if the condition is true.
//
// # Example
//
//	v.Custom("c_password", input.Password != input.ConfirmPassword, "Passwords do not match")
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.add(field, message)
	}
	return v
}

// Err returns a [apperr.AppError] (VALIDATION_ERROR) if any rules failed,
// or nil if all rules passed.
//
// This is the only output method; call it at the end of the chain.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.errs...)
}

// HasErrors reports whether any validation rule has failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

// add appends a [apperr.FieldError] to the internal slice.
func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}

// RequiredError is a shortcut to create a single-field validation error.
func RequiredError(field, message string) *apperr.AppError {
	return apperr.ValidationError("Validation failed", apperr.FieldError{
		Field:   field,
		Message: message,
	})
}
