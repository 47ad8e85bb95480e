// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "name", "Quill", false},
		{"empty_string", "name", "", true},
		{"whitespace_only", "name", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				assert.True(t, v.HasErrors())
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, "VALIDATION_ERROR", ae.Code)
				assert.Equal(t, tt.field, ae.Details[0].Field)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_Email checks the email format validation rule.
*/
func TestValidator_Email(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		isValid bool
	}{
		{"valid_email", "test@example.com", true},
		{"invalid_format", "invalid-email", false},
		{"missing_domain", "test@", false},
		{"empty", "", false},
		{"display_name_form", "Ada <ada@example.com>", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Email("email", tt.email)

			if tt.isValid {
				assert.False(t, v.HasErrors())
			} else {
				assert.True(t, v.HasErrors())
			}
		})
	}
}

/*
TestValidator_Chain tests the fluent API (chaining multiple rules).
*/
func TestValidator_Chain(t *testing.T) {
	v := &validate.Validator{}

	// Multi-rule validation
	err := v.
		Required("username", "reader.one").
		Username("username", "reader.one").
		Email("email", "reader@quill.app").
		Password("password", "Str0ng!pass").
		Err()

	assert.NoError(t, err)
	assert.False(t, v.HasErrors())
}

/*
TestValidator_Chain_Failure tests error accumulation in the chain.
*/
func TestValidator_Chain_Failure(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("username", "").       // Fails
		MinLen("username", "a", 5).     // Fails
		Email("email", "not-an-email"). // Fails
		Err()

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)

	// Should accumulate all 3 errors
	assert.Len(t, ae.Details, 3)
}

/*
TestValidator_Password covers each clause of the password policy.
*/
func TestValidator_Password(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		message string
	}{
		{"valid", "Str0ng!pass", ""},
		{"too_short", "S0!a", "Password must be at least 8 characters long"},
		{"no_lowercase", "STR0NG!PASS", "Password must contain at least one lowercase letter"},
		{"no_uppercase", "str0ng!pass", "Password must contain at least one uppercase letter"},
		{"no_digit", "Strong!pass", "Password must contain at least one digit"},
		{"no_special", "Str0ngpass", "Password must contain at least one special character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&validate.Validator{}).Password("password", tt.value).Err()
			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			ae := apperr.As(err)
			require.NotNil(t, ae)
			require.Len(t, ae.Details, 1)
			assert.Equal(t, tt.message, ae.Details[0].Message)
		})
	}
}

/*
TestValidator_Username covers the username length and charset policy.
*/
func TestValidator_Username(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		isValid bool
	}{
		{"email_as_username", "ada@example.com", true},
		{"dots_and_dashes", "ada.love-lace_1", true},
		{"too_short", "ada", false},
		{"space", "ada lovelace", false},
		{"symbol", "ada#lovelace", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := (&validate.Validator{}).Username("username", tt.value)
			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_Phone checks the E.164 phone format rule.
*/
func TestValidator_Phone(t *testing.T) {
	assert.False(t, (&validate.Validator{}).Phone("phone_number", "+14155550100").HasErrors())
	assert.True(t, (&validate.Validator{}).Phone("phone_number", "4155550100").HasErrors())
	assert.True(t, (&validate.Validator{}).Phone("phone_number", "+1 415 555").HasErrors())
}
