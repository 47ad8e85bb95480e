// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/users/account"
	"github.com/taibuivan/quill/internal/users/auth"
)

func wrongPassword(h *harness, email string) error {
	_, err := h.service.Login(context.Background(), auth.LoginInput{Email: email, Password: "Wr0ng!pass"})
	return err
}

/*
TestLogin_SuccessResetsCounter verifies that a correct password clears earlier
failures and issues tokens directly when 2FA is off.
*/
func TestLogin_SuccessResetsCounter(t *testing.T) {
	member := newMember("ada@quill.app", sec.RoleMember)
	member.FailedLoginAttempts = 2
	h := newHarness(t, member)

	result, err := h.service.Login(context.Background(), auth.LoginInput{Email: "ada@QUILL.app", Password: fixturePassword})
	require.NoError(t, err)

	require.NotNil(t, result.Tokens)
	assert.Nil(t, result.Challenge)
	assert.Equal(t, member.ID, result.Tokens.UserID)
	assert.Equal(t, sec.RoleMember, result.Tokens.UserRole)
	assert.Equal(t, 0, h.accounts.Get(member.ID).FailedLoginAttempts)
}

/*
TestLogin_Preconditions covers the account state checks that run before the
password is compared.
*/
func TestLogin_Preconditions(t *testing.T) {
	social := newMember("gh@quill.app", sec.RoleMember)
	social.AuthProvider = account.ProviderGitHub

	unverified := newMember("new@quill.app", sec.RoleMember)
	unverified.IsEmailVerified = false

	inactive := newMember("gone@quill.app", sec.RoleMember)
	inactive.IsActive = false

	h := newHarness(t, social, unverified, inactive)

	tests := []struct {
		name     string
		email    string
		wantCode string
		wantMsg  string
	}{
		{"unknown", "nobody@quill.app", auth.CodeInvalidCredentials, "Invalid credentials"},
		{"wrong provider", "gh@quill.app", auth.CodeWrongProvider, "This process cannot be used, as user is created using github"},
		{"unverified", "new@quill.app", auth.CodeEmailUnverified, "Email is not verified. You must verify your email first"},
		{"deactivated", "gone@quill.app", auth.CodeAccountDeactivated, "Account is deactivated. Contact your admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.service.Login(context.Background(), auth.LoginInput{Email: tt.email, Password: fixturePassword})
			require.Error(t, err)
			assert.True(t, apperr.HasCode(err, tt.wantCode), "got %v", err)
			assert.Equal(t, tt.wantMsg, apperr.As(err).Message)
		})
	}

	_, err := h.service.Login(context.Background(), auth.LoginInput{Email: "ada@quill.app"})
	assert.True(t, apperr.HasCode(err, "VALIDATION_ERROR"))
}

/*
TestLogin_RemainingAttempts verifies the warning from the third failure on.
*/
func TestLogin_RemainingAttempts(t *testing.T) {
	member := newMember("ada@quill.app", sec.RoleMember)
	h := newHarness(t, member)

	assert.Equal(t, "Invalid credentials", apperr.As(wrongPassword(h, member.Email)).Message)
	assert.Equal(t, "Invalid credentials", apperr.As(wrongPassword(h, member.Email)).Message)

	err := wrongPassword(h, member.Email)
	assert.True(t, apperr.HasCode(err, auth.CodeInvalidCredentials))
	assert.Equal(t, "Invalid credentials. You have 2 more attempt(s) before your account is deactivated.", apperr.As(err).Message)

	err = wrongPassword(h, member.Email)
	assert.Contains(t, apperr.As(err).Message, "1 more attempt(s)")
	assert.Equal(t, 4, h.accounts.Get(member.ID).FailedLoginAttempts)
}

/*
TestLogin_LockoutDeactivatesMember verifies that the limit deactivates a
non-superuser and that later logins are refused even with the right password.
*/
func TestLogin_LockoutDeactivatesMember(t *testing.T) {
	member := newMember("ada@quill.app", sec.RoleMember)
	h := newHarness(t, member)

	var err error
	for range testPolicy.MaxLoginFailures {
		err = wrongPassword(h, member.Email)
	}
	assert.Equal(t, "Invalid credentials. Your account is deactivated. Contact an admin.", apperr.As(err).Message)

	stored := h.accounts.Get(member.ID)
	assert.False(t, stored.IsActive)
	assert.True(t, stored.IsEmailVerified)

	_, err = h.service.Login(context.Background(), auth.LoginInput{Email: member.Email, Password: fixturePassword})
	assert.True(t, apperr.HasCode(err, auth.CodeAccountDeactivated))
	assert.Contains(t, apperr.As(err).Message, "Account is deactivated")
}

/*
TestLogin_LockoutUnverifiesSuperuser verifies that a superuser keeps the
active flag but must verify the email again.
*/
func TestLogin_LockoutUnverifiesSuperuser(t *testing.T) {
	root := newMember("root@quill.app", sec.RoleSuperuser)
	h := newHarness(t, root)

	var err error
	for range testPolicy.MaxLoginFailures {
		err = wrongPassword(h, root.Email)
	}
	assert.Equal(t, "Invalid credentials. Your account is deactivated. Verify your email.", apperr.As(err).Message)

	stored := h.accounts.Get(root.ID)
	assert.True(t, stored.IsActive)
	assert.False(t, stored.IsEmailVerified)

	_, err = h.service.Login(context.Background(), auth.LoginInput{Email: root.Email, Password: fixturePassword})
	assert.True(t, apperr.HasCode(err, auth.CodeEmailUnverified))
}

/*
TestLogin_FailureWindow verifies that a failure outside the rolling window
restarts the counter at one.
*/
func TestLogin_FailureWindow(t *testing.T) {
	member := newMember("ada@quill.app", sec.RoleMember)
	h := newHarness(t, member)

	h.clock.Advance(time.Hour)
	require.Error(t, wrongPassword(h, member.Email))
	require.Error(t, wrongPassword(h, member.Email))

	h.clock.Advance(9 * time.Minute)
	require.Error(t, wrongPassword(h, member.Email))
	assert.Equal(t, 3, h.accounts.Get(member.ID).FailedLoginAttempts)

	h.clock.Advance(10*time.Minute + time.Second)
	err := wrongPassword(h, member.Email)
	assert.Equal(t, "Invalid credentials", apperr.As(err).Message)

	stored := h.accounts.Get(member.ID)
	assert.Equal(t, 1, stored.FailedLoginAttempts)
	assert.Equal(t, h.clock.Now(), *stored.LastFailedLoginAt)
}

/*
TestLogin_ConcurrentFailures verifies that parallel failures are all counted.
*/
func TestLogin_ConcurrentFailures(t *testing.T) {
	member := newMember("ada@quill.app", sec.RoleMember)
	h := newHarness(t, member)

	done := make(chan struct{})
	for range 4 {
		go func() {
			defer func() { done <- struct{}{} }()
			_ = wrongPassword(h, member.Email)
		}()
	}
	for range 4 {
		<-done
	}

	assert.Equal(t, 4, h.accounts.Get(member.ID).FailedLoginAttempts)
	assert.True(t, h.accounts.Get(member.ID).IsActive)
}
