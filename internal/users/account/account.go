// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account owns the credential store and the account lifecycle.

It persists user identity, password hashes, role, verification flags and the
counters mutated by login failures and strikes, and it enforces the role
hierarchy for administrative transitions.

# Architecture

  - Entities: Account, PublicProfile (DTO).
  - Persistence: AccountRepository with a row-locking Mutate for counters.
  - Lifecycle: activate, deactivate, strike and unstrike gated by [sec.UserRole.Can].
*/
package account

import (
	"strings"
	"time"

	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/pkg/slug"
	"github.com/taibuivan/quill/pkg/uuid"
)

// # Domain Entities

// Provider identifies how an account authenticates.
type Provider string

const (
	ProviderEmail    Provider = "email"
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
	ProviderGitHub   Provider = "github"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderEmail, ProviderGoogle, ProviderFacebook, ProviderGitHub:
		return true
	}
	return false
}

// Account is the identity record shared by the auth and lifecycle flows.
type Account struct {
	ID                  string       `json:"id"`
	Email               string       `json:"email"`
	Username            string       `json:"username"`
	Slug                string       `json:"slug"`
	FirstName           string       `json:"first_name"`
	LastName            string       `json:"last_name"`
	Bio                 string       `json:"bio"`
	PhoneNumber         *string      `json:"phone_number"`
	PasswordHash        string       `json:"-"`
	Role                sec.UserRole `json:"role"`
	IsActive            bool         `json:"is_active"`
	IsEmailVerified     bool         `json:"is_email_verified"`
	IsPhoneVerified     bool         `json:"is_phone_verified"`
	IsTwoFA             bool         `json:"is_two_fa"`
	IsNotiOn            bool         `json:"is_noti_on"`
	FailedLoginAttempts int          `json:"failed_login_attempts"`
	LastFailedLoginAt   *time.Time   `json:"last_failed_login_time"`
	Strikes             int          `json:"strikes"`
	AuthProvider        Provider     `json:"auth_provider"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// Subject returns the token subject for this account.
func (a *Account) Subject() sec.Subject {
	return sec.Subject{UserID: a.ID, Username: a.Username, Role: a.Role}
}

// IsStaff reports whether the account holds the staff or superuser role.
func (a *Account) IsStaff() bool { return a.Role.IsStaff() }

// IsSuperuser reports whether the account holds the superuser role.
func (a *Account) IsSuperuser() bool { return a.Role.IsSuperuser() }

// PublicProfile is the view of an account exposed to other members.
type PublicProfile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Slug      string `json:"slug"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
}

// Public strips private fields from the account.
func (a *Account) Public() PublicProfile {
	return PublicProfile{
		ID:        a.ID,
		Username:  a.Username,
		Slug:      a.Slug,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Bio:       a.Bio,
	}
}

// AdminSummary is the list view shown to staff.
type AdminSummary struct {
	ID              string       `json:"id"`
	Email           string       `json:"email"`
	Username        string       `json:"username"`
	FirstName       string       `json:"first_name"`
	LastName        string       `json:"last_name"`
	Role            sec.UserRole `json:"role"`
	IsActive        bool         `json:"is_active"`
	IsEmailVerified bool         `json:"is_email_verified"`
	Strikes         int          `json:"strikes"`
	AuthProvider    Provider     `json:"auth_provider"`
}

// Summary returns the staff list view of the account.
func (a *Account) Summary() AdminSummary {
	return AdminSummary{
		ID:              a.ID,
		Email:           a.Email,
		Username:        a.Username,
		FirstName:       a.FirstName,
		LastName:        a.LastName,
		Role:            a.Role,
		IsActive:        a.IsActive,
		IsEmailVerified: a.IsEmailVerified,
		Strikes:         a.Strikes,
		AuthProvider:    a.AuthProvider,
	}
}

// # Construction

// NewAccountInput carries the caller-supplied fields of a new account.
type NewAccountInput struct {
	Email        string
	Username     string
	FirstName    string
	LastName     string
	Bio          string
	PhoneNumber  *string
	PasswordHash string
	Role         sec.UserRole
	Provider     Provider
	Verified     bool
}

/*
NewAccount builds an account and runs the post-creation steps explicitly.

Description: The username defaults to the email, the slug is derived from the
username, the role defaults to member and last_failed_login_time is stamped
with the creation time so the first failure window has an anchor.

Parameters:
  - input: NewAccountInput
  - now: time.Time

Returns:
  - *Account: The account, not yet persisted
*/
func NewAccount(input NewAccountInput, now time.Time) *Account {
	email := NormalizeEmail(input.Email)

	// 1. Username falls back to the email
	username := strings.TrimSpace(input.Username)
	if username == "" {
		username = email
	}

	// 2. Role assignment
	role := input.Role
	if role == "" {
		role = sec.RoleMember
	}

	provider := input.Provider
	if provider == "" {
		provider = ProviderEmail
	}

	lastFailed := now
	return &Account{
		ID:                uuid.New(),
		Email:             email,
		Username:          username,
		Slug:              slug.From(username),
		FirstName:         strings.TrimSpace(input.FirstName),
		LastName:          strings.TrimSpace(input.LastName),
		Bio:               input.Bio,
		PhoneNumber:       input.PhoneNumber,
		PasswordHash:      input.PasswordHash,
		Role:              role,
		IsActive:          input.Verified,
		IsEmailVerified:   input.Verified,
		AuthProvider:      provider,
		LastFailedLoginAt: &lastFailed,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// NormalizeEmail trims the address and lowercases its domain part.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}
