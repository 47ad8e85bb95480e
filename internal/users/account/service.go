// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/platform/validate"
	"github.com/taibuivan/quill/pkg/pagination"
	"github.com/taibuivan/quill/pkg/slug"
)

// # Collaborators

// VerificationSender dispatches the email verification link for a new account.
type VerificationSender interface {
	SendEmailVerification(context context.Context, email string) error
}

// # Service Layer

// Service orchestrates registration, profile management and lifecycle
// transitions for accounts.
type Service struct {
	accountRepository AccountRepository
	verification      VerificationSender
	clock             clockwork.Clock
	maxStrikes        int
	logger            *slog.Logger
}

// NewService constructs a new [Service] with its dependencies.
func NewService(
	accountRepo AccountRepository,
	verification VerificationSender,
	clock clockwork.Clock,
	maxStrikes int,
	logger *slog.Logger,
) *Service {
	return &Service{
		accountRepository: accountRepo,
		verification:      verification,
		clock:             clock,
		maxStrikes:        maxStrikes,
		logger:            logger,
	}
}

// Fields that a client may never set directly.
var (
	createForbiddenFields = []string{
		"slug", "strikes", "is_email_verified", "is_phone_verified", "is_active",
		"is_two_fa", "is_noti_on", "auth_provider", "role", "failed_login_attempts",
	}
	updateForbiddenFields = []string{
		"slug", "strikes", "is_email_verified", "is_phone_verified", "is_active",
		"is_staff", "is_superuser", "role", "auth_provider", "failed_login_attempts",
	}
)

func hasAny(fields []string, names ...string) bool {
	for _, name := range names {
		if slices.Contains(fields, name) {
			return true
		}
	}
	return false
}

// # Registration

// CreateInput holds a registration request. Fields lists every JSON key the
// client sent so forbidden keys are rejected even when empty.
type CreateInput struct {
	Fields          []string
	Email           string
	Username        string
	FirstName       string
	LastName        string
	Bio             string
	PhoneNumber     *string
	Password        string
	ConfirmPassword string
	IsStaff         bool
}

/*
Create registers a new email account and sends the verification link.

Description: Rejects privileged or system-managed fields, checks the password
confirmation and policy, then persists an inactive, unverified account.
Only a superuser may create staff accounts.

Parameters:
  - context: context.Context
  - actor: *sec.AuthClaims (nil for anonymous sign-up)
  - input: CreateInput

Returns:
  - *Account: The created account
  - error: Forbidden, validation, conflict or delivery failures
*/
func (service *Service) Create(context context.Context, actor *sec.AuthClaims, input CreateInput) (*Account, error) {
	actorRole := sec.RoleMember
	if actor != nil {
		actorRole = sec.ParseRole(actor.Role)
	}

	// 1. Privileged and system-managed fields
	if hasAny(input.Fields, "is_superuser") {
		return nil, apperr.Forbidden("You do not have permission to create a superuser. Contact Developer.")
	}
	if hasAny(input.Fields, "is_staff") && !actorRole.IsSuperuser() {
		return nil, apperr.Forbidden("You do not have permission to create an admin user.")
	}
	if hasAny(input.Fields, "profile_img") {
		return nil, apperr.Forbidden("Profile Image cannot be updated here.")
	}
	if hasAny(input.Fields, createForbiddenFields...) {
		return nil, apperr.Forbidden("Forbidden fields cannot be updated.")
	}

	// 2. Password confirmation
	if input.ConfirmPassword == "" {
		return nil, apperr.BadRequest("Please confirm your password.")
	}
	if input.Password != input.ConfirmPassword {
		return nil, apperr.BadRequest("Passwords do not match")
	}

	// 3. Field validation
	email := NormalizeEmail(input.Email)
	validator := &validate.Validator{}
	validator.Required("email", email).Email("email", email).Password("password", input.Password)
	if input.Username != "" {
		validator.Username("username", input.Username)
	}
	if input.PhoneNumber != nil {
		validator.Phone("phone_number", *input.PhoneNumber)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	hash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("account_service_hash_failed: %w", err)
	}

	role := sec.RoleMember
	if input.IsStaff {
		role = sec.RoleStaff
	}

	// 4. Post-creation steps and persistence
	account := NewAccount(NewAccountInput{
		Email:        email,
		Username:     input.Username,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Bio:          input.Bio,
		PhoneNumber:  input.PhoneNumber,
		PasswordHash: hash,
		Role:         role,
		Provider:     ProviderEmail,
	}, service.clock.Now())

	if err := service.accountRepository.Create(context, account); err != nil {
		return nil, fmt.Errorf("account_service_create_failed: %w", err)
	}

	service.logger.InfoContext(context, "account_created",
		slog.String("user_id", account.ID),
		slog.String("role", string(account.Role)),
	)

	// 5. Verification link
	if err := service.verification.SendEmailVerification(context, account.Email); err != nil {
		return nil, apperr.DeliveryFailed("Failed to send email verification link.", err)
	}

	return account, nil
}

// # Queries

/*
List returns one page of accounts.

Parameters:
  - context: context.Context
  - params: pagination.Params

Returns:
  - []*Account: The page
  - int: Total count
  - error: Retrieval failures
*/
func (service *Service) List(context context.Context, params pagination.Params) ([]*Account, int, error) {
	accounts, total, err := service.accountRepository.List(context, params)
	if err != nil {
		return nil, 0, fmt.Errorf("account_service_list_failed: %w", err)
	}
	return accounts, total, nil
}

// Get retrieves a single account by ID.
func (service *Service) Get(context context.Context, id string) (*Account, error) {
	account, err := service.accountRepository.FindByID(context, id)
	if err != nil {
		return nil, fmt.Errorf("account_service_get_failed: %w", err)
	}
	return account, nil
}

// CanViewPrivate reports whether the actor sees the full record of target:
// the account itself or a superuser.
func CanViewPrivate(actor *sec.AuthClaims, target *Account) bool {
	if actor == nil {
		return false
	}
	return actor.UserID == target.ID || sec.ParseRole(actor.Role).IsSuperuser()
}

// # Profile Updates

// UpdateInput holds a partial profile update. Nil pointers are left unchanged.
type UpdateInput struct {
	Fields      []string
	Username    *string
	FirstName   *string
	LastName    *string
	Bio         *string
	PhoneNumber *string
	IsTwoFA     *bool
	IsNotiOn    *bool
}

/*
Update applies a partial set of changes to an account profile.

Description: Only the account itself or a superuser may update it. Email,
password, privilege and verification fields are rejected. Staff accounts may
not toggle two-factor authentication. Changing the phone number clears its
verification.

Parameters:
  - context: context.Context
  - actor: *sec.AuthClaims
  - id: string
  - input: UpdateInput

Returns:
  - *Account: The updated account
  - error: Forbidden, validation, conflict or storage failures
*/
func (service *Service) Update(context context.Context, actor *sec.AuthClaims, id string, input UpdateInput) (*Account, error) {
	caller, err := service.actingAccount(context, actor.UserID)
	if err != nil {
		return nil, err
	}
	actorRole := caller.Role

	// 1. Field guards
	switch {
	case hasAny(input.Fields, "email"):
		return nil, apperr.Forbidden("You cannot update the email field.")
	case hasAny(input.Fields, "password", "c_password"):
		return nil, apperr.Forbidden("Password reset cannot be done without verification link.")
	case hasAny(input.Fields, "is_two_fa") && actorRole.IsStaff():
		return nil, apperr.Forbidden("Admins cannot deactivate 2FA.")
	case hasAny(input.Fields, "profile_img"):
		return nil, apperr.Forbidden("Profile Image cannot be updated here.")
	case hasAny(input.Fields, updateForbiddenFields...):
		return nil, apperr.Forbidden("Forbidden fields cannot be updated.")
	}

	// 2. Ownership
	if caller.ID != id && !actorRole.IsSuperuser() {
		return nil, apperr.Forbidden("You do not have permission to update this user.")
	}

	// 3. Field validation
	validator := &validate.Validator{}
	if input.Username != nil {
		validator.Username("username", *input.Username)
	}
	if input.PhoneNumber != nil && *input.PhoneNumber != "" {
		validator.Phone("phone_number", *input.PhoneNumber)
	}
	if input.FirstName != nil {
		validator.MaxLen("first_name", *input.FirstName, 150)
	}
	if input.LastName != nil {
		validator.MaxLen("last_name", *input.LastName, 150)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// 4. Apply under the row lock
	account, err := service.accountRepository.Mutate(context, id, func(account *Account) error {
		if input.Username != nil {
			account.Username = *input.Username
			account.Slug = slug.From(*input.Username)
		}
		if input.FirstName != nil {
			account.FirstName = strings.TrimSpace(*input.FirstName)
		}
		if input.LastName != nil {
			account.LastName = strings.TrimSpace(*input.LastName)
		}
		if input.Bio != nil {
			account.Bio = *input.Bio
		}
		if input.PhoneNumber != nil {
			current := ""
			if account.PhoneNumber != nil {
				current = *account.PhoneNumber
			}
			if current != *input.PhoneNumber {
				account.PhoneNumber = nil
				if *input.PhoneNumber != "" {
					phone := *input.PhoneNumber
					account.PhoneNumber = &phone
				}
				account.IsPhoneVerified = false
			}
		}
		if input.IsTwoFA != nil {
			account.IsTwoFA = *input.IsTwoFA
		}
		if input.IsNotiOn != nil {
			account.IsNotiOn = *input.IsNotiOn
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("account_service_update_failed: %w", err)
	}

	service.logger.InfoContext(context, "account_updated",
		slog.String("user_id", id),
		slog.String("actor_id", actor.UserID),
	)

	return account, nil
}

// # Deletion

/*
Delete removes a deactivated, non-superuser account.

Parameters:
  - context: context.Context
  - actor: *sec.AuthClaims
  - id: string

Returns:
  - string: Confirmation message
  - error: Forbidden, business rule or storage failures
*/
func (service *Service) Delete(context context.Context, actor *sec.AuthClaims, id string) (string, error) {
	caller, err := service.actingAccount(context, actor.UserID)
	if err != nil {
		return "", err
	}
	if !caller.IsSuperuser() {
		return "", apperr.Forbidden("Only superusers can delete users.")
	}

	target, err := service.accountRepository.FindByID(context, id)
	if err != nil {
		return "", fmt.Errorf("account_service_delete_lookup_failed: %w", err)
	}

	if target.IsSuperuser() {
		return "", apperr.Forbidden("You cannot delete superusers")
	}

	if target.IsActive {
		return "", apperr.BusinessRule("You must deactivate the user before deleting it.").WithCode(CodeStillActive)
	}

	if err := service.accountRepository.Delete(context, id); err != nil {
		return "", fmt.Errorf("account_service_delete_failed: %w", err)
	}

	service.logger.InfoContext(context, "account_deleted",
		slog.String("user_id", id),
		slog.String("actor_id", actor.UserID),
	)

	return fmt.Sprintf("User %s deleted successfully.", target.Email), nil
}
