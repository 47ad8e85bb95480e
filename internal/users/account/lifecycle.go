// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/sec"
)

// Machine codes for rejected lifecycle transitions.
const (
	CodeAlreadyActive      = "ALREADY_ACTIVE"
	CodeAlreadyDeactivated = "ALREADY_DEACTIVATED"
	CodeTargetDeactivated  = "ACCOUNT_DEACTIVATED"
	CodeStrikeLimit        = "STRIKE_LIMIT"
	CodeNoStrikes          = "NO_STRIKES"
	CodeStillActive        = "STILL_ACTIVE"
	CodeActorDisabled      = "ACCOUNT_DISABLED"
)

// # Acting Account

/*
actingAccount re-reads the caller behind an access token.

Description: Access tokens outlive account state changes, so a caller that was
deactivated or locked out after sign-in is rejected here rather than waiting
for the token to expire.

Parameters:
  - context: context.Context
  - actorID: string

Returns:
  - *Account: The caller
  - error: UNAUTHORIZED, ACCOUNT_DISABLED or storage failures
*/
func (service *Service) actingAccount(context context.Context, actorID string) (*Account, error) {
	actor, err := service.accountRepository.FindByID(context, actorID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("Authentication required")
		}
		return nil, fmt.Errorf("account_service_actor_lookup_failed: %w", err)
	}

	switch {
	case !actor.IsActive:
		return nil, apperr.Unauthorized("User is inactive.").WithCode(CodeActorDisabled)
	case actor.AuthProvider == ProviderEmail && !actor.IsEmailVerified:
		return nil, apperr.Unauthorized("Email is not verified. You must verify your email first").WithCode(CodeActorDisabled)
	}
	return actor, nil
}

// # Lifecycle Transitions

// transitionFunc validates and applies one transition to a locked target.
type transitionFunc func(actor, target *Account) (string, error)

/*
transition loads the actor, locks the target and applies fn.

Description: The actor is re-read through [Service.actingAccount] so a role or
state change since the access token was issued takes effect. The target is mutated under its row lock
and persisted before the call returns.

Parameters:
  - context: context.Context
  - actorID: string
  - targetID: string
  - action: sec.Action
  - fn: transitionFunc

Returns:
  - string: Confirmation message
  - error: Business rule, permission or storage failures
*/
func (service *Service) transition(context context.Context, actorID, targetID string, action sec.Action, fn transitionFunc) (string, error) {
	actor, err := service.actingAccount(context, actorID)
	if err != nil {
		return "", err
	}

	var message string
	_, err = service.accountRepository.Mutate(context, targetID, func(target *Account) error {
		var applyErr error
		message, applyErr = fn(actor, target)
		return applyErr
	})
	if err != nil {
		return "", fmt.Errorf("account_service_%s_failed: %w", action, err)
	}

	service.logger.InfoContext(context, "account_transition",
		slog.String("action", string(action)),
		slog.String("actor_id", actorID),
		slog.String("user_id", targetID),
	)

	return message, nil
}

// authorize applies the role hierarchy shared by every transition.
func authorize(action sec.Action, actor, target *Account) error {
	switch {
	case !actor.IsStaff():
		return apperr.Forbidden(fmt.Sprintf("You do not have permission to %s users.", action))
	case actor.ID == target.ID:
		return apperr.Forbidden(fmt.Sprintf("You cannot %s yourself.", action))
	case actor.Role.Can(action, target.Role):
		return nil
	case target.IsSuperuser():
		return apperr.Forbidden(fmt.Sprintf("You cannot %s a superuser.", action))
	default:
		return apperr.Forbidden(fmt.Sprintf("Only superusers can %s staff users.", action))
	}
}

/*
Deactivate turns an active account off.

Description: A member may deactivate itself. Staff may not deactivate
themselves. A superuser asking to deactivate itself is instead marked email
unverified, forcing re-verification before the next login.

Parameters:
  - context: context.Context
  - actorID: string
  - targetID: string

Returns:
  - string: Confirmation message
  - error: Business rule or permission failures
*/
func (service *Service) Deactivate(context context.Context, actorID, targetID string) (string, error) {
	return service.transition(context, actorID, targetID, sec.ActionDeactivate, func(actor, target *Account) (string, error) {
		if !target.IsActive {
			return "", apperr.BusinessRule("User is already deactivated.").WithCode(CodeAlreadyDeactivated)
		}

		// Self-service
		if actor.ID == target.ID {
			switch {
			case target.IsSuperuser():
				target.IsEmailVerified = false
				return fmt.Sprintf("Superuser %s must verify their email again before signing in.", target.Email), nil
			case target.IsStaff():
				return "", apperr.Forbidden("You cannot deactivate yourself as a staff. Contact a superuser")
			default:
				target.IsActive = false
				return fmt.Sprintf("User %s has been deactivated.", target.Email), nil
			}
		}

		if err := authorize(sec.ActionDeactivate, actor, target); err != nil {
			return "", err
		}

		target.IsActive = false
		return fmt.Sprintf("User %s has been deactivated.", target.Email), nil
	})
}

// Activate turns a deactivated account back on and clears its failed-login counter.
func (service *Service) Activate(context context.Context, actorID, targetID string) (string, error) {
	return service.transition(context, actorID, targetID, sec.ActionActivate, func(actor, target *Account) (string, error) {
		if target.IsActive {
			return "", apperr.BusinessRule("User is not deactivated.").WithCode(CodeAlreadyActive)
		}

		if err := authorize(sec.ActionActivate, actor, target); err != nil {
			return "", err
		}

		target.IsActive = true
		target.FailedLoginAttempts = 0
		return fmt.Sprintf("User %s has been reactivated.", target.Email), nil
	})
}

/*
Strike records a disciplinary strike.

Description: Striking is blocked once the account holds the maximum number of
strikes. Reaching the maximum deactivates the account in the same write.

Parameters:
  - context: context.Context
  - actorID: string
  - targetID: string

Returns:
  - string: Confirmation message
  - error: Business rule or permission failures
*/
func (service *Service) Strike(context context.Context, actorID, targetID string) (string, error) {
	return service.transition(context, actorID, targetID, sec.ActionStrike, func(actor, target *Account) (string, error) {
		if !target.IsActive {
			return "", apperr.BusinessRule("Cannot strike a deactivated user.").WithCode(CodeTargetDeactivated)
		}

		if target.Strikes >= service.maxStrikes {
			return "", apperr.BusinessRule(fmt.Sprintf(
				"User is already striked %d times. You cannot strike again.", service.maxStrikes,
			)).WithCode(CodeStrikeLimit)
		}

		if err := authorize(sec.ActionStrike, actor, target); err != nil {
			return "", err
		}

		target.Strikes++
		if target.Strikes >= service.maxStrikes {
			target.IsActive = false
			return fmt.Sprintf("User %s has been striked %d times. User %s has been deactivated.",
				target.Email, service.maxStrikes, target.Email), nil
		}

		return fmt.Sprintf("User %s has been striked.", target.Email), nil
	})
}

// Unstrike removes one strike. It is blocked when the account has none.
func (service *Service) Unstrike(context context.Context, actorID, targetID string) (string, error) {
	return service.transition(context, actorID, targetID, sec.ActionUnstrike, func(actor, target *Account) (string, error) {
		if !target.IsActive {
			return "", apperr.BusinessRule("Cannot unstrike a deactivated user.").WithCode(CodeTargetDeactivated)
		}

		if target.Strikes <= 0 {
			return "", apperr.BusinessRule("User does not have any strikes. You cannot unstrike again.").WithCode(CodeNoStrikes)
		}

		if err := authorize(sec.ActionUnstrike, actor, target); err != nil {
			return "", err
		}

		target.Strikes--
		return fmt.Sprintf("User %s has been unstriked.", target.Email), nil
	})
}
