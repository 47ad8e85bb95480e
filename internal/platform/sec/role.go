// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Unrestricted system access. Can manage staff accounts.
	RoleSuperuser UserRole = "superuser"

	// Moderates member accounts (activate, deactivate, strike).
	RoleStaff UserRole = "staff"

	// Default role for standard registered users
	RoleMember UserRole = "member"
)

// ParseRole maps a stored role string to a [UserRole], defaulting to member.
func ParseRole(raw string) UserRole {
	switch UserRole(raw) {
	case RoleSuperuser, RoleStaff:
		return UserRole(raw)
	default:
		return RoleMember
	}
}

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.level() >= target.level()
}

// IsStaff reports whether the role carries moderation rights. Superusers are staff.
func (r UserRole) IsStaff() bool { return r.AtLeast(RoleStaff) }

// IsSuperuser reports whether the role is the top of the hierarchy.
func (r UserRole) IsSuperuser() bool { return r == RoleSuperuser }

// level maps a role to a numeric hierarchy level for comparison logic.
func (r UserRole) level() int {
	switch r {
	case RoleSuperuser:
		return 30
	case RoleStaff:
		return 20
	case RoleMember:
		return 10
	default:
		return 0
	}
}

// # Capability Table

// Action is an account lifecycle transition applied by one account to another.
type Action string

const (
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
	ActionStrike     Action = "strike"
	ActionUnstrike   Action = "unstrike"
)

// capabilities lists, per actor role and action, the target roles it may be applied to.
// Self-targeting is decided by the lifecycle manager, not by this table.
var capabilities = map[UserRole]map[Action][]UserRole{
	RoleSuperuser: {
		ActionActivate:   {RoleMember, RoleStaff, RoleSuperuser},
		ActionDeactivate: {RoleMember, RoleStaff},
		ActionStrike:     {RoleMember, RoleStaff},
		ActionUnstrike:   {RoleMember, RoleStaff, RoleSuperuser},
	},
	RoleStaff: {
		ActionActivate:   {RoleMember},
		ActionDeactivate: {RoleMember},
		ActionStrike:     {RoleMember},
		ActionUnstrike:   {RoleMember},
	},
}

// Can reports whether an actor holding role r may apply action to an account holding target.
func (r UserRole) Can(action Action, target UserRole) bool {
	for _, allowed := range capabilities[r][action] {
		if allowed == target {
			return true
		}
	}
	return false
}
