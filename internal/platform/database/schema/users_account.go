// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema holds the table and column names shared by the Postgres
// repositories and the SQL migrations.
package schema

import "strings"

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table               string
	ID                  string
	Email               string
	Username            string
	Slug                string
	Password            string
	FirstName           string
	LastName            string
	Bio                 string
	PhoneNumber         string
	Role                string
	IsActive            string
	IsEmailVerified     string
	IsPhoneVerified     string
	IsTwoFA             string
	IsNotiOn            string
	FailedLoginAttempts string
	LastFailedLoginAt   string
	Strikes             string
	AuthProvider        string
	CreatedAt           string
	UpdatedAt           string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:               "users.account",
	ID:                  "id",
	Email:               "email",
	Username:            "username",
	Slug:                "slug",
	Password:            "passwordhash",
	FirstName:           "firstname",
	LastName:            "lastname",
	Bio:                 "bio",
	PhoneNumber:         "phonenumber",
	Role:                "role",
	IsActive:            "isactive",
	IsEmailVerified:     "isemailverified",
	IsPhoneVerified:     "isphoneverified",
	IsTwoFA:             "istwofa",
	IsNotiOn:            "isnotion",
	FailedLoginAttempts: "failedloginattempts",
	LastFailedLoginAt:   "lastfailedloginat",
	Strikes:             "strikes",
	AuthProvider:        "authprovider",
	CreatedAt:           "createdat",
	UpdatedAt:           "updatedat",
}

// Columns returns all column names in scan order.
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.Username, t.Slug, t.Password, t.FirstName, t.LastName,
		t.Bio, t.PhoneNumber, t.Role, t.IsActive, t.IsEmailVerified,
		t.IsPhoneVerified, t.IsTwoFA, t.IsNotiOn, t.FailedLoginAttempts,
		t.LastFailedLoginAt, t.Strikes, t.AuthProvider, t.CreatedAt, t.UpdatedAt,
	}
}

// SelectList returns the comma-separated column list for SELECT statements.
func (t UserAccountTable) SelectList() string {
	return strings.Join(t.Columns(), ", ")
}

// Unique constraint names, used to map violations to client messages.
const (
	UserAccountEmailKey    = "account_email_key"
	UserAccountUsernameKey = "account_username_key"
	UserAccountPhoneKey    = "account_phonenumber_key"
)
