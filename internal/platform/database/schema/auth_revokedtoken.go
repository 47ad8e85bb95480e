// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// AuthRevokedTokenTable represents the 'auth.revokedtoken' table
type AuthRevokedTokenTable struct {
	Table     string
	JTI       string
	UserID    string
	ExpiresAt string
	RevokedAt string
}

// AuthRevokedToken is the schema definition for auth.revokedtoken
var AuthRevokedToken = AuthRevokedTokenTable{
	Table:     "auth.revokedtoken",
	JTI:       "jti",
	UserID:    "userid",
	ExpiresAt: "expiresat",
	RevokedAt: "revokedat",
}
