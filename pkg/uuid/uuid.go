// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid generates the identifiers used as account primary keys.

Values are UUID version 7, so they sort by creation time and keep the
users.account B-tree index append-mostly.
*/
package uuid

import "github.com/google/uuid"

// New returns a new UUIDv7 in its canonical string form.
//
// It panics only when the OS entropy source fails.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("uuid: failed to generate v7: " + err.Error())
	}
	return id.String()
}

// Valid reports whether s parses as a UUID of any version.
func Valid(s string) bool {
	return uuid.Validate(s) == nil
}
