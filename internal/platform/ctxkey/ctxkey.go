// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey names the context slots owned by the platform packages.
//
// Only [ctxutil] reads or writes these slots; everything else goes through
// its accessors.
package ctxkey

// Key is a context slot. Two keys are equal only when their names match, and
// no value of this type can be built outside the package.
type Key struct {
	name string
}

// String implements [fmt.Stringer] for debugging output of context chains.
func (key Key) String() string {
	return "quill/ctxkey." + key.name
}

var (
	// Scope holds the request's mutable *ctxutil.Scope.
	Scope = Key{name: "scope"}

	// Claims holds the verified *sec.AuthClaims of the caller.
	Claims = Key{name: "claims"}
)
