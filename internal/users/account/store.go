// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"

	"github.com/taibuivan/quill/pkg/pagination"
)

// # Repository Contracts

// MutateFunc applies a change to a locked account. Returning an error aborts
// the transaction and nothing is written.
type MutateFunc func(account *Account) error

// AccountRepository defines the persistence contract for accounts.
type AccountRepository interface {

	/*
		FindByID retrieves an account by its unique ID.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - *Account: Hydrated entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByID(context context.Context, id string) (*Account, error)

	/*
		FindByEmail retrieves an account by its normalized email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *Account: Hydrated entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByEmail(context context.Context, email string) (*Account, error)

	// FindByPhone retrieves an account by its E.164 phone number.
	FindByPhone(context context.Context, phone string) (*Account, error)

	/*
		List returns one page of accounts ordered by creation time.

		Parameters:
		  - context: context.Context
		  - params: pagination.Params

		Returns:
		  - []*Account: The page
		  - int: Total number of accounts
		  - error: Storage failures
	*/
	List(context context.Context, params pagination.Params) ([]*Account, int, error)

	/*
		Create persists a brand-new account.

		Parameters:
		  - context: context.Context
		  - account: *Account

		Returns:
		  - error: apperr.Conflict on duplicate email, username or phone
	*/
	Create(context context.Context, account *Account) error

	/*
		Mutate locks the account row, applies fn and writes the result back in
		one transaction. Concurrent mutations of the same account serialize.

		Parameters:
		  - context: context.Context
		  - id: string
		  - fn: MutateFunc

		Returns:
		  - *Account: The account as written
		  - error: apperr.NotFound, the error returned by fn, or storage failures
	*/
	Mutate(context context.Context, id string, fn MutateFunc) (*Account, error)

	// Delete hard-deletes an account.
	Delete(context context.Context, id string) error
}
