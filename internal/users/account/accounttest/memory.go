// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package accounttest provides an in-memory [account.AccountRepository] for tests.
package accounttest

import (
	"context"
	"sort"
	"sync"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/users/account"
	"github.com/taibuivan/quill/pkg/pagination"
)

// MemoryRepository stores accounts in a map guarded by a mutex. Mutate holds
// the lock for the whole callback, matching the row lock of the Postgres store.
type MemoryRepository struct {
	mu       sync.Mutex
	accounts map[string]*account.Account

	// MutateCalls counts committed and aborted Mutate invocations.
	MutateCalls int
}

// NewMemoryRepository returns a repository seeded with the given accounts.
func NewMemoryRepository(seed ...*account.Account) *MemoryRepository {
	repository := &MemoryRepository{accounts: make(map[string]*account.Account)}
	for _, item := range seed {
		repository.accounts[item.ID] = clone(item)
	}
	return repository
}

func clone(item *account.Account) *account.Account {
	copied := *item
	if item.PhoneNumber != nil {
		phone := *item.PhoneNumber
		copied.PhoneNumber = &phone
	}
	if item.LastFailedLoginAt != nil {
		at := *item.LastFailedLoginAt
		copied.LastFailedLoginAt = &at
	}
	return &copied
}

func (repository *MemoryRepository) find(match func(*account.Account) bool) (*account.Account, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, item := range repository.accounts {
		if match(item) {
			return clone(item), nil
		}
	}
	return nil, apperr.NotFound("User")
}

// FindByID implements [account.AccountRepository].
func (repository *MemoryRepository) FindByID(_ context.Context, id string) (*account.Account, error) {
	return repository.find(func(item *account.Account) bool { return item.ID == id })
}

// FindByEmail implements [account.AccountRepository].
func (repository *MemoryRepository) FindByEmail(_ context.Context, email string) (*account.Account, error) {
	return repository.find(func(item *account.Account) bool { return item.Email == email })
}

// FindByPhone implements [account.AccountRepository].
func (repository *MemoryRepository) FindByPhone(_ context.Context, phone string) (*account.Account, error) {
	return repository.find(func(item *account.Account) bool {
		return item.PhoneNumber != nil && *item.PhoneNumber == phone
	})
}

// List implements [account.AccountRepository].
func (repository *MemoryRepository) List(_ context.Context, params pagination.Params) ([]*account.Account, int, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	all := make([]*account.Account, 0, len(repository.accounts))
	for _, item := range repository.accounts {
		all = append(all, clone(item))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	start := min(params.Offset(), len(all))
	end := min(start+params.Limit, len(all))
	return all[start:end], len(all), nil
}

// Create implements [account.AccountRepository].
func (repository *MemoryRepository) Create(_ context.Context, item *account.Account) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if err := repository.checkUnique(item); err != nil {
		return err
	}
	repository.accounts[item.ID] = clone(item)
	return nil
}

// Mutate implements [account.AccountRepository].
func (repository *MemoryRepository) Mutate(_ context.Context, id string, fn account.MutateFunc) (*account.Account, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	repository.MutateCalls++

	stored, ok := repository.accounts[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}

	working := clone(stored)
	if err := fn(working); err != nil {
		return nil, err
	}
	if err := repository.checkUnique(working); err != nil {
		return nil, err
	}

	repository.accounts[id] = clone(working)
	return working, nil
}

// Delete implements [account.AccountRepository].
func (repository *MemoryRepository) Delete(_ context.Context, id string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, ok := repository.accounts[id]; !ok {
		return apperr.NotFound("User")
	}
	delete(repository.accounts, id)
	return nil
}

// Get returns the stored account without going through the repository API.
func (repository *MemoryRepository) Get(id string) *account.Account {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if item, ok := repository.accounts[id]; ok {
		return clone(item)
	}
	return nil
}

func (repository *MemoryRepository) checkUnique(candidate *account.Account) error {
	for _, item := range repository.accounts {
		if item.ID == candidate.ID {
			continue
		}
		switch {
		case item.Email == candidate.Email:
			return apperr.Conflict("User with this email already exists.")
		case item.Username == candidate.Username:
			return apperr.Conflict("User with this username already exists.")
		case item.PhoneNumber != nil && candidate.PhoneNumber != nil && *item.PhoneNumber == *candidate.PhoneNumber:
			return apperr.Conflict("User with this phone number already exists.")
		}
	}
	return nil
}
