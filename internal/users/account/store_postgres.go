// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account (Postgres) implements the storage layer for accounts.

# Schema Table Mapping
  - users.account: Identity, credentials, role, verification flags and counters.

# Concurrency

Counter updates go through Mutate, which holds a row lock for the whole
read-modify-write so two failed logins or two strikes never lose an update.
*/
package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/database/schema"
	"github.com/taibuivan/quill/internal/platform/dberr"
	"github.com/taibuivan/quill/internal/platform/postgres"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/pkg/pagination"
	"github.com/taibuivan/quill/pkg/uuid"
)

// resourceAccount is the resource name used in NotFound messages.
const resourceAccount = "User"

// accountConstraints maps unique constraints to client-facing messages.
var accountConstraints = dberr.ConstraintMessages{
	schema.UserAccountEmailKey:    "User with this email already exists.",
	schema.UserAccountUsernameKey: "User with this username already exists.",
	schema.UserAccountPhoneKey:    "User with this phone number already exists.",
}

// # Repository Implementation

// PostgresAccountRepository implements [AccountRepository] using pgx.
type PostgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new Postgres implementation for accounts.
func NewAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanAccount hydrates an account in [schema.UserAccountTable.Columns] order.
func scanAccount(row rowScanner) (*Account, error) {
	var (
		account  Account
		role     string
		provider string
	)

	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Username,
		&account.Slug,
		&account.PasswordHash,
		&account.FirstName,
		&account.LastName,
		&account.Bio,
		&account.PhoneNumber,
		&role,
		&account.IsActive,
		&account.IsEmailVerified,
		&account.IsPhoneVerified,
		&account.IsTwoFA,
		&account.IsNotiOn,
		&account.FailedLoginAttempts,
		&account.LastFailedLoginAt,
		&account.Strikes,
		&provider,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Role = sec.ParseRole(role)
	account.AuthProvider = Provider(provider)
	return &account, nil
}

// findBy loads a single account matching column = value.
func (repository *PostgresAccountRepository) findBy(context context.Context, column, value, action string) (*Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		schema.UserAccount.SelectList(), schema.UserAccount.Table, column)

	account, err := scanAccount(repository.pool.QueryRow(context, query, value))
	if err != nil {
		return nil, dberr.Wrap(err, action, resourceAccount, nil)
	}
	return account, nil
}

/*
FindByID retrieves an account from the users.account table.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - *Account: Hydrated entity
  - error: apperr.NotFound or database execution failure
*/
func (repository *PostgresAccountRepository) FindByID(context context.Context, id string) (*Account, error) {
	if !uuid.Valid(id) {
		return nil, apperr.NotFound(resourceAccount)
	}
	return repository.findBy(context, schema.UserAccount.ID, id, "postgres_account_repo_find_by_id_failed")
}

// FindByEmail retrieves an account by email.
func (repository *PostgresAccountRepository) FindByEmail(context context.Context, email string) (*Account, error) {
	return repository.findBy(context, schema.UserAccount.Email, email, "postgres_account_repo_find_by_email_failed")
}

// FindByPhone retrieves an account by phone number.
func (repository *PostgresAccountRepository) FindByPhone(context context.Context, phone string) (*Account, error) {
	return repository.findBy(context, schema.UserAccount.PhoneNumber, phone, "postgres_account_repo_find_by_phone_failed")
}

/*
List returns one page of accounts, oldest first.

Parameters:
  - context: context.Context
  - params: pagination.Params

Returns:
  - []*Account: The page
  - int: Total number of accounts
  - error: Retrieval failures
*/
func (repository *PostgresAccountRepository) List(context context.Context, params pagination.Params) ([]*Account, int, error) {
	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, schema.UserAccount.Table)
	if err := repository.pool.QueryRow(context, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_account_repo_count_failed: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s ASC LIMIT $1 OFFSET $2`,
		schema.UserAccount.SelectList(), schema.UserAccount.Table, schema.UserAccount.CreatedAt)

	rows, err := repository.pool.Query(context, query, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_account_repo_list_failed: %w", err)
	}
	defer rows.Close()

	accounts := make([]*Account, 0, params.Limit)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_account_repo_list_scan_failed: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_account_repo_list_rows_failed: %w", err)
	}

	return accounts, total, nil
}

/*
Create persists a brand-new account.

Parameters:
  - context: context.Context
  - account: *Account

Returns:
  - error: apperr.Conflict on duplicate email, username or phone
*/
func (repository *PostgresAccountRepository) Create(context context.Context, account *Account) error {
	columns := schema.UserAccount.Columns()
	placeholders := make([]string, len(columns))
	for index := range columns {
		placeholders[index] = fmt.Sprintf("$%d", index+1)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		schema.UserAccount.Table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	_, err := repository.pool.Exec(context, query,
		account.ID,
		account.Email,
		account.Username,
		account.Slug,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.Bio,
		account.PhoneNumber,
		string(account.Role),
		account.IsActive,
		account.IsEmailVerified,
		account.IsPhoneVerified,
		account.IsTwoFA,
		account.IsNotiOn,
		account.FailedLoginAttempts,
		account.LastFailedLoginAt,
		account.Strikes,
		string(account.AuthProvider),
		account.CreatedAt,
		account.UpdatedAt,
	)

	return dberr.Wrap(err, "postgres_account_repo_create_failed", resourceAccount, accountConstraints)
}

/*
Mutate runs a locked read-modify-write on one account.

Description: Selects the row FOR UPDATE inside a read-committed transaction,
hands it to fn and writes every mutable column back before committing. An
error from fn rolls the transaction back.

Parameters:
  - context: context.Context
  - id: string
  - fn: MutateFunc

Returns:
  - *Account: The account as committed
  - error: apperr.NotFound, fn's error or storage failures
*/
func (repository *PostgresAccountRepository) Mutate(context context.Context, id string, fn MutateFunc) (*Account, error) {
	var result *Account

	err := postgres.InTx(context, repository.pool, func(tx pgx.Tx) error {

		// 1. Lock the row
		lockQuery := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 FOR UPDATE`,
			schema.UserAccount.SelectList(), schema.UserAccount.Table, schema.UserAccount.ID)

		account, err := scanAccount(tx.QueryRow(context, lockQuery, id))
		if err != nil {
			return dberr.Wrap(err, "postgres_account_repo_lock_failed", resourceAccount, nil)
		}

		// 2. Apply the change
		if err := fn(account); err != nil {
			return err
		}
		account.UpdatedAt = time.Now()

		// 3. Write back
		updateQuery := fmt.Sprintf(`
			UPDATE %s
			SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = $7, %s = $8, %s = $9,
			    %s = $10, %s = $11, %s = $12, %s = $13, %s = $14, %s = $15, %s = $16, %s = $17
			WHERE %s = $1`,
			schema.UserAccount.Table,
			schema.UserAccount.Username, schema.UserAccount.Slug, schema.UserAccount.Password,
			schema.UserAccount.FirstName, schema.UserAccount.LastName, schema.UserAccount.Bio,
			schema.UserAccount.PhoneNumber, schema.UserAccount.IsActive, schema.UserAccount.IsEmailVerified,
			schema.UserAccount.IsPhoneVerified, schema.UserAccount.IsTwoFA, schema.UserAccount.IsNotiOn,
			schema.UserAccount.FailedLoginAttempts, schema.UserAccount.LastFailedLoginAt,
			schema.UserAccount.Strikes, schema.UserAccount.UpdatedAt,
			schema.UserAccount.ID,
		)

		_, err = tx.Exec(context, updateQuery,
			account.ID,
			account.Username,
			account.Slug,
			account.PasswordHash,
			account.FirstName,
			account.LastName,
			account.Bio,
			account.PhoneNumber,
			account.IsActive,
			account.IsEmailVerified,
			account.IsPhoneVerified,
			account.IsTwoFA,
			account.IsNotiOn,
			account.FailedLoginAttempts,
			account.LastFailedLoginAt,
			account.Strikes,
			account.UpdatedAt,
		)
		if err != nil {
			return dberr.Wrap(err, "postgres_account_repo_update_failed", resourceAccount, accountConstraints)
		}

		result = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Delete removes an account row.
func (repository *PostgresAccountRepository) Delete(context context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.UserAccount.Table, schema.UserAccount.ID)

	tag, err := repository.pool.Exec(context, query, id)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_delete_failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperr.NotFound(resourceAccount)
	}
	return nil
}
