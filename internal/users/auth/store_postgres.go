// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taibuivan/quill/internal/platform/database/schema"
)

// # Revocation Repository

// PostgresRevocationRepository implements [RevocationRepository] using pgx.
type PostgresRevocationRepository struct {
	pool *pgxpool.Pool
}

// NewRevocationRepository creates a new Postgres implementation for the refresh token blacklist.
func NewRevocationRepository(pool *pgxpool.Pool) *PostgresRevocationRepository {
	return &PostgresRevocationRepository{pool: pool}
}

/*
Revoke inserts a jti into auth.revokedtoken.

Parameters:
  - context: context.Context
  - jti: string
  - userID: string
  - expiresAt: time.Time

Returns:
  - bool: False when the jti was already revoked
  - error: Execution failures
*/
func (repository *PostgresRevocationRepository) Revoke(context context.Context, jti, userID string, expiresAt time.Time) (bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (%s) DO NOTHING`,
		schema.AuthRevokedToken.Table,
		schema.AuthRevokedToken.JTI, schema.AuthRevokedToken.UserID,
		schema.AuthRevokedToken.ExpiresAt, schema.AuthRevokedToken.RevokedAt,
		schema.AuthRevokedToken.JTI,
	)

	tag, err := repository.pool.Exec(context, query, jti, userID, expiresAt)
	if err != nil {
		return false, fmt.Errorf("postgres_revocation_repo_revoke_failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// IsRevoked reports whether jti is blacklisted.
func (repository *PostgresRevocationRepository) IsRevoked(context context.Context, jti string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)`,
		schema.AuthRevokedToken.Table, schema.AuthRevokedToken.JTI)

	var revoked bool
	if err := repository.pool.QueryRow(context, query, jti).Scan(&revoked); err != nil {
		return false, fmt.Errorf("postgres_revocation_repo_lookup_failed: %w", err)
	}
	return revoked, nil
}

/*
DeleteExpired removes blacklist rows for tokens that expired before the cutoff.

Description: An expired token fails signature-time validation on its own, so
its blacklist entry is no longer needed.

Parameters:
  - context: context.Context
  - before: time.Time

Returns:
  - int64: Rows removed
  - error: Execution failures
*/
func (repository *PostgresRevocationRepository) DeleteExpired(context context.Context, before time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s < $1`,
		schema.AuthRevokedToken.Table, schema.AuthRevokedToken.ExpiresAt)

	tag, err := repository.pool.Exec(context, query, before)
	if err != nil {
		return 0, fmt.Errorf("postgres_revocation_repo_sweep_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
