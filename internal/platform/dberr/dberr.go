// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/quill/internal/platform/apperr"
)

// ConstraintMessages maps a unique constraint name to the client-facing
// message used when it is violated.
type ConstraintMessages map[string]string

// Wrap inspects a database error and classifies it into an [apperr.AppError].
//
//   - pgx.ErrNoRows becomes NotFound(resource).
//   - A unique violation becomes Conflict, using messages[constraint] when known.
//   - Anything else is wrapped with the action prefix and stays internal.
func Wrap(err error, action, resource string, messages ConstraintMessages) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	// 2. Constraint mapping
	var pgError *pgconn.PgError
	if errors.As(err, &pgError) && pgError.Code == pgerrcode.UniqueViolation {
		if message, ok := messages[pgError.ConstraintName]; ok {
			return apperr.Conflict(message).WithCause(err)
		}
		return apperr.Conflict(resource + " already exists").WithCause(err)
	}

	// 3. Unknown query errors keep their cause for the 500 log line
	return fmt.Errorf("%s: %w", action, err)
}

// IsUniqueViolation reports whether err is a Postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgError *pgconn.PgError
	return errors.As(err, &pgError) && pgError.Code == pgerrcode.UniqueViolation
}
