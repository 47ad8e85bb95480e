// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/dberr"
)

/*
TestWrap covers the classification of driver errors.
*/
func TestWrap(t *testing.T) {
	messages := dberr.ConstraintMessages{"account_email_key": "User with this email already exists."}

	t.Run("no rows", func(t *testing.T) {
		err := dberr.Wrap(fmt.Errorf("scan: %w", pgx.ErrNoRows), "find", "Account", messages)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("known unique constraint", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "account_email_key"}
		err := dberr.Wrap(pgErr, "create", "Account", messages)

		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, http.StatusConflict, ae.HTTPStatus)
		assert.Equal(t, "User with this email already exists.", ae.Message)
		assert.True(t, dberr.IsUniqueViolation(err))
	})

	t.Run("unknown unique constraint", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "other_key"}
		err := dberr.Wrap(pgErr, "create", "Account", messages)
		assert.Equal(t, "Account already exists", err.Error())
	})

	t.Run("other errors stay internal", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := dberr.Wrap(cause, "postgres_account_repo_create_failed", "Account", messages)
		assert.False(t, apperr.IsAppError(err))
		assert.ErrorIs(t, err, cause)
	})

	assert.NoError(t, dberr.Wrap(nil, "noop", "Account", nil))
}
