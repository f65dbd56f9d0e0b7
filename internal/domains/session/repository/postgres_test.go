package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"cardistry-catalog/internal/domains/session/model"
)

func TestCreateError(t *testing.T) {
	t.Run("duplicate email", func(t *testing.T) {
		err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: uniqueViolation, ConstraintName: "accounts_email_key"})
		assert.Same(t, model.ErrAccountExists, createError(err))
	})

	t.Run("other constraint", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23502"}
		err := createError(pgErr)
		assert.NotErrorIs(t, err, model.ErrAccountExists)
		assert.ErrorIs(t, err, pgErr)
	})

	t.Run("connection failure", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		err := createError(cause)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "failed to create account")
	})
}

func TestLookupError(t *testing.T) {
	assert.Same(t, ErrAccountNotFound, lookupError(pgx.ErrNoRows))

	cause := errors.New("timeout")
	err := lookupError(cause)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrAccountNotFound)
}
