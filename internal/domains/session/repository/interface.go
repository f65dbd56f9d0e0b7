package repository

import (
	"context"
	"errors"

	"cardistry-catalog/internal/domains/session/model"
)

var ErrAccountNotFound = errors.New("account not found")

// AccountRepository stores the accounts behind the password identity provider.
type AccountRepository interface {
	// Create inserts a new account; model.ErrAccountExists on duplicate email.
	Create(ctx context.Context, account *model.Account) error

	// GetByEmail returns ErrAccountNotFound when no account matches.
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
}
