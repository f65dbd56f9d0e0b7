package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"cardistry-catalog/internal/domains/session/model"
	"cardistry-catalog/internal/domains/session/repository"
)

const bcryptCost = 12

// PasswordProvider verifies email/password pairs against stored accounts.
type PasswordProvider struct {
	accounts repository.AccountRepository
}

func NewPasswordProvider(accounts repository.AccountRepository) *PasswordProvider {
	return &PasswordProvider{accounts: accounts}
}

func (p *PasswordProvider) Authenticate(ctx context.Context, req model.SignInRequest) (*model.Identity, error) {
	account, err := p.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, model.NewAuthFailure("invalid email or password")
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	// constant-time comparison
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, model.NewAuthFailure("invalid email or password")
	}

	identity := account.Identity()
	return &identity, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
