package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cardistry-catalog/internal/domains/session/model"
)

const uniqueViolation = "23505"

type postgresAccountRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &postgresAccountRepository{pool: pool}
}

func (r *postgresAccountRepository) Create(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (id, email, display_name, photo_url, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		account.ID,
		account.Email,
		account.DisplayName,
		account.PhotoURL,
		account.PasswordHash,
	).Scan(&account.CreatedAt)
	if err != nil {
		return createError(err)
	}
	return nil
}

// createError maps a duplicate email onto ErrAccountExists.
func createError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return model.ErrAccountExists
	}
	return fmt.Errorf("failed to create account: %w", err)
}

func (r *postgresAccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `
		SELECT id, email, display_name, photo_url, password_hash, created_at
		FROM accounts
		WHERE email = $1
	`

	account := &model.Account{}
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&account.ID,
		&account.Email,
		&account.DisplayName,
		&account.PhotoURL,
		&account.PasswordHash,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, lookupError(err)
	}
	return account, nil
}

func lookupError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAccountNotFound
	}
	return fmt.Errorf("failed to get account: %w", err)
}
