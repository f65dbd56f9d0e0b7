package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"cardistry-catalog/internal/domains/session/model"
	"cardistry-catalog/internal/domains/session/repository"
	"cardistry-catalog/pkg/cache"
	"cardistry-catalog/pkg/jwt"
)

const revokedKeyPrefix = "session:revoked:"

type sessionService struct {
	accounts repository.AccountRepository
	provider IdentityProvider
	tokens   *jwt.Manager
	cache    cache.Cache
	broker   *broker
	now      func() time.Time
}

func NewSessionService(
	accounts repository.AccountRepository,
	provider IdentityProvider,
	tokens *jwt.Manager,
	cache cache.Cache,
) Service {
	return &sessionService{
		accounts: accounts,
		provider: provider,
		tokens:   tokens,
		cache:    cache,
		broker:   newBroker(),
		now:      time.Now,
	}
}

func (s *sessionService) Register(ctx context.Context, req model.RegisterRequest) (*model.Identity, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, model.NewInvalidInputError(err)
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		ID:           uuid.New(),
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PhotoURL:     req.PhotoURL,
		PasswordHash: hash,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, model.ErrAccountExists) {
			return nil, model.NewAccountExistsError()
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	identity := account.Identity()
	log.Info().Str("uid", identity.UID).Msg("account registered")
	return &identity, nil
}

func (s *sessionService) SignIn(ctx context.Context, req model.SignInRequest) (*model.SignInResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, model.NewAuthFailure(err.Error())
	}

	identity, err := s.provider.Authenticate(ctx, req)
	if err != nil {
		return nil, err
	}

	token, sessionID, expiresAt, err := s.tokens.GenerateSessionToken(
		identity.UID, identity.Email, identity.DisplayName, identity.PhotoURL,
	)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	s.broker.publish(model.IdentityChange{SessionID: sessionID, Identity: identity, At: s.now()})
	log.Info().Str("uid", identity.UID).Str("session_id", sessionID).Msg("signed in")

	return &model.SignInResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Identity:  *identity,
	}, nil
}

func (s *sessionService) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		// already unusable; nothing to revoke
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.cache.Set(ctx, revokedKeyPrefix+claims.ID, true, ttl); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	s.broker.publish(model.IdentityChange{SessionID: claims.ID, At: s.now()})
	log.Info().Str("uid", claims.UserID).Str("session_id", claims.ID).Msg("signed out")
	return nil
}

func (s *sessionService) Current(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}

	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, nil
	}

	revoked, err := s.cache.Exists(ctx, revokedKeyPrefix+claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, nil
	}

	return &model.Session{
		ID: claims.ID,
		Identity: model.Identity{
			UID:         claims.UserID,
			DisplayName: claims.DisplayName,
			Email:       claims.Email,
			PhotoURL:    claims.PhotoURL,
		},
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *sessionService) Subscribe() (<-chan model.IdentityChange, func()) {
	return s.broker.subscribe()
}
