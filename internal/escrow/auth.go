package escrow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"escrow-service/internal/domain"
	"escrow-service/internal/infra"
)

// AuthService registers accounts and issues the bearer tokens the API
// derives caller identity from.
type AuthService struct {
	accounts  domain.AccountStore
	jwtSecret string
	tokenTTL  time.Duration
	logger    zerolog.Logger
	clock     func() time.Time
}

// NewAuthService creates an AuthService using the wall clock.
func NewAuthService(accounts domain.AccountStore, jwtSecret string, tokenTTL time.Duration, logger zerolog.Logger) *AuthService {
	return &AuthService{
		accounts:  accounts,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
		clock:     time.Now,
	}
}

// WithClock overrides the service clock. Tests use it to pin time.
func (s *AuthService) WithClock(clock func() time.Time) *AuthService {
	s.clock = clock
	return s
}

// Register creates a new account and returns it with a signed token so
// fresh accounts can act immediately.
func (s *AuthService) Register(ctx context.Context, email, displayName, password string) (*domain.Account, string, error) {
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, "", domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, "", err
	}

	hash, err := infra.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	a := &domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    s.clock(),
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, "", err
	}

	token, err := infra.GenerateToken(a.ID, s.jwtSecret, s.tokenTTL, s.clock())
	if err != nil {
		return nil, "", err
	}

	s.logger.Info().Str("account_id", a.ID).Msg("account registered")
	return a, token, nil
}

// Login checks credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	a, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}
	if !infra.CheckPassword(password, a.PasswordHash) {
		return "", domain.ErrInvalidCredentials
	}
	return infra.GenerateToken(a.ID, s.jwtSecret, s.tokenTTL, s.clock())
}

// Account returns the account behind an id.
func (s *AuthService) Account(ctx context.Context, id string) (*domain.Account, error) {
	return s.accounts.GetByID(ctx, id)
}
