package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"escrow-service/internal/domain"
)

const uniqueViolation = "23505"

// AccountStorePG implements domain.AccountStore backed by PostgreSQL.
type AccountStorePG struct {
	pool *pgxpool.Pool
}

// NewAccountStore creates a new AccountStorePG.
func NewAccountStore(pool *pgxpool.Pool) *AccountStorePG {
	return &AccountStorePG{pool: pool}
}

// Create inserts the account, rejecting duplicate email addresses.
func (s *AccountStorePG) Create(ctx context.Context, a *domain.Account) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO accounts (id, email, display_name, password_hash, created_at)
VALUES ($1, $2, $3, $4, $5);
`, a.ID, a.Email, a.DisplayName, a.PasswordHash, a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByEmail looks an account up by its email address, case insensitive.
func (s *AccountStorePG) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, email, display_name, password_hash, created_at
FROM accounts
WHERE LOWER(email) = LOWER($1);
`, email)
	return scanAccount(row)
}

// GetByID looks an account up by its identifier.
func (s *AccountStorePG) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, email, display_name, password_hash, created_at
FROM accounts
WHERE id = $1;
`, id)
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Email, &a.DisplayName, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

var _ domain.AccountStore = (*AccountStorePG)(nil)
