package memstore

import (
	"context"
	"strings"
	"sync"

	"escrow-service/internal/domain"
)

// AccountStore implements domain.AccountStore in process memory.
type AccountStore struct {
	mu      sync.RWMutex
	byID    map[string]domain.Account
	byEmail map[string]string
}

// NewAccountStore creates an empty AccountStore.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		byID:    make(map[string]domain.Account),
		byEmail: make(map[string]string),
	}
}

// Create stores the account, rejecting duplicate email addresses.
func (s *AccountStore) Create(ctx context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(a.Email)
	if _, taken := s.byEmail[key]; taken {
		return domain.ErrEmailTaken
	}
	s.byID[a.ID] = *a
	s.byEmail[key] = a.ID
	return nil
}

// GetByEmail looks an account up by its email address.
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	a := s.byID[id]
	return &a, nil
}

// GetByID looks an account up by its identifier.
func (s *AccountStore) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &a, nil
}
