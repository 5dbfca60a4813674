// Package fakes provides in-memory implementations of the repository and
// service contracts for unit and end-to-end tests that should not depend
// on real backing stores.
package fakes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/repository"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
)

// InMemoryKeyStore is a map-backed KeyStore for tests. The Fail* fields
// inject persistent errors per operation so tests can simulate storage
// outages on one path while the others keep working.
type InMemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string]*models.SigningKey

	FailCreate error
	FailGet    error
	FailList   error
	FailDelete error
}

// NewInMemoryKeyStore creates an empty key store.
func NewInMemoryKeyStore() *InMemoryKeyStore {
	return &InMemoryKeyStore{keys: make(map[string]*models.SigningKey)}
}

// Create inserts a signing key record.
func (s *InMemoryKeyStore) Create(ctx context.Context, key *models.SigningKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreate != nil {
		return s.FailCreate
	}
	cp := *key
	s.keys[key.KID] = &cp
	return nil
}

// GetByKID returns the key with the given identifier, expired or not.
func (s *InMemoryKeyStore) GetByKID(ctx context.Context, kid string) (*models.SigningKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailGet != nil {
		return nil, s.FailGet
	}
	key, ok := s.keys[kid]
	if !ok {
		return nil, errors.ErrKeyNotFound(kid)
	}
	cp := *key
	return &cp, nil
}

// ListUsable returns non-expired keys ordered by creation time descending.
func (s *InMemoryKeyStore) ListUsable(ctx context.Context, now time.Time) ([]*models.SigningKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailList != nil {
		return nil, s.FailList
	}

	var usable []*models.SigningKey
	for _, key := range s.keys {
		if key.IsUsableAt(now) {
			cp := *key
			usable = append(usable, &cp)
		}
	}
	sort.Slice(usable, func(i, j int) bool {
		return usable[i].CreatedAt.After(usable[j].CreatedAt)
	})
	return usable, nil
}

// DeleteExpiredBefore removes keys that expired before the cutoff.
func (s *InMemoryKeyStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDelete != nil {
		return 0, s.FailDelete
	}

	var removed int64
	for kid, key := range s.keys {
		if key.ExpiresAt.Before(cutoff) {
			delete(s.keys, kid)
			removed++
		}
	}
	return removed, nil
}

// Count returns the number of stored keys.
func (s *InMemoryKeyStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

var _ repository.KeyStore = (*InMemoryKeyStore)(nil)
