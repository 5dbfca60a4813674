package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/repository"
)

// InMemoryRevocationStore is a map-backed RevocationStore for tests.
type InMemoryRevocationStore struct {
	mu      sync.RWMutex
	revoked map[string]*models.RevokedToken

	// ReadErr, when set, is returned by every IsRevoked call. Tests use it
	// to exercise the fail-closed path on deny-list outages.
	ReadErr error

	// WriteErr, when set, is returned by every Revoke call.
	WriteErr error
}

// NewInMemoryRevocationStore creates an empty revocation store.
func NewInMemoryRevocationStore() *InMemoryRevocationStore {
	return &InMemoryRevocationStore{revoked: make(map[string]*models.RevokedToken)}
}

// Revoke marks a token identifier as revoked. Re-revoking is a no-op.
func (s *InMemoryRevocationStore) Revoke(ctx context.Context, record *models.RevokedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return s.WriteErr
	}
	if _, exists := s.revoked[record.JTI]; exists {
		return nil
	}
	cp := *record
	s.revoked[record.JTI] = &cp
	return nil
}

// IsRevoked reports whether the jti is present in the deny list.
func (s *InMemoryRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ReadErr != nil {
		return false, s.ReadErr
	}
	_, ok := s.revoked[jti]
	return ok, nil
}

// PurgeExpiredBefore removes entries whose retention window ended before
// the cutoff.
func (s *InMemoryRevocationStore) PurgeExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for jti, record := range s.revoked {
		if record.ExpiresAt.Before(cutoff) {
			delete(s.revoked, jti)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of revoked entries.
func (s *InMemoryRevocationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.revoked)
}

// Get returns a copy of the stored record for a jti, or nil.
func (s *InMemoryRevocationStore) Get(jti string) *models.RevokedToken {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.revoked[jti]
	if !ok {
		return nil
	}
	cp := *record
	return &cp
}

var _ repository.RevocationStore = (*InMemoryRevocationStore)(nil)
