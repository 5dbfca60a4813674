// Package memory holds the process-local revocation deny-list for the
// single-node profile. Entries live in a map and disappear on restart; the
// Redis and Postgres backends are the durable options.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/repository"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
)

var _ repository.RevocationStore = (*RevocationStore)(nil)

// RevocationStore 进程内吊销拒绝列表（单节点配置用）
type RevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time // jti -> retention end
}

// NewRevocationStore creates an empty in-process deny-list.
//
// Returns:
//   - *RevocationStore: initialized store
func NewRevocationStore() *RevocationStore {
	return &RevocationStore{
		entries: make(map[string]time.Time),
	}
}

// Revoke records the jti until the token's own expiry. Records for tokens
// that have already expired deny nothing and are not kept.
func (s *RevocationStore) Revoke(ctx context.Context, record *models.RevokedToken) error {
	if record == nil || record.JTI == "" {
		return errors.ErrInvalidRequest("revocation record needs a jti")
	}
	if !record.ExpiresAt.After(time.Now()) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[record.JTI]; !exists {
		s.entries[record.JTI] = record.ExpiresAt
	}
	return nil
}

// IsRevoked reports whether the jti is on the deny-list and still inside
// its retention window.
func (s *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiresAt, ok := s.entries[jti]
	return ok && expiresAt.After(time.Now()), nil
}

// PurgeExpiredBefore drops entries whose retention ended before the cutoff.
func (s *RevocationStore) PurgeExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for jti, expiresAt := range s.entries {
		if expiresAt.Before(cutoff) {
			delete(s.entries, jti)
			purged++
		}
	}
	return purged, nil
}
