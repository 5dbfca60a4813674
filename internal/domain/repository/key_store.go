// Package repository defines the persistence contracts the domain layer
// depends on. Implementations live under internal/infrastructure/persistence.
package repository

import (
	"context"
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
)

// KeyStore persists signing keys. The store is append-only from the
// service's point of view: keys are created and eventually purged after
// expiry, never updated.
type KeyStore interface {
	// Create inserts a new signing key record
	Create(ctx context.Context, key *models.SigningKey) error

	// GetByKID returns the key with the given identifier, expired or not.
	// Returns a key_not_found error when no record exists.
	GetByKID(ctx context.Context, kid string) (*models.SigningKey, error)

	// ListUsable returns all keys whose expiry is after the given instant,
	// ordered by creation time descending so the first entry is the
	// current signing key
	ListUsable(ctx context.Context, now time.Time) ([]*models.SigningKey, error)

	// DeleteExpiredBefore removes keys that expired before the cutoff and
	// returns how many were removed
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
