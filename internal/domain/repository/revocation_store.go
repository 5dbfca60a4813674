package repository

import (
	"context"
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
)

// RevocationStore records revoked token identifiers and answers membership
// checks during verification. Implementations exist for Redis (fast
// deny-list with TTL) and Postgres (durable record that survives a cache
// flush); the layered store composes both.
type RevocationStore interface {
	// Revoke records a token identifier as revoked. Revoking an already
	// revoked identifier is not an error.
	//
	// Parameters:
	//   - ctx: request context
	//   - record: revocation record; ExpiresAt bounds retention
	//
	// Returns:
	//   - error: storage_failure when the record could not be written
	Revoke(ctx context.Context, record *models.RevokedToken) error

	// IsRevoked reports whether a token identifier has been revoked.
	//
	// Parameters:
	//   - ctx: request context
	//   - jti: token identifier to check
	//
	// Returns:
	//   - bool: true when the identifier is on the deny-list
	//   - error: storage_failure when the check could not be performed
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// PurgeExpiredBefore removes revocation records whose retention window
	// ended before the cutoff.
	//
	// Parameters:
	//   - ctx: request context
	//   - cutoff: retention boundary
	//
	// Returns:
	//   - int64: number of records removed
	//   - error: storage_failure when the purge could not run
	PurgeExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
