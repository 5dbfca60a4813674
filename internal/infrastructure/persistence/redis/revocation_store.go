package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/repository"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// purgeScanCount is the batch size for SCAN during retention purges.
const purgeScanCount = 100

var _ repository.RevocationStore = (*revocationStore)(nil)

// revocationStore keeps the token deny-list in Redis. Each revoked jti is a
// key whose TTL matches the revoked token's remaining lifetime, so entries
// evict themselves once every token carrying the jti has expired.
type revocationStore struct {
	client redis.UniversalClient
	log    logger.Logger
}

// NewRevocationStore creates a Redis-backed revocation store.
//
// Parameters:
//   - client: connected Redis client
//   - log: logger instance
//
// Returns:
//   - repository.RevocationStore: revocation store instance
func NewRevocationStore(client redis.UniversalClient, log logger.Logger) repository.RevocationStore {
	return &revocationStore{
		client: client,
		log:    log.WithComponent("revocation_store"),
	}
}

func revocationKey(jti string) string {
	return constants.RedisPrefixRevocation + jti
}

// Revoke writes the deny-list entry with a TTL bounded by the record's
// retention window. Revoking the same jti twice rewrites the same key, so
// the operation is naturally idempotent.
func (s *revocationStore) Revoke(ctx context.Context, record *models.RevokedToken) error {
	if record == nil || record.JTI == "" {
		return errors.ErrInvalidRequest("revocation record needs a jti")
	}

	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		// Every token carrying this jti has already expired; nothing to deny.
		return nil
	}

	value := record.RevokedAt.UTC().Format(time.RFC3339)
	if err := s.client.Set(ctx, revocationKey(record.JTI), value, ttl).Err(); err != nil {
		return errors.ErrStorageFailure("revocation.write", err)
	}
	return nil
}

// IsRevoked reports deny-list membership. Errors propagate so verification
// can fail closed rather than accept a possibly revoked token.
func (s *revocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revocationKey(jti)).Result()
	if err != nil {
		return false, errors.ErrStorageFailure("revocation.check", err)
	}
	return n > 0, nil
}

// PurgeExpiredBefore removes entries whose retention ends before the cutoff.
// Redis TTL eviction already covers any cutoff at or behind the present, so
// a purge only scans when the cutoff lies in the future.
func (s *revocationStore) PurgeExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	window := time.Until(cutoff)
	if window <= 0 {
		return 0, nil
	}

	var purged int64
	iter := s.client.Scan(ctx, 0, constants.RedisPrefixRevocation+"*", purgeScanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		ttl, err := s.client.PTTL(ctx, key).Result()
		if err != nil {
			return purged, errors.ErrStorageFailure("revocation.purge", err)
		}
		if ttl > 0 && ttl < window {
			if err := s.client.Del(ctx, key).Err(); err != nil {
				return purged, errors.ErrStorageFailure("revocation.purge", err)
			}
			purged++
		}
	}
	if err := iter.Err(); err != nil {
		return purged, errors.ErrStorageFailure("revocation.purge", err)
	}

	if purged > 0 {
		s.log.Debug(ctx, "purged expired revocation entries", logger.Int64("purged", purged))
	}
	return purged, nil
}
