package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/repository"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/persistence/redis"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

func newRevocationStore(t *testing.T) (repository.RevocationStore, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return redis.NewRevocationStore(client, logger.NewNoopLogger()), s
}

func revokedIn(jti string, lifetime time.Duration) *models.RevokedToken {
	now := time.Now().UTC()
	return &models.RevokedToken{
		JTI:       jti,
		SubjectID: "user-1",
		TokenType: constants.TokenTypeAccess,
		Reason:    "logout",
		RevokedAt: now,
		ExpiresAt: now.Add(lifetime),
	}
}

func TestRevocationStore_RevokeAndCheck(t *testing.T) {
	store, s := newRevocationStore(t)
	ctx := context.Background()

	record := revokedIn("jti-1", time.Hour)
	require.NoError(t, store.Revoke(ctx, record))

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "jti-unknown")
	require.NoError(t, err)
	assert.False(t, revoked)

	// The entry carries the remaining token lifetime as its TTL.
	ttl := s.TTL(constants.RedisPrefixRevocation + "jti-1")
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 5)

	// Revoking again is not an error.
	require.NoError(t, store.Revoke(ctx, record))
}

func TestRevocationStore_ExpiredRecordIsNoop(t *testing.T) {
	store, s := newRevocationStore(t)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, revokedIn("jti-old", -time.Minute)))

	revoked, err := store.IsRevoked(ctx, "jti-old")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.False(t, s.Exists(constants.RedisPrefixRevocation+"jti-old"))
}

func TestRevocationStore_EntriesEvictOnExpiry(t *testing.T) {
	store, s := newRevocationStore(t)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, revokedIn("jti-short", 30*time.Minute)))

	revoked, err := store.IsRevoked(ctx, "jti-short")
	require.NoError(t, err)
	assert.True(t, revoked)

	s.FastForward(31 * time.Minute)

	revoked, err = store.IsRevoked(ctx, "jti-short")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationStore_PurgeExpiredBefore(t *testing.T) {
	store, _ := newRevocationStore(t)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, revokedIn("jti-soon", time.Hour)))
	require.NoError(t, store.Revoke(ctx, revokedIn("jti-later", 72*time.Hour)))

	// A cutoff behind the present leaves eviction to Redis TTLs.
	purged, err := store.PurgeExpiredBefore(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, purged)

	// A future cutoff removes everything retiring before it.
	purged, err = store.PurgeExpiredBefore(ctx, time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	revoked, err := store.IsRevoked(ctx, "jti-soon")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = store.IsRevoked(ctx, "jti-later")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRevocationStore_InvalidRecord(t *testing.T) {
	store, _ := newRevocationStore(t)
	ctx := context.Background()

	err := store.Revoke(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, constants.ErrCodeInvalidRequest))

	err = store.Revoke(ctx, revokedIn("", time.Hour))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, constants.ErrCodeInvalidRequest))
}

func TestRevocationStore_StorageFailurePropagates(t *testing.T) {
	store, s := newRevocationStore(t)
	ctx := context.Background()

	// A dead backend must surface as storage_failure so verification can
	// fail closed instead of treating the token as clean.
	s.Close()

	_, err := store.IsRevoked(ctx, "jti-1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, constants.ErrCodeStorageFailure))

	err = store.Revoke(ctx, revokedIn("jti-1", time.Hour))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, constants.ErrCodeStorageFailure))
}

func TestRedisConnection_Lifecycle(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	conn := redis.NewRedisConnection(config.RedisConfig{
		Enabled:   true,
		Addresses: []string{s.Addr()},
	}, logger.NewNoopLogger())

	require.NoError(t, conn.Connect())
	require.NotNil(t, conn.GetClient())
	require.NoError(t, conn.Ping(context.Background()))

	health, err := conn.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, health["connected"])

	require.NoError(t, conn.Close())
	assert.Nil(t, conn.GetClient())
	assert.Error(t, conn.Ping(context.Background()))
}
