package crypto

import (
	"context"
	"crypto/rand"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/utils"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/tests/fakes"
)

func newTestManager(t *testing.T, store *fakes.InMemoryKeyStore, config *KeyManagerConfig) (*KeyManager, *KeyCipher) {
	t.Helper()

	secret := make([]byte, constants.MasterKeySize)
	_, err := rand.Read(secret)
	require.NoError(t, err)
	cipher, err := NewKeyCipher(secret)
	require.NoError(t, err)

	km := NewKeyManager(store, cipher, config, fakes.NewNoopMetrics(), logger.NewNoopLogger())
	return km, cipher
}

// storedKey builds a fully valid signing key record encrypted under the
// given cipher and inserts it with an explicit creation time.
func storedKey(t *testing.T, store *fakes.InMemoryKeyStore, cipher *KeyCipher, createdAt time.Time, rotation, grace time.Duration) *models.SigningKey {
	t.Helper()

	private, err := GenerateRSAKeyPair(2048)
	require.NoError(t, err)
	privatePEM, err := EncodePrivateKeyPEM(private)
	require.NoError(t, err)
	publicPEM, err := EncodePublicKeyPEM(&private.PublicKey)
	require.NoError(t, err)
	encrypted, err := cipher.Encrypt(privatePEM)
	require.NoError(t, err)

	key := models.NewSigningKey(
		utils.NewKeyID(),
		string(publicPEM),
		utils.Base64Encode(encrypted),
		createdAt,
		rotation,
		grace,
	)
	require.NoError(t, store.Create(context.Background(), key))
	return key
}

func TestKeyManager_EnsureKey_BootstrapsEmptyStore(t *testing.T) {
	store := fakes.NewInMemoryKeyStore()
	km, _ := newTestManager(t, store, nil)
	ctx := context.Background()

	key, err := km.EnsureKey(ctx)
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.NotEmpty(t, key.KID)
	assert.Equal(t, 1, store.Count())
	assert.True(t, key.IsUsableAt(time.Now().UTC()))

	// A second call must return the existing key, not generate another.
	again, err := km.EnsureKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, key.KID, again.KID)
	assert.Equal(t, 1, store.Count())
}

func TestKeyManager_Rotate_AppendsWithoutTouchingOldKeys(t *testing.T) {
	store := fakes.NewInMemoryKeyStore()
	km, _ := newTestManager(t, store, nil)
	ctx := context.Background()

	first, err := km.Rotate(ctx)
	require.NoError(t, err)
	second, err := km.Rotate(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first.KID, second.KID)
	assert.Equal(t, 2, store.Count())

	// The old key still resolves and is still usable for verification.
	old, err := km.VerificationKey(ctx, first.KID)
	require.NoError(t, err)
	assert.True(t, old.IsUsableAt(time.Now().UTC()))
}

func TestKeyManager_SigningKey_ReturnsNewestUsable(t *testing.T) {
	store := fakes.NewInMemoryKeyStore()
	km, cipher := newTestManager(t, store, nil)
	ctx := context.Background()

	now := time.Now().UTC()
	older := storedKey(t, store, cipher, now.Add(-48*time.Hour), constants.KeyRotationDefaultInterval, constants.KeyRotationGracePeriod)
	newer := storedKey(t, store, cipher, now.Add(-1*time.Hour), constants.KeyRotationDefaultInterval, constants.KeyRotationGracePeriod)

	key, private, err := km.SigningKey(ctx)
	require.NoError(t, err)
	require.NotNil(t, private)
	assert.Equal(t, newer.KID, key.KID)
	assert.NotEqual(t, older.KID, key.KID)
}

func TestKeyManager_SigningKey_GeneratesWhenStoreEmpty(t *testing.T) {
	store := fakes.NewInMemoryKeyStore()
	km, _ := newTestManager(t, store, nil)

	key, private, err := km.SigningKey(context.Background())
	require.NoError(t, err)
	require.NotNil(t, key)
	require.NotNil(t, private)

	// The decrypted private key must correspond to the stored public key.
	public, err := ParsePublicKeyPEM([]byte(key.PublicKeyPEM))
	require.NoError(t, err)
	assert.Zero(t, public.N.Cmp(private.PublicKey.N))
}

func TestKeyManager_RotateIfDue(t *testing.T) {
	ctx := context.Background()

	t.Run("not due keeps the current key", func(t *testing.T) {
		store := fakes.NewInMemoryKeyStore()
		km, cipher := newTestManager(t, store, nil)
		current := storedKey(t, store, cipher, time.Now().UTC().Add(-time.Hour),
			constants.KeyRotationDefaultInterval, constants.KeyRotationGracePeriod)

		key, rotated, err := km.RotateIfDue(ctx)
		require.NoError(t, err)
		assert.False(t, rotated)
		assert.Equal(t, current.KID, key.KID)
		assert.Equal(t, 1, store.Count())
	})

	t.Run("due rotates to a fresh key", func(t *testing.T) {
		store := fakes.NewInMemoryKeyStore()
		km, cipher := newTestManager(t, store, nil)
		current := storedKey(t, store, cipher, time.Now().UTC().Add(-constants.KeyRotationDefaultInterval-time.Minute),
			constants.KeyRotationDefaultInterval, constants.KeyRotationGracePeriod)

		key, rotated, err := km.RotateIfDue(ctx)
		require.NoError(t, err)
		assert.True(t, rotated)
		assert.NotEqual(t, current.KID, key.KID)
		assert.Equal(t, 2, store.Count())
	})

	t.Run("empty store generates the first key", func(t *testing.T) {
		store := fakes.NewInMemoryKeyStore()
		km, _ := newTestManager(t, store, nil)

		key, rotated, err := km.RotateIfDue(ctx)
		require.NoError(t, err)
		assert.True(t, rotated)
		assert.NotEmpty(t, key.KID)
	})

	t.Run("failed rotation keeps the current key signing", func(t *testing.T) {
		store := fakes.NewInMemoryKeyStore()
		km, cipher := newTestManager(t, store, nil)
		current := storedKey(t, store, cipher, time.Now().UTC().Add(-constants.KeyRotationDefaultInterval-time.Minute),
			constants.KeyRotationDefaultInterval, constants.KeyRotationGracePeriod)

		store.FailCreate = fmt.Errorf("disk full")
		key, rotated, err := km.RotateIfDue(ctx)
		assert.Error(t, err)
		assert.False(t, rotated)
		require.NotNil(t, key, "the still-valid key must be returned alongside the error")
		assert.Equal(t, current.KID, key.KID)
	})
}

func TestKeyManager_VerificationKey(t *testing.T) {
	ctx := context.Background()

	t.Run("returns expired keys for the verifier to judge", func(t *testing.T) {
		store := fakes.NewInMemoryKeyStore()
		km, cipher := newTestManager(t, store, nil)
		expired := storedKey(t, store, cipher, time.Now().UTC().Add(-72*time.Hour), time.Hour, time.Hour)

		key, err := km.VerificationKey(ctx, expired.KID)
		require.NoError(t, err)
		assert.Equal(t, expired.KID, key.KID)
		assert.False(t, key.IsUsableAt(time.Now().UTC()))
		assert.NotNil(t, key.PublicKey, "public key must be parsed on fetch")
	})

	t.Run("unknown kid maps to key_not_found", func(t *testing.T) {
		store := fakes.NewInMemoryKeyStore()
		km, _ := newTestManager(t, store, nil)

		key, err := km.VerificationKey(ctx, "no-such-kid")
		assert.Nil(t, key)
		assert.True(t, errors.IsCode(err, constants.ErrCodeKeyNotFound))
	})

	t.Run("empty kid maps to missing_kid", func(t *testing.T) {
		store := fakes.NewInMemoryKeyStore()
		km, _ := newTestManager(t, store, nil)

		_, err := km.VerificationKey(ctx, "")
		assert.True(t, errors.IsCode(err, constants.ErrCodeMissingKeyID))
	})

	t.Run("serves repeat lookups from cache", func(t *testing.T) {
		store := fakes.NewInMemoryKeyStore()
		km, cipher := newTestManager(t, store, nil)
		key := storedKey(t, store, cipher, time.Now().UTC(), constants.KeyRotationDefaultInterval, constants.KeyRotationGracePeriod)

		_, err := km.VerificationKey(ctx, key.KID)
		require.NoError(t, err)

		// A store outage must not affect cached lookups.
		store.FailGet = fmt.Errorf("connection refused")
		cached, err := km.VerificationKey(ctx, key.KID)
		require.NoError(t, err)
		assert.Equal(t, key.KID, cached.KID)
	})
}

func TestKeyManager_PublicKeys(t *testing.T) {
	store := fakes.NewInMemoryKeyStore()
	km, cipher := newTestManager(t, store, nil)
	ctx := context.Background()

	now := time.Now().UTC()
	storedKey(t, store, cipher, now.Add(-72*time.Hour), time.Hour, time.Hour) // expired
	usableA := storedKey(t, store, cipher, now.Add(-2*time.Hour), constants.KeyRotationDefaultInterval, constants.KeyRotationGracePeriod)
	usableB := storedKey(t, store, cipher, now.Add(-1*time.Hour), constants.KeyRotationDefaultInterval, constants.KeyRotationGracePeriod)

	keys, err := km.PublicKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2, "expired keys must not be published")

	// Newest first.
	assert.Equal(t, usableB.KID, keys[0].KID)
	assert.Equal(t, usableA.KID, keys[1].KID)
	for _, key := range keys {
		assert.NotNil(t, key.PublicKey)
	}
}

func TestKeyManager_PurgeExpired(t *testing.T) {
	store := fakes.NewInMemoryKeyStore()
	km, cipher := newTestManager(t, store, nil)
	ctx := context.Background()

	now := time.Now().UTC()
	// Expired long past the retention margin: purged.
	storedKey(t, store, cipher, now.Add(-30*24*time.Hour), time.Hour, time.Hour)
	// Expired but within the retention margin: kept.
	storedKey(t, store, cipher, now.Add(-3*time.Hour), time.Hour, time.Hour)
	// Usable: kept.
	storedKey(t, store, cipher, now, constants.KeyRotationDefaultInterval, constants.KeyRotationGracePeriod)

	count, err := km.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 2, store.Count())
}

func TestKeyManager_PrivateKeyDecryption_FailsWithWrongCipher(t *testing.T) {
	store := fakes.NewInMemoryKeyStore()
	km, _ := newTestManager(t, store, nil)

	// Insert a record sealed under a different master secret.
	otherSecret := make([]byte, constants.MasterKeySize)
	_, err := rand.Read(otherSecret)
	require.NoError(t, err)
	otherCipher, err := NewKeyCipher(otherSecret)
	require.NoError(t, err)
	storedKey(t, store, otherCipher, time.Now().UTC(), constants.KeyRotationDefaultInterval, constants.KeyRotationGracePeriod)

	_, _, err = km.SigningKey(context.Background())
	assert.Error(t, err)
	assert.True(t, errors.IsCode(err, constants.ErrCodeEncryptionFailed))
}
