package crypto

import (
	"context"
	"crypto/rsa"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/repository"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/utils"
)

var _ service.KeyManager = (*KeyManager)(nil)

// KeyManagerConfig holds the rotation and caching parameters.
type KeyManagerConfig struct {
	// RotationInterval is how long a key signs new tokens before rotation
	// is due.
	RotationInterval time.Duration

	// GracePeriod is how long a key stays valid for verification beyond
	// its signing window.
	GracePeriod time.Duration

	// RetentionMargin is how long expired keys are kept before the purge
	// removes them.
	RetentionMargin time.Duration

	// RSAKeySize is the modulus size for new keypairs.
	RSAKeySize int

	// PrivateKeyCacheTTL bounds how long decrypted private keys stay in
	// memory.
	PrivateKeyCacheTTL time.Duration
}

// DefaultKeyManagerConfig returns the standard rotation parameters.
func DefaultKeyManagerConfig() *KeyManagerConfig {
	return &KeyManagerConfig{
		RotationInterval:   constants.KeyRotationDefaultInterval,
		GracePeriod:        constants.KeyRotationGracePeriod,
		RetentionMargin:    constants.KeyRetentionMargin,
		RSAKeySize:         constants.RSAKeySizeDefault,
		PrivateKeyCacheTTL: constants.PrivateKeyCacheTTL,
	}
}

// KeyManager implements the signing key lifecycle over a KeyStore, with
// decrypted private keys held in a bounded-TTL memory cache. Rotation and
// on-demand generation are serialized so concurrent callers never produce
// two keys at once.
type KeyManager struct {
	store   repository.KeyStore
	cipher  *KeyCipher
	config  *KeyManagerConfig
	metrics service.Metrics
	log     logger.Logger
	perf    *logger.PerformanceLogger

	privateKeys *gocache.Cache // kid -> *rsa.PrivateKey
	keyRecords  *gocache.Cache // kid -> *models.SigningKey with parsed public key
	flight      singleflight.Group
	rotateMu    sync.Mutex
}

// NewKeyManager creates a key manager.
//
// Parameters:
//   - store: persistent key store
//   - cipher: at-rest cipher for private key material
//   - config: rotation parameters, nil for defaults
//   - metrics: business metrics collector
//   - log: structured logger
//
// Returns:
//   - *KeyManager: initialized manager
func NewKeyManager(
	store repository.KeyStore,
	cipher *KeyCipher,
	config *KeyManagerConfig,
	metrics service.Metrics,
	log logger.Logger,
) *KeyManager {
	if config == nil {
		config = DefaultKeyManagerConfig()
	}

	km := &KeyManager{
		store:       store,
		cipher:      cipher,
		config:      config,
		metrics:     metrics,
		log:         log.WithComponent("key_manager"),
		perf:        logger.NewPerformanceLogger(log, 2*time.Second),
		privateKeys: gocache.New(config.PrivateKeyCacheTTL, 2*config.PrivateKeyCacheTTL),
		keyRecords:  gocache.New(config.PrivateKeyCacheTTL, 2*config.PrivateKeyCacheTTL),
	}

	km.log.Info(context.Background(), "key manager initialized",
		logger.Duration("rotation_interval", config.RotationInterval),
		logger.Duration("grace_period", config.GracePeriod),
		logger.Int("rsa_key_size", config.RSAKeySize),
	)
	return km
}

// ================================================================================
// Lifecycle
// ================================================================================

// EnsureKey guarantees a usable signing key exists. On an empty store it
// generates the first key; otherwise it returns the current one.
func (km *KeyManager) EnsureKey(ctx context.Context) (*models.SigningKey, error) {
	current, err := km.currentUsable(ctx)
	if err == nil {
		return current, nil
	}
	if !errors.IsCode(err, constants.ErrCodeKeyNotFound) {
		return nil, err
	}

	km.log.Info(ctx, "no usable signing key found, generating initial key")
	return km.Rotate(ctx)
}

// Rotate generates a fresh keypair, encrypts the private half and appends
// the record to the store. Existing keys are untouched.
func (km *KeyManager) Rotate(ctx context.Context) (*models.SigningKey, error) {
	km.rotateMu.Lock()
	defer km.rotateMu.Unlock()

	start := time.Now()
	key, err := km.generateAndStore(ctx)
	km.metrics.RecordKeyRotation(err == nil, time.Since(start))
	if err != nil {
		km.log.Error(ctx, "key rotation failed", err)
		return nil, err
	}

	km.log.Info(ctx, "signing key rotated",
		logger.String("key_id", key.KID),
		logger.Time("expires_at", key.ExpiresAt),
	)
	return key, nil
}

// RotateIfDue rotates when the current key has signed for at least the
// rotation interval. A failed rotation leaves the current key signing;
// the error is returned so the scheduler can alert and retry.
func (km *KeyManager) RotateIfDue(ctx context.Context) (*models.SigningKey, bool, error) {
	current, err := km.currentUsable(ctx)
	if err != nil {
		if !errors.IsCode(err, constants.ErrCodeKeyNotFound) {
			return nil, false, err
		}
		key, rotateErr := km.Rotate(ctx)
		if rotateErr != nil {
			return nil, false, rotateErr
		}
		return key, true, nil
	}

	if time.Now().UTC().Sub(current.CreatedAt) < km.config.RotationInterval {
		return current, false, nil
	}

	key, err := km.Rotate(ctx)
	if err != nil {
		return current, false, err
	}
	return key, true, nil
}

func (km *KeyManager) generateAndStore(ctx context.Context) (*models.SigningKey, error) {
	var privateKey *rsa.PrivateKey
	err := km.perf.TrackOperation(ctx, "rsa_keypair_generation", func() error {
		var genErr error
		privateKey, genErr = GenerateRSAKeyPair(km.config.RSAKeySize)
		return genErr
	})
	if err != nil {
		return nil, errors.Wrap(err, constants.ErrCodeKeyGenerationFailed, "keypair generation failed")
	}

	privatePEM, err := EncodePrivateKeyPEM(privateKey)
	if err != nil {
		return nil, errors.Wrap(err, constants.ErrCodeKeyGenerationFailed, "private key encoding failed")
	}
	publicPEM, err := EncodePublicKeyPEM(&privateKey.PublicKey)
	if err != nil {
		return nil, errors.Wrap(err, constants.ErrCodeKeyGenerationFailed, "public key encoding failed")
	}

	encrypted, err := km.cipher.Encrypt(privatePEM)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	key := models.NewSigningKey(
		utils.NewKeyID(),
		string(publicPEM),
		utils.Base64Encode(encrypted),
		now,
		km.config.RotationInterval,
		km.config.GracePeriod,
	)
	key.PublicKey = &privateKey.PublicKey

	if err := km.store.Create(ctx, key); err != nil {
		return nil, err
	}

	km.privateKeys.Set(key.KID, privateKey, gocache.DefaultExpiration)
	km.keyRecords.Set(key.KID, key, gocache.DefaultExpiration)
	return key, nil
}

// ================================================================================
// Lookup
// ================================================================================

// SigningKey returns the current key with its decrypted private key. When
// no usable key exists it generates one, collapsing concurrent attempts
// into a single generation.
func (km *KeyManager) SigningKey(ctx context.Context) (*models.SigningKey, *rsa.PrivateKey, error) {
	current, err := km.currentUsable(ctx)
	if err != nil {
		if !errors.IsCode(err, constants.ErrCodeKeyNotFound) {
			return nil, nil, err
		}
		v, rotateErr, _ := km.flight.Do("ensure-signing-key", func() (interface{}, error) {
			return km.Rotate(ctx)
		})
		if rotateErr != nil {
			return nil, nil, rotateErr
		}
		current = v.(*models.SigningKey)
	}

	private, err := km.privateKeyFor(current)
	if err != nil {
		return nil, nil, err
	}
	return current, private, nil
}

// VerificationKey returns the record for a kid with the public key parsed.
// Expired keys are returned as-is; the verifier applies the expiry rule.
func (km *KeyManager) VerificationKey(ctx context.Context, kid string) (*models.SigningKey, error) {
	if kid == "" {
		return nil, errors.ErrMissingKeyID()
	}

	if cached, ok := km.keyRecords.Get(kid); ok {
		km.metrics.RecordCacheAccess("verification_key", true)
		return cached.(*models.SigningKey), nil
	}
	km.metrics.RecordCacheAccess("verification_key", false)

	key, err := km.store.GetByKID(ctx, kid)
	if err != nil {
		return nil, err
	}

	if key.PublicKey == nil {
		pub, parseErr := ParsePublicKeyPEM([]byte(key.PublicKeyPEM))
		if parseErr != nil {
			return nil, errors.Wrap(parseErr, constants.ErrCodeInternal, "stored public key did not parse")
		}
		key.PublicKey = pub
	}

	km.keyRecords.Set(kid, key, gocache.DefaultExpiration)
	return key, nil
}

// PublicKeys returns every usable key with parsed public keys, newest first
func (km *KeyManager) PublicKeys(ctx context.Context) ([]*models.SigningKey, error) {
	keys, err := km.store.ListUsable(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		if key.PublicKey == nil {
			pub, parseErr := ParsePublicKeyPEM([]byte(key.PublicKeyPEM))
			if parseErr != nil {
				return nil, errors.Wrap(parseErr, constants.ErrCodeInternal, "stored public key did not parse")
			}
			key.PublicKey = pub
		}
	}

	km.metrics.UpdateUsableKeys(len(keys))
	return keys, nil
}

// PurgeExpired removes keys past expiry plus the retention margin
func (km *KeyManager) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-km.config.RetentionMargin)
	count, err := km.store.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		km.log.Info(ctx, "purged expired signing keys",
			logger.Int64("count", count),
			logger.Time("cutoff", cutoff),
		)
	}
	return count, nil
}

// ================================================================================
// Internals
// ================================================================================

// currentUsable returns the most recently created non-expired key
func (km *KeyManager) currentUsable(ctx context.Context) (*models.SigningKey, error) {
	keys, err := km.store.ListUsable(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, errors.New(constants.ErrCodeKeyNotFound, "no usable signing key")
	}
	return keys[0], nil
}

// privateKeyFor returns the decrypted private key for a record, from cache
// when possible. Concurrent misses for the same kid share one decryption.
func (km *KeyManager) privateKeyFor(key *models.SigningKey) (*rsa.PrivateKey, error) {
	if cached, ok := km.privateKeys.Get(key.KID); ok {
		km.metrics.RecordCacheAccess("private_key", true)
		return cached.(*rsa.PrivateKey), nil
	}
	km.metrics.RecordCacheAccess("private_key", false)

	v, err, _ := km.flight.Do("decrypt:"+key.KID, func() (interface{}, error) {
		blob, decodeErr := utils.Base64Decode(key.PrivateKeyEncrypted)
		if decodeErr != nil {
			return nil, errors.Wrap(decodeErr, constants.ErrCodeEncryptionFailed, "stored private key is not valid base64")
		}
		pemBytes, decryptErr := km.cipher.Decrypt(blob)
		if decryptErr != nil {
			return nil, decryptErr
		}
		private, parseErr := ParsePrivateKeyPEM(pemBytes)
		if parseErr != nil {
			return nil, errors.Wrap(parseErr, constants.ErrCodeEncryptionFailed, "decrypted private key did not parse")
		}
		return private, nil
	})
	if err != nil {
		return nil, err
	}

	private := v.(*rsa.PrivateKey)
	km.privateKeys.Set(key.KID, private, gocache.DefaultExpiration)
	return private, nil
}
