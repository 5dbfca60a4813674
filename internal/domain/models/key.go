package models

import (
	"crypto/rsa"
	"time"
)

// SigningKey represents one RSA keypair used to sign and verify tokens.
// Records are append-only: rotation inserts a new key and never mutates or
// deletes an existing one, so tokens signed by older keys stay verifiable
// until those keys expire.
// SigningKey 代表用于签署和验证令牌的一个 RSA 密钥对。
// 记录是仅追加的：轮换会插入新密钥，绝不修改或删除现有密钥，
// 因此旧密钥签署的令牌在密钥过期前仍可验证。
type SigningKey struct {
	// KID is the unique key identifier carried in the JWT header.
	// KID 是 JWT 头部携带的唯一密钥标识符。
	KID string `gorm:"column:kid;primaryKey" json:"kid"`

	// PublicKeyPEM is the PKIX public key in PEM encoding, stored in the clear.
	// PublicKeyPEM 是 PEM 编码的 PKIX 公钥，以明文存储。
	PublicKeyPEM string `gorm:"column:public_key_pem;type:text;not null" json:"public_key_pem"`

	// PrivateKeyEncrypted is the PKCS#8 private key PEM encrypted with
	// AES-256-GCM under the master secret, base64 encoded for storage.
	// The plaintext private key never reaches the store.
	// PrivateKeyEncrypted 是使用主密钥 AES-256-GCM 加密的 PKCS#8 私钥 PEM，
	// 以 base64 编码存储。明文私钥永远不会到达存储层。
	PrivateKeyEncrypted string `gorm:"column:private_key_encrypted;type:text;not null" json:"-"`

	// CreatedAt orders keys for current-key selection.
	// CreatedAt 用于当前密钥选择的排序。
	CreatedAt time.Time `gorm:"column:created_at;not null;index" json:"created_at"`

	// ExpiresAt is the instant the key stops being valid for verification.
	// ExpiresAt 是密钥停止用于验证的时刻。
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index" json:"expires_at"`

	// PublicKey is the parsed public key, never persisted.
	// PublicKey 是已解析的公钥，不持久化。
	PublicKey *rsa.PublicKey `gorm:"-" json:"-"`
}

// TableName sets the storage table for GORM
func (SigningKey) TableName() string {
	return "signing_keys"
}

// IsUsableAt reports whether the key may verify signatures at the given
// instant. A key is usable strictly before its expiry: at exactly ExpiresAt
// it is already expired.
func (k *SigningKey) IsUsableAt(now time.Time) bool {
	return now.Before(k.ExpiresAt)
}

// IsExpiredAt reports whether the key has expired at the given instant
func (k *SigningKey) IsExpiredAt(now time.Time) bool {
	return !now.Before(k.ExpiresAt)
}

// Lifetime returns the total validity window of the key
func (k *SigningKey) Lifetime() time.Duration {
	return k.ExpiresAt.Sub(k.CreatedAt)
}

// NewSigningKey creates a key record whose expiry is the creation instant
// plus the rotation interval plus the grace period, so tokens signed at the
// very end of the key's signing window remain verifiable for a full token
// lifetime afterwards.
//
// Parameters:
//   - kid: unique key identifier
//   - publicPEM: PEM encoded public key
//   - privateEncrypted: base64 of the encrypted private key PEM
//   - now: creation instant
//   - rotationInterval: how long the key signs new tokens
//   - gracePeriod: how long verification outlives the signing window
//
// Returns:
//   - *SigningKey: the assembled record
func NewSigningKey(kid, publicPEM, privateEncrypted string, now time.Time, rotationInterval, gracePeriod time.Duration) *SigningKey {
	return &SigningKey{
		KID:                 kid,
		PublicKeyPEM:        publicPEM,
		PrivateKeyEncrypted: privateEncrypted,
		CreatedAt:           now.UTC(),
		ExpiresAt:           now.UTC().Add(rotationInterval + gracePeriod),
	}
}
