package service

import (
	"context"
	"crypto/rsa"
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
)

//go:generate mockery --name KeyManager --output mocks --outpkg mocks
// KeyManager owns the signing key lifecycle: bootstrap, rotation, lookup
// and retention. Rotation is append-only; old keys verify until expiry.
// KeyManager 负责签名密钥的生命周期：引导、轮换、查找和保留。
// 轮换是仅追加的；旧密钥在过期前仍可验证。
type KeyManager interface {
	// EnsureKey guarantees a usable signing key exists, creating the first
	// key on an empty store. Called once at startup before serving.
	// EnsureKey 确保存在可用的签名密钥，在空存储上创建第一个密钥。
	EnsureKey(ctx context.Context) (*models.SigningKey, error)

	// Rotate generates, encrypts and persists a fresh keypair and makes it
	// the current signing key. The previous key stays valid for
	// verification until its own expiry.
	// Rotate 生成、加密并持久化新密钥对，使其成为当前签名密钥。
	Rotate(ctx context.Context) (*models.SigningKey, error)

	// RotateIfDue rotates only when the current key has been signing for
	// at least the rotation interval. Returns the active key after the
	// check and whether a rotation happened.
	RotateIfDue(ctx context.Context) (*models.SigningKey, bool, error)

	// SigningKey returns the current signing key together with its
	// decrypted private key. The private key only ever lives in memory.
	// SigningKey 返回当前签名密钥及其解密后的私钥。私钥仅存在于内存中。
	SigningKey(ctx context.Context) (*models.SigningKey, *rsa.PrivateKey, error)

	// VerificationKey returns the key record for a kid regardless of its
	// expiry state, with the public key parsed. Callers decide whether an
	// expired key is acceptable.
	VerificationKey(ctx context.Context, kid string) (*models.SigningKey, error)

	// PublicKeys returns all currently usable keys for JWKS publication
	PublicKeys(ctx context.Context) ([]*models.SigningKey, error)

	// PurgeExpired removes keys that are past expiry plus the retention
	// margin and returns how many were removed
	PurgeExpired(ctx context.Context) (int64, error)
}

// RateLimitDecision is the outcome of a rate limit check.
type RateLimitDecision struct {
	// Allowed reports whether the attempt may proceed.
	Allowed bool
	// Remaining is how many attempts are left in the current window.
	Remaining int
	// RetryAfter is how long until the window resets. Only meaningful
	// when Allowed is false.
	RetryAfter time.Duration
}

//go:generate mockery --name RateLimiter --output mocks --outpkg mocks
// RateLimiter bounds failed login attempts per identifier within a fixed
// window. The window starts at the first counted attempt.
type RateLimiter interface {
	// Allow counts an attempt against the identifier and reports whether
	// it is within the limit
	Allow(ctx context.Context, identifier string) (*RateLimitDecision, error)

	// Reset clears the counter for an identifier, called after a
	// successful authentication
	Reset(ctx context.Context, identifier string) error
}

//go:generate mockery --name AuditService --output mocks --outpkg mocks
// AuditService records security-relevant events. Recording must never block
// or fail the flow being audited.
type AuditService interface {
	// Record submits an audit event for delivery
	Record(ctx context.Context, event *models.AuditEvent) error
}

// Notifier delivers messages to account holders outside the token channel.
type Notifier interface {
	// SendPasswordReset delivers a password reset token to the account's
	// email address
	SendPasswordReset(ctx context.Context, email, resetToken string, expiresAt time.Time) error
}

//go:generate mockery --name PasswordHasher --output mocks --outpkg mocks
// PasswordHasher hashes and checks account passwords.
type PasswordHasher interface {
	// Hash derives a storable hash from a plaintext password
	Hash(password string) (string, error)

	// Compare checks a plaintext password against a stored hash and
	// returns a credentials_invalid error on mismatch
	Compare(hash, password string) error
}
