// Package constants defines system-wide constants for the climbauth service.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Token Type Constants
// ================================================================================

// TokenType represents the type of a signed token, carried in the "type" claim.
type TokenType string

const (
	// TokenTypeAccess represents a session access token
	TokenTypeAccess TokenType = "access"

	// TokenTypeRefresh represents a single-use refresh token
	TokenTypeRefresh TokenType = "refresh"

	// TokenTypeReset represents a short-lived password-reset token
	TokenTypeReset TokenType = "reset"
)

// BearerScheme is the HTTP Authorization scheme for access tokens.
const BearerScheme = "Bearer"

// ================================================================================
// JWT Algorithm Constants
// ================================================================================

// JWTAlgorithm represents the signing algorithm for session tokens
type JWTAlgorithm string

const (
	// AlgorithmRS256 represents RSA signature with SHA-256
	AlgorithmRS256 JWTAlgorithm = "RS256"
)

// DefaultJWTAlgorithm is the only algorithm used for token signing
const DefaultJWTAlgorithm = AlgorithmRS256

// ================================================================================
// Token Lifetime Constants
// ================================================================================

const (
	// AccessTokenDefaultTTL is the default lifetime for access tokens (8 days)
	AccessTokenDefaultTTL = 8 * 24 * time.Hour

	// RefreshTokenDefaultTTL is the default lifetime for refresh tokens (30 days)
	RefreshTokenDefaultTTL = 30 * 24 * time.Hour

	// ResetTokenDefaultTTL is the default lifetime for password-reset tokens (1 hour)
	ResetTokenDefaultTTL = 1 * time.Hour

	// AllowedClockSkew is the tolerated clock drift when validating time claims
	AllowedClockSkew = 30 * time.Second
)

// ================================================================================
// Key Management Constants
// ================================================================================

const (
	// KeyRotationDefaultInterval is the default interval between scheduled rotations (30 days)
	KeyRotationDefaultInterval = 30 * 24 * time.Hour

	// KeyRotationGracePeriod is the default verification grace period after a key
	// is superseded (30 days; must cover the longest token lifetime)
	KeyRotationGracePeriod = 30 * 24 * time.Hour

	// KeyRetentionMargin is how long an expired key row is kept before the
	// retention purge may delete it (7 days)
	KeyRetentionMargin = 7 * 24 * time.Hour

	// RSAKeySizeMin is the minimum accepted RSA modulus size in bits
	RSAKeySizeMin = 2048

	// RSAKeySizeDefault is the default RSA modulus size in bits
	RSAKeySizeDefault = 2048

	// MasterKeySize is the required AEAD master secret length in bytes (AES-256)
	MasterKeySize = 32

	// KeyCipherNonceSize is the AEAD nonce length prepended to ciphertext
	KeyCipherNonceSize = 12

	// PrivateKeyCacheTTL bounds how long a decrypted private key may stay in
	// the in-process cache before it is re-decrypted
	PrivateKeyCacheTTL = 5 * time.Minute
)

// ================================================================================
// Rate Limiting Constants
// ================================================================================

const (
	// RateLimitWindow is the counting window for credential attempts (60 seconds)
	RateLimitWindow = 60 * time.Second

	// RateLimitThreshold is the maximum attempts allowed inside one window
	RateLimitThreshold = 10
)

// ================================================================================
// Retention Constants
// ================================================================================

const (
	// RevocationRetention is how long revoked-jti entries are kept; it must
	// exceed the refresh-token lifetime so a revoked jti can never outlive
	// its entry
	RevocationRetention = RefreshTokenDefaultTTL + KeyRetentionMargin

	// JanitorDefaultInterval is the default cadence of the retention purge loop
	JanitorDefaultInterval = 12 * time.Hour
)

// ================================================================================
// Error Code Constants
// ================================================================================

// ErrorCode is the stable machine-readable code carried by every AuthError.
type ErrorCode string

const (
	// ErrCodeMissingKeyID indicates a token header without a kid
	ErrCodeMissingKeyID ErrorCode = "missing_key_id"

	// ErrCodeKeyNotFound indicates the referenced signing key does not exist
	ErrCodeKeyNotFound ErrorCode = "key_not_found"

	// ErrCodeKeyExpired indicates the referenced signing key is past its expiry
	ErrCodeKeyExpired ErrorCode = "key_expired"

	// ErrCodeSignatureInvalid indicates the token signature did not verify
	ErrCodeSignatureInvalid ErrorCode = "signature_invalid"

	// ErrCodeTypeMismatch indicates the token's type claim was not the expected one
	ErrCodeTypeMismatch ErrorCode = "token_type_mismatch"

	// ErrCodeTokenRevoked indicates the token's jti is in the revocation set
	ErrCodeTokenRevoked ErrorCode = "token_revoked"

	// ErrCodeCredentialsInvalid indicates an unknown identifier or wrong secret
	ErrCodeCredentialsInvalid ErrorCode = "credentials_invalid"

	// ErrCodeRateLimited indicates the caller exceeded the attempt threshold
	ErrCodeRateLimited ErrorCode = "rate_limited"

	// ErrCodeKeyGenerationFailed indicates keypair generation or bootstrap failed
	ErrCodeKeyGenerationFailed ErrorCode = "key_generation_failed"

	// ErrCodeEncryptionFailed indicates at-rest encryption or decryption failed
	ErrCodeEncryptionFailed ErrorCode = "encryption_failed"

	// ErrCodeTokenExpired indicates the token's own exp claim has passed
	ErrCodeTokenExpired ErrorCode = "token_expired"

	// ErrCodeTokenMalformed indicates the token could not be parsed at all
	ErrCodeTokenMalformed ErrorCode = "token_malformed"

	// ErrCodeInvalidRequest indicates a missing or malformed request parameter
	ErrCodeInvalidRequest ErrorCode = "invalid_request"

	// ErrCodeStorageFailure indicates a repository or cache operation failed
	ErrCodeStorageFailure ErrorCode = "storage_failure"

	// ErrCodeInternal indicates an unexpected internal condition
	ErrCodeInternal ErrorCode = "server_error"
)

// ================================================================================
// Redis Key Prefix Constants
// ================================================================================

const (
	// RedisPrefixRevocation is the key prefix for revoked-jti entries
	RedisPrefixRevocation = "climbauth:bl:"

	// RedisPrefixRateLimit is the key prefix for rate-limit counters
	RedisPrefixRateLimit = "climbauth:rl:"
)

// ================================================================================
// Audit Event Type Constants
// ================================================================================

// AuditEventType represents different types of auditable events
type AuditEventType string

const (
	// EventTypeLogin represents credential authentication attempts
	EventTypeLogin AuditEventType = "login"

	// EventTypeTokenRefresh represents refresh-token redemption events
	EventTypeTokenRefresh AuditEventType = "token_refresh"

	// EventTypeTokenRevoke represents token revocation events
	EventTypeTokenRevoke AuditEventType = "token_revoke"

	// EventTypeLogout represents logout events
	EventTypeLogout AuditEventType = "logout"

	// EventTypeKeyRotation represents signing-key rotation events
	EventTypeKeyRotation AuditEventType = "key_rotation"

	// EventTypeRateLimitExceeded represents rejected over-threshold attempts
	EventTypeRateLimitExceeded AuditEventType = "rate_limit_exceeded"

	// EventTypePasswordReset represents password-reset request/completion events
	EventTypePasswordReset AuditEventType = "password_reset"

	// EventTypeRetentionPurge represents retention purge runs
	EventTypeRetentionPurge AuditEventType = "retention_purge"
)

// AuditEventResult represents the result of an audited event
type AuditEventResult string

const (
	// AuditResultSuccess indicates the event completed successfully
	AuditResultSuccess AuditEventResult = "success"

	// AuditResultFailure indicates the event failed
	AuditResultFailure AuditEventResult = "failure"
)

// ================================================================================
// JWT Claim Keys
// ================================================================================

const (
	// ClaimKeyIssuer is the standard "iss" claim
	ClaimKeyIssuer = "iss"

	// ClaimKeySubject is the standard "sub" claim
	ClaimKeySubject = "sub"

	// ClaimKeyExpiresAt is the standard "exp" claim
	ClaimKeyExpiresAt = "exp"

	// ClaimKeyIssuedAt is the standard "iat" claim
	ClaimKeyIssuedAt = "iat"

	// ClaimKeyJWTID is the standard "jti" claim
	ClaimKeyJWTID = "jti"

	// ClaimKeyTokenType is the custom "type" claim
	ClaimKeyTokenType = "type"

	// ClaimKeyScopes is the custom "scopes" claim (set of scope strings)
	ClaimKeyScopes = "scopes"

	// HeaderKeyKeyID is the JOSE header parameter naming the signing key
	HeaderKeyKeyID = "kid"
)

// ================================================================================
// Tier and Scope Constants
// ================================================================================

// Tier represents a user's subscription tier used to derive scopes
type Tier string

const (
	// TierFree is the entry tier every account can hold
	TierFree Tier = "free"

	// TierPro is the paid tier with extended analytics access
	TierPro Tier = "pro"

	// TierAdmin is the operator tier
	TierAdmin Tier = "admin"
)

// DefaultTier is the tier assigned when a deactivated account is reactivated
// at login.
const DefaultTier = TierFree

// Scope represents a permission scope embedded in tokens
type Scope string

const (
	// ScopeUser allows access to the caller's own climbing data
	ScopeUser Scope = "user"

	// ScopePro allows access to paid analytics features
	ScopePro Scope = "pro"

	// ScopeAdmin allows administrative operations
	ScopeAdmin Scope = "admin"
)

// ================================================================================
// Service Configuration Constants
// ================================================================================

const (
	// DefaultHTTPPort is the default HTTP service port
	DefaultHTTPPort = 8080

	// DefaultGRPCPort is the default gRPC health port
	DefaultGRPCPort = 50051

	// DefaultRequestTimeout is the default request timeout
	DefaultRequestTimeout = 5 * time.Second

	// DefaultShutdownTimeout is the graceful shutdown timeout
	DefaultShutdownTimeout = 30 * time.Second

	// RefreshCookieName is the cookie carrying the refresh token in cookie mode
	RefreshCookieName = "climbauth_refresh"

	// RefreshCookiePath is the path scope of the refresh cookie
	RefreshCookiePath = "/v1/auth"
)

// RefreshTransportMode selects how refresh tokens travel between client and
// service; the mode is fixed by configuration, never mixed per-request.
type RefreshTransportMode string

const (
	// RefreshTransportBearer carries refresh tokens in the request body or
	// Authorization header
	RefreshTransportBearer RefreshTransportMode = "bearer"

	// RefreshTransportCookie carries refresh tokens in an HttpOnly, Secure,
	// SameSite-Strict cookie scoped to the refresh path
	RefreshTransportCookie RefreshTransportMode = "cookie"
)

// ================================================================================
// Logging Constants
// ================================================================================

// LogLevel represents the severity level of log messages
type LogLevel string

const (
	// LogLevelDebug is the most verbose logging level
	LogLevelDebug LogLevel = "debug"

	// LogLevelInfo is the standard informational logging level
	LogLevelInfo LogLevel = "info"

	// LogLevelWarn indicates potential issues
	LogLevelWarn LogLevel = "warn"

	// LogLevelError indicates errors that need attention
	LogLevelError LogLevel = "error"

	// LogLevelFatal indicates critical errors that cause service termination
	LogLevelFatal LogLevel = "fatal"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey represents keys used in context.Context
type ContextKey string

const (
	// ContextKeyRequestID is the key for request ID in context
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyClientIP is the key for client IP address in context
	ContextKeyClientIP ContextKey = "client_ip"

	// ContextKeyTokenData is the key for verified token data in context
	ContextKeyTokenData ContextKey = "token_data"
)
