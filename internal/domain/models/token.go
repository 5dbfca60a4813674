// Package models defines the domain models for the climbauth service:
// signing keys, token claims, verified token data, user accounts and
// audit events.
package models

import (
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
)

// TokenData is the verified content of a token, produced only after every
// verification step has passed. Handlers and callers never see claims from
// a token that failed verification.
// TokenData 是令牌经过全部验证步骤后产生的可信内容。
// 处理器和调用方永远不会看到验证失败令牌的声明。
type TokenData struct {
	// JTI is the unique token identifier used for revocation checks.
	JTI string `json:"jti"`

	// SubjectID identifies the user the token was issued to.
	SubjectID string `json:"sub"`

	// TokenType is the verified token type.
	TokenType constants.TokenType `json:"type"`

	// Scopes lists the permissions the token grants.
	Scopes []string `json:"scopes"`

	// IssuedAt is the issuance instant from the iat claim.
	IssuedAt time.Time `json:"issued_at"`

	// ExpiresAt is the expiry instant from the exp claim.
	ExpiresAt time.Time `json:"expires_at"`

	// KeyID is the signing key that verified the token.
	KeyID string `json:"key_id,omitempty"`
}

// IsExpiredAt reports whether the token has expired at the given instant
func (t *TokenData) IsExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// HasScope reports whether the token grants a specific scope
func (t *TokenData) HasScope(scope string) bool {
	for _, s := range t.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// TimeUntilExpiry returns the remaining lifetime at the given instant,
// or zero if already expired
func (t *TokenData) TimeUntilExpiry(now time.Time) time.Duration {
	if t.IsExpiredAt(now) {
		return 0
	}
	return t.ExpiresAt.Sub(now)
}

// ScopeString renders the scopes as a space-delimited string for
// introspection responses
func (t *TokenData) ScopeString() string {
	out := ""
	for i, s := range t.Scopes {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}

// TokenPair bundles the access and refresh tokens produced by one issuance.
// Both tokens are minted in the same call under the same signing key and
// carry distinct identifiers.
// TokenPair 捆绑一次颁发产生的访问令牌和刷新令牌。
// 两个令牌在同一调用中以同一签名密钥铸造，并携带不同的标识符。
type TokenPair struct {
	// AccessToken is the signed short-lived token presented on API calls.
	AccessToken string `json:"access_token"`

	// RefreshToken is the signed long-lived token used to obtain new pairs.
	RefreshToken string `json:"refresh_token"`

	// AccessJTI is the identifier of the access token.
	AccessJTI string `json:"-"`

	// RefreshJTI is the identifier of the refresh token.
	RefreshJTI string `json:"-"`

	// AccessExpiresAt is the access token expiry instant.
	AccessExpiresAt time.Time `json:"access_expires_at"`

	// RefreshExpiresAt is the refresh token expiry instant.
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`

	// KeyID is the signing key both tokens were minted under.
	KeyID string `json:"-"`
}

// RevokedToken is the durable record of a revocation. Rows outlive the Redis
// entry and allow the deny-list to be rebuilt after a cache flush.
// RevokedToken 是撤销的持久记录。行的生命周期长于 Redis 条目，
// 允许在缓存清空后重建拒绝列表。
type RevokedToken struct {
	// JTI is the identifier of the revoked token.
	JTI string `gorm:"column:jti;primaryKey" json:"jti"`

	// SubjectID is the user the revoked token belonged to, when known.
	SubjectID string `gorm:"column:subject_id;index" json:"subject_id,omitempty"`

	// TokenType is the type of the revoked token, when known.
	TokenType constants.TokenType `gorm:"column:token_type" json:"token_type,omitempty"`

	// Reason describes why the token was revoked.
	Reason string `gorm:"column:reason" json:"reason,omitempty"`

	// RevokedAt is when the revocation was recorded.
	RevokedAt time.Time `gorm:"column:revoked_at;not null" json:"revoked_at"`

	// ExpiresAt bounds how long the record must be retained. After this
	// instant every token carrying the JTI has itself expired.
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index" json:"expires_at"`
}

// TableName sets the storage table for GORM
func (RevokedToken) TableName() string {
	return "revoked_tokens"
}

// TokenIntrospection is the response shape of the introspection operation,
// following RFC 7662. Inactive responses carry only the active flag so
// callers learn nothing about why a token was rejected.
type TokenIntrospection struct {
	Active    bool   `json:"active"`
	Scope     string `json:"scope,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Sub       string `json:"sub,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
	Jti       string `json:"jti,omitempty"`
}

// IntrospectionFromTokenData builds an active introspection response from
// verified token data
func IntrospectionFromTokenData(data *TokenData) *TokenIntrospection {
	return &TokenIntrospection{
		Active:    true,
		Scope:     data.ScopeString(),
		TokenType: string(data.TokenType),
		Sub:       data.SubjectID,
		Exp:       data.ExpiresAt.Unix(),
		Iat:       data.IssuedAt.Unix(),
		Jti:       data.JTI,
	}
}

// InactiveIntrospection is the fixed response for any token that fails
// verification
func InactiveIntrospection() *TokenIntrospection {
	return &TokenIntrospection{Active: false}
}
