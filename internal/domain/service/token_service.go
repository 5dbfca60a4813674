// Package service defines the domain service contracts and implementations
// for token issuance, verification and the supporting key, rate limit and
// audit concerns.
package service

import (
	"context"
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
)

//go:generate mockery --name TokenService --output mocks --outpkg mocks
// TokenService issues and verifies the three token types. Issuance always
// signs with the current key; verification accepts any key that has not
// expired yet, so tokens stay valid across rotations.
type TokenService interface {
	// IssueTokenPair mints an access and refresh token for a user.
	//
	// Parameters:
	//   - ctx: request context
	//   - userID: token subject
	//   - scopes: permissions granted by the account tier
	//
	// Returns:
	//   - *models.TokenPair: both signed tokens with their identifiers
	//   - error: key_generation_failed or storage_failure when signing
	//     material is unavailable
	IssueTokenPair(ctx context.Context, userID string, scopes []string) (*models.TokenPair, error)

	// IssueResetToken mints a short-lived password reset token.
	//
	// Parameters:
	//   - ctx: request context
	//   - userID: token subject
	//
	// Returns:
	//   - string: the signed reset token
	//   - time.Time: its expiry instant
	//   - error: signing failure
	IssueResetToken(ctx context.Context, userID string) (string, time.Time, error)

	// VerifyToken runs the full verification sequence on a token string and
	// returns its trusted data. The checks run in a fixed order and the
	// first failure wins: key identification, key lookup, key expiry,
	// signature, token type, revocation, claim extraction.
	//
	// Parameters:
	//   - ctx: request context
	//   - tokenString: the raw compact JWT
	//   - expectedType: which token type the caller requires
	//
	// Returns:
	//   - *models.TokenData: verified claims, only on full success
	//   - error: the error code of the first failed check
	VerifyToken(ctx context.Context, tokenString string, expectedType constants.TokenType) (*models.TokenData, error)

	// RevokeToken places a token identifier on the deny-list. The entry is
	// kept until every token that could carry the identifier has expired.
	//
	// Parameters:
	//   - ctx: request context
	//   - jti: token identifier
	//   - subjectID: account the token belonged to, may be empty
	//   - tokenType: type of the revoked token, may be empty
	//   - reason: audit reason
	//
	// Returns:
	//   - error: storage_failure when the deny-list write failed
	RevokeToken(ctx context.Context, jti, subjectID string, tokenType constants.TokenType, reason string) error

	// IsTokenRevoked reports whether an identifier is on the deny-list
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)

	// ExtractUnverified parses a token without verifying its signature and
	// returns what claims it carries. Used only where a best-effort read
	// of an invalid token is explicitly wanted, never for authorization.
	ExtractUnverified(tokenString string) (*models.TokenData, error)
}

// TokenServiceConfig carries the issuance parameters.
type TokenServiceConfig struct {
	// Issuer is the iss claim value, omitted when empty.
	Issuer string

	// AccessTokenTTL is the access token lifetime.
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the refresh token lifetime.
	RefreshTokenTTL time.Duration

	// ResetTokenTTL is the password reset token lifetime.
	ResetTokenTTL time.Duration

	// ClockSkew is the tolerance applied to time-based claim checks.
	ClockSkew time.Duration
}

// DefaultTokenServiceConfig returns the standard lifetimes
func DefaultTokenServiceConfig() TokenServiceConfig {
	return TokenServiceConfig{
		AccessTokenTTL:  constants.AccessTokenDefaultTTL,
		RefreshTokenTTL: constants.RefreshTokenDefaultTTL,
		ResetTokenTTL:   constants.ResetTokenDefaultTTL,
		ClockSkew:       constants.AllowedClockSkew,
	}
}
