package service

import (
	"context"
	"crypto/rsa"
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/repository"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/utils"
)

// Ensure it satisfies the interface in token_service.go
var _ TokenService = (*tokenDomainService)(nil)

type tokenDomainService struct {
	config      TokenServiceConfig
	keys        KeyManager
	revocations repository.RevocationStore
	metrics     Metrics
	log         logger.Logger
	parser      *jwt.Parser
}

// NewTokenDomainService creates the token domain service.
//
// Parameters:
//   - config: issuance lifetimes and clock skew
//   - keys: signing key lifecycle manager
//   - revocations: deny-list store consulted during verification
//   - metrics: business metrics collector
//   - log: structured logger
//
// Returns:
//   - TokenService: the assembled service
func NewTokenDomainService(
	config TokenServiceConfig,
	keys KeyManager,
	revocations repository.RevocationStore,
	metrics Metrics,
	log logger.Logger,
) TokenService {
	return &tokenDomainService{
		config:      config,
		keys:        keys,
		revocations: revocations,
		metrics:     metrics,
		log:         log.WithComponent("token_service"),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{string(constants.AlgorithmRS256)}),
			jwt.WithLeeway(config.ClockSkew),
		),
	}
}

// ================================================================================
// Issuance
// ================================================================================

func (s *tokenDomainService) IssueTokenPair(ctx context.Context, userID string, scopes []string) (*models.TokenPair, error) {
	start := time.Now()

	// 1. Obtain the current signing key and its decrypted private key
	key, privateKey, err := s.keys.SigningKey(ctx)
	if err != nil {
		s.metrics.RecordTokenIssue(string(constants.TokenTypeAccess), false, time.Since(start), string(errors.CodeOf(err)))
		return nil, err
	}

	now := time.Now().UTC()
	accessJTI := utils.NewJTI()
	refreshJTI := utils.NewJTI()

	// 2. Mint both tokens under the same key
	accessToken, accessExpiry, err := s.signToken(key, privateKey, userID, accessJTI, constants.TokenTypeAccess, scopes, now, s.config.AccessTokenTTL)
	if err != nil {
		s.metrics.RecordTokenIssue(string(constants.TokenTypeAccess), false, time.Since(start), string(errors.CodeOf(err)))
		return nil, err
	}

	refreshToken, refreshExpiry, err := s.signToken(key, privateKey, userID, refreshJTI, constants.TokenTypeRefresh, scopes, now, s.config.RefreshTokenTTL)
	if err != nil {
		s.metrics.RecordTokenIssue(string(constants.TokenTypeRefresh), false, time.Since(start), string(errors.CodeOf(err)))
		return nil, err
	}

	s.metrics.RecordTokenIssue(string(constants.TokenTypeAccess), true, time.Since(start), "")
	s.log.Debug(ctx, "issued token pair",
		logger.String("subject", userID),
		logger.String("key_id", key.KID),
		logger.String("access_jti", accessJTI),
		logger.String("refresh_jti", refreshJTI),
	)

	return &models.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessJTI:        accessJTI,
		RefreshJTI:       refreshJTI,
		AccessExpiresAt:  accessExpiry,
		RefreshExpiresAt: refreshExpiry,
		KeyID:            key.KID,
	}, nil
}

func (s *tokenDomainService) IssueResetToken(ctx context.Context, userID string) (string, time.Time, error) {
	start := time.Now()

	key, privateKey, err := s.keys.SigningKey(ctx)
	if err != nil {
		s.metrics.RecordTokenIssue(string(constants.TokenTypeReset), false, time.Since(start), string(errors.CodeOf(err)))
		return "", time.Time{}, err
	}

	now := time.Now().UTC()
	// Reset tokens carry no scopes; they authorize exactly one operation.
	token, expiry, err := s.signToken(key, privateKey, userID, utils.NewJTI(), constants.TokenTypeReset, nil, now, s.config.ResetTokenTTL)
	if err != nil {
		s.metrics.RecordTokenIssue(string(constants.TokenTypeReset), false, time.Since(start), string(errors.CodeOf(err)))
		return "", time.Time{}, err
	}

	s.metrics.RecordTokenIssue(string(constants.TokenTypeReset), true, time.Since(start), "")
	return token, expiry, nil
}

// signToken builds, stamps and signs a single token
func (s *tokenDomainService) signToken(
	key *models.SigningKey,
	privateKey *rsa.PrivateKey,
	userID, jti string,
	tokenType constants.TokenType,
	scopes []string,
	issuedAt time.Time,
	ttl time.Duration,
) (string, time.Time, error) {
	expiresAt := issuedAt.Add(ttl)

	claims := &models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TokenType: tokenType,
		Scopes:    scopes,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header[constants.HeaderKeyKeyID] = key.KID

	signed, err := token.SignedString(privateKey)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, constants.ErrCodeInternal, "failed to sign token")
	}
	return signed, expiresAt, nil
}

// ================================================================================
// Verification
// ================================================================================

// VerifyToken checks a token in a fixed order; the first failing check
// decides the returned error. Claims are only trusted after the signature
// has verified.
func (s *tokenDomainService) VerifyToken(ctx context.Context, tokenString string, expectedType constants.TokenType) (*models.TokenData, error) {
	now := time.Now().UTC()
	claims := &models.Claims{}
	var verifyingKID string

	// Steps 1-3 run inside the key lookup callback, before any signature
	// work: kid presence, key existence, key expiry.
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		kidValue, ok := t.Header[constants.HeaderKeyKeyID]
		if !ok {
			return nil, errors.ErrMissingKeyID()
		}
		kid, ok := kidValue.(string)
		if !ok || kid == "" {
			return nil, errors.ErrMissingKeyID()
		}

		key, lookupErr := s.keys.VerificationKey(ctx, kid)
		if lookupErr != nil {
			return nil, lookupErr
		}

		if key.IsExpiredAt(now) {
			return nil, errors.ErrKeyExpired(kid)
		}

		verifyingKID = kid
		return key.PublicKey, nil
	})

	// Step 4: signature, plus the library's time-based claim checks
	if err != nil {
		mapped := s.mapParseError(err, expectedType)
		s.metrics.RecordTokenVerify(string(expectedType), false, string(errors.CodeOf(mapped)))
		return nil, mapped
	}
	if !token.Valid {
		s.metrics.RecordTokenVerify(string(expectedType), false, string(constants.ErrCodeSignatureInvalid))
		return nil, errors.ErrSignatureInvalid()
	}

	// Step 5: token type must match what the caller expects
	if claims.TokenType != expectedType {
		s.metrics.RecordTokenVerify(string(expectedType), false, string(constants.ErrCodeTypeMismatch))
		return nil, errors.ErrTypeMismatch(string(expectedType), string(claims.TokenType))
	}

	// Step 6: revocation. A deny-list read failure fails the verification;
	// a token that cannot be proven unrevoked is not accepted.
	if claims.ID == "" {
		s.metrics.RecordTokenVerify(string(expectedType), false, string(constants.ErrCodeTokenMalformed))
		return nil, errors.ErrTokenMalformed("missing jti claim")
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.metrics.RecordTokenVerify(string(expectedType), false, string(constants.ErrCodeStorageFailure))
		return nil, errors.ErrStorageFailure("revocation check", err)
	}
	if revoked {
		s.metrics.RecordTokenVerify(string(expectedType), false, string(constants.ErrCodeTokenRevoked))
		return nil, errors.ErrTokenRevoked(claims.ID)
	}

	// Step 7: extract the trusted data
	data, err := tokenDataFromClaims(claims, verifyingKID)
	if err != nil {
		s.metrics.RecordTokenVerify(string(expectedType), false, string(errors.CodeOf(err)))
		return nil, err
	}

	s.metrics.RecordTokenVerify(string(expectedType), true, "")
	return data, nil
}

// mapParseError translates golang-jwt parse failures into the service's
// error codes. Errors raised by the key lookup callback pass through as-is.
func (s *tokenDomainService) mapParseError(err error, expectedType constants.TokenType) error {
	if authErr, ok := errors.AsAuthError(err); ok {
		return authErr
	}
	switch {
	case stderrors.Is(err, jwt.ErrTokenSignatureInvalid):
		return errors.ErrSignatureInvalid()
	case stderrors.Is(err, jwt.ErrTokenExpired):
		return errors.ErrTokenExpired(string(expectedType))
	case stderrors.Is(err, jwt.ErrTokenUsedBeforeIssued), stderrors.Is(err, jwt.ErrTokenNotValidYet):
		return errors.ErrTokenMalformed("token not valid yet")
	case stderrors.Is(err, jwt.ErrTokenMalformed):
		return errors.ErrTokenMalformed("not a valid compact JWT")
	default:
		return errors.Wrap(err, constants.ErrCodeTokenMalformed, "token parsing failed")
	}
}

// tokenDataFromClaims builds the trusted TokenData from verified claims
func tokenDataFromClaims(claims *models.Claims, kid string) (*models.TokenData, error) {
	if claims.Subject == "" {
		return nil, errors.ErrTokenMalformed("missing sub claim")
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, errors.ErrTokenMalformed("missing time claims")
	}

	return &models.TokenData{
		JTI:       claims.ID,
		SubjectID: claims.Subject,
		TokenType: claims.TokenType,
		Scopes:    claims.Scopes,
		IssuedAt:  claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
		KeyID:     kid,
	}, nil
}

// ================================================================================
// Revocation
// ================================================================================

func (s *tokenDomainService) RevokeToken(ctx context.Context, jti, subjectID string, tokenType constants.TokenType, reason string) error {
	if jti == "" {
		return errors.ErrInvalidRequest("jti must not be empty")
	}

	now := time.Now().UTC()
	record := &models.RevokedToken{
		JTI:       jti,
		SubjectID: subjectID,
		TokenType: tokenType,
		Reason:    reason,
		RevokedAt: now,
		// Retention covers the longest-lived token plus a safety margin, so
		// the entry outlives anything that could present this jti.
		ExpiresAt: now.Add(constants.RevocationRetention),
	}

	if err := s.revocations.Revoke(ctx, record); err != nil {
		s.log.Error(ctx, "failed to record revocation", err, logger.String("jti", jti))
		return err
	}

	s.metrics.RecordTokenRevoke(reason)
	s.log.Info(ctx, "token revoked",
		logger.String("jti", jti),
		logger.String("reason", reason),
	)
	return nil
}

func (s *tokenDomainService) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return s.revocations.IsRevoked(ctx, jti)
}

// ================================================================================
// Unverified Extraction
// ================================================================================

// ExtractUnverified reads claims without any verification. The result must
// never drive an authorization decision; it exists for best-effort cleanup
// paths such as logout with an already-invalid token.
func (s *tokenDomainService) ExtractUnverified(tokenString string) (*models.TokenData, error) {
	claims := &models.Claims{}
	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, errors.ErrTokenMalformed("not a valid compact JWT")
	}

	data := &models.TokenData{
		JTI:       claims.ID,
		SubjectID: claims.Subject,
		TokenType: claims.TokenType,
		Scopes:    claims.Scopes,
	}
	if claims.IssuedAt != nil {
		data.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		data.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return data, nil
}
