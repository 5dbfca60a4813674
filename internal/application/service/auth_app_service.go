// Package service provides the application services that orchestrate domain
// services and repositories behind the transport adapters.
package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/application/dto"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/repository"
	domainService "github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/utils"
)

// Revocation reasons recorded on the deny-list entries this service writes.
const (
	reasonLogout          = "logout"
	reasonRefreshRedeemed = "refresh_redeemed"
	reasonResetRedeemed   = "reset_redeemed"
	reasonAdministrative  = "administrative"
)

// dummyPasswordHash is a valid-format bcrypt digest compared against when an
// identifier is unknown, so lookup misses and password mismatches take the
// same time to answer.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// AuthAppService 认证应用服务接口
// AuthAppService orchestrates the authentication flows: login, refresh
// rotation, logout, explicit revocation, introspection and password reset.
type AuthAppService interface {
	// Login verifies a credential pair and issues a fresh token pair.
	// Attempts are rate limited per client key before credentials are read.
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenPairResponse, error)

	// Refresh redeems a refresh token for a new pair. The presented token
	// is revoked durably before the new pair is issued.
	Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.TokenPairResponse, error)

	// Logout revokes whichever of the caller's tokens are present and
	// parseable. It never fails on a bad or absent token.
	Logout(ctx context.Context, req *dto.LogoutRequest) (*dto.LogoutResponse, error)

	// Revoke verifies a token and places it on the deny-list. This is the
	// administrative path; verification failures propagate.
	Revoke(ctx context.Context, req *dto.RevokeRequest) error

	// Introspect reports whether a token is active. Any verification
	// failure yields an inactive result, never the specific reason.
	Introspect(ctx context.Context, req *dto.IntrospectRequest) (*models.TokenIntrospection, error)

	// RequestPasswordReset starts the reset flow. The response is identical
	// whether or not the identifier exists.
	RequestPasswordReset(ctx context.Context, req *dto.PasswordResetRequest) (*dto.AcceptedResponse, error)

	// ResetPassword redeems a single-use reset token for a credential
	// change. The token is revoked before the credential is written.
	ResetPassword(ctx context.Context, req *dto.PasswordResetCompleteRequest) error
}

type authAppServiceImpl struct {
	tokens   domainService.TokenService
	users    repository.UserDirectory
	limiter  domainService.RateLimiter
	hasher   domainService.PasswordHasher
	notifier domainService.Notifier
	audit    domainService.AuditService
	metrics  domainService.Metrics
	logger   logger.Logger
}

// NewAuthAppService assembles the authentication application service.
//
// Parameters:
//   - tokens: token issuance and verification domain service
//   - users: account directory for credential checks and updates
//   - limiter: per-client attempt limiter consulted before credentials
//   - hasher: password hash verification and derivation
//   - notifier: out-of-band delivery for reset tokens
//   - audit: audit event sink
//   - metrics: business metrics collector
//   - log: structured logger
//
// Returns:
//   - AuthAppService: the assembled service
func NewAuthAppService(
	tokens domainService.TokenService,
	users repository.UserDirectory,
	limiter domainService.RateLimiter,
	hasher domainService.PasswordHasher,
	notifier domainService.Notifier,
	audit domainService.AuditService,
	metrics domainService.Metrics,
	log logger.Logger,
) AuthAppService {
	return &authAppServiceImpl{
		tokens:   tokens,
		users:    users,
		limiter:  limiter,
		hasher:   hasher,
		notifier: notifier,
		audit:    audit,
		metrics:  metrics,
		logger:   log.WithComponent("auth_service"),
	}
}

var _ AuthAppService = (*authAppServiceImpl)(nil)

// Login implements credential authentication and initial token issuance
func (s *authAppServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenPairResponse, error) {
	// 1. Validate request payload
	if err := utils.ValidateStruct(req); err != nil {
		s.logger.Warn(ctx, "Invalid login request", logger.ErrorField(err))
		return nil, err
	}

	// 2. Count the attempt before reading any credential material, so
	// guesses against unknown identifiers are limited too
	decision, err := s.limiter.Allow(ctx, req.ClientKey)
	if err != nil {
		s.logger.Error(ctx, "Rate limit check failed", err, logger.String("client_key", req.ClientKey))
		return nil, errors.Wrap(err, constants.ErrCodeInternal, "rate limit check failed")
	}
	if !decision.Allowed {
		s.metrics.RecordRateLimitHit()
		s.record(ctx, s.newEvent(ctx, constants.EventTypeRateLimitExceeded, constants.AuditResultFailure,
			req.Identifier, "login attempt rejected over threshold").
			WithResultCode(constants.ErrCodeRateLimited))
		s.logger.Warn(ctx, "Login attempt over rate limit",
			logger.String("client_key", req.ClientKey),
			logger.Duration("retry_after", decision.RetryAfter),
		)
		return nil, errors.ErrRateLimited(decision.RetryAfter)
	}

	// 3. Look up the account and verify the secret. An unknown identifier
	// still pays for a hash comparison so both failures answer alike.
	user, err := s.users.FindByEmail(ctx, req.Identifier)
	if err != nil {
		if errors.IsCode(err, constants.ErrCodeCredentialsInvalid) {
			_ = s.hasher.Compare(dummyPasswordHash, req.Secret)
			return nil, s.failLogin(ctx, req, "unknown identifier")
		}
		s.logger.Error(ctx, "Account lookup failed", err)
		return nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Secret); err != nil {
		return nil, s.failLogin(ctx, req, "secret verification failed")
	}

	// 4. The attempt succeeded; clear the counter for this client
	if err := s.limiter.Reset(ctx, req.ClientKey); err != nil {
		s.logger.Warn(ctx, "Rate limit reset failed", logger.String("client_key", req.ClientKey), logger.ErrorField(err))
	}

	// 5. A deactivated account comes back on the default tier. Scopes are
	// derived after reactivation so they reflect the restored standing.
	reactivated := false
	if user.IsDeactivated() {
		user.Reactivate(time.Now())
		if err := s.users.Save(ctx, user); err != nil {
			s.logger.Error(ctx, "Account reactivation failed", err, logger.String("user_id", user.ID))
			return nil, err
		}
		reactivated = true
		s.logger.Info(ctx, "Deactivated account restored at login",
			logger.String("user_id", user.ID),
			logger.String("tier", string(user.Tier)),
		)
	}
	scopes := user.Scopes()

	// 6. Issue the pair
	pair, err := s.tokens.IssueTokenPair(ctx, user.ID, scopes)
	if err != nil {
		s.metrics.RecordLogin(false, string(errors.CodeOf(err)))
		s.record(ctx, s.newEvent(ctx, constants.EventTypeLogin, constants.AuditResultFailure,
			user.ID, "token issuance failed after credential verification").
			WithResultCode(errors.CodeOf(err)))
		s.logger.Error(ctx, "Failed to issue token pair at login", err, logger.String("user_id", user.ID))
		return nil, err
	}

	// 7. Record the outcome and return both tokens
	s.metrics.RecordLogin(true, "")
	event := s.newEvent(ctx, constants.EventTypeLogin, constants.AuditResultSuccess, user.ID, "login succeeded").
		WithMetadata(map[string]interface{}{
			"access_jti":  pair.AccessJTI,
			"refresh_jti": pair.RefreshJTI,
			"tier":        string(user.Tier),
			"reactivated": reactivated,
		})
	event.UserAgent = req.UserAgent
	s.record(ctx, event)
	s.logger.Info(ctx, "Login successful",
		logger.String("user_id", user.ID),
		logger.String("access_jti", pair.AccessJTI),
	)

	return dto.NewTokenPairResponse(pair, scopes), nil
}

// failLogin records a failed credential check and returns the uniform
// credentials error. The specific reason only appears in the audit trail.
func (s *authAppServiceImpl) failLogin(ctx context.Context, req *dto.LoginRequest, reason string) error {
	s.metrics.RecordLogin(false, string(constants.ErrCodeCredentialsInvalid))
	event := s.newEvent(ctx, constants.EventTypeLogin, constants.AuditResultFailure, req.Identifier, reason).
		WithResultCode(constants.ErrCodeCredentialsInvalid)
	event.UserAgent = req.UserAgent
	s.record(ctx, event)
	s.logger.Warn(ctx, "Login attempt failed", logger.String("reason", reason))
	return errors.ErrCredentialsInvalid()
}

// Refresh implements single-use refresh token rotation
func (s *authAppServiceImpl) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.TokenPairResponse, error) {
	// 1. Validate request payload
	if err := utils.ValidateStruct(req); err != nil {
		s.logger.Warn(ctx, "Invalid refresh request", logger.ErrorField(err))
		return nil, err
	}

	// 2. Full verification; any failure surfaces as unauthenticated
	data, err := s.tokens.VerifyToken(ctx, req.RefreshToken, constants.TokenTypeRefresh)
	if err != nil {
		subject := ""
		if peeked, peekErr := s.tokens.ExtractUnverified(req.RefreshToken); peekErr == nil {
			subject = peeked.SubjectID
		}
		s.record(ctx, s.newEvent(ctx, constants.EventTypeTokenRefresh, constants.AuditResultFailure,
			subject, "refresh token rejected").
			WithResultCode(errors.CodeOf(err)))
		s.logger.Warn(ctx, "Refresh token rejected", logger.ErrorField(err))
		return nil, err
	}

	// 3. Burn the presented token before minting its successor. A crash
	// between the two steps must leave the old token dead, never two
	// live refresh tokens from one redemption.
	if err := s.tokens.RevokeToken(ctx, data.JTI, data.SubjectID, constants.TokenTypeRefresh, reasonRefreshRedeemed); err != nil {
		s.record(ctx, s.newEvent(ctx, constants.EventTypeTokenRefresh, constants.AuditResultFailure,
			data.SubjectID, "redeemed token could not be revoked").
			WithResultCode(errors.CodeOf(err)))
		s.logger.Error(ctx, "Failed to revoke redeemed refresh token", err, logger.String("jti", data.JTI))
		return nil, err
	}

	// 4. Issue the replacement pair with the scopes the token carried. If
	// this fails the old token is already burned and the client signs in
	// again; that beats leaving a redeemed token alive.
	pair, err := s.tokens.IssueTokenPair(ctx, data.SubjectID, data.Scopes)
	if err != nil {
		s.record(ctx, s.newEvent(ctx, constants.EventTypeTokenRefresh, constants.AuditResultFailure,
			data.SubjectID, "issuance failed after redemption").
			WithResultCode(errors.CodeOf(err)))
		s.logger.Error(ctx, "Failed to issue pair during refresh", err, logger.String("user_id", data.SubjectID))
		return nil, err
	}

	// 5. Record the rotation
	s.record(ctx, s.newEvent(ctx, constants.EventTypeTokenRefresh, constants.AuditResultSuccess,
		data.SubjectID, "refresh token rotated").
		WithMetadata(map[string]interface{}{
			"old_jti":     data.JTI,
			"access_jti":  pair.AccessJTI,
			"refresh_jti": pair.RefreshJTI,
		}))
	s.logger.Info(ctx, "Refresh token rotated",
		logger.String("user_id", data.SubjectID),
		logger.String("old_jti", data.JTI),
		logger.String("refresh_jti", pair.RefreshJTI),
	)

	return dto.NewTokenPairResponse(pair, data.Scopes), nil
}

// Logout implements best-effort revocation of the caller's tokens
func (s *authAppServiceImpl) Logout(ctx context.Context, req *dto.LogoutRequest) (*dto.LogoutResponse, error) {
	revoked := 0
	subject := ""

	// Unverifiable tokens are skipped, not rejected: a client holding only
	// an expired or mangled token can still log out cleanly.
	for _, tokenString := range []string{req.AccessToken, req.RefreshToken} {
		if tokenString == "" {
			continue
		}
		data, err := s.tokens.ExtractUnverified(tokenString)
		if err != nil {
			s.logger.Debug(ctx, "Skipping unparseable token at logout", logger.ErrorField(err))
			continue
		}
		if subject == "" {
			subject = data.SubjectID
		}
		if err := s.tokens.RevokeToken(ctx, data.JTI, data.SubjectID, data.TokenType, reasonLogout); err != nil {
			s.logger.Warn(ctx, "Best-effort revocation failed at logout",
				logger.String("jti", data.JTI), logger.ErrorField(err))
			continue
		}
		revoked++
	}

	s.record(ctx, s.newEvent(ctx, constants.EventTypeLogout, constants.AuditResultSuccess,
		subject, "logout processed").
		WithMetadata(map[string]interface{}{"revoked": revoked}))
	s.logger.Info(ctx, "Logout processed", logger.Int("revoked", revoked))

	return &dto.LogoutResponse{Revoked: revoked}, nil
}

// Revoke implements explicit administrative revocation
func (s *authAppServiceImpl) Revoke(ctx context.Context, req *dto.RevokeRequest) error {
	// 1. Validate request payload
	if err := utils.ValidateStruct(req); err != nil {
		s.logger.Warn(ctx, "Invalid revoke request", logger.ErrorField(err))
		return err
	}

	// 2. The type hint is advisory; the token's own claimed type drives
	// verification, and the signature check makes that claim trustworthy.
	peeked, err := s.tokens.ExtractUnverified(req.Token)
	if err != nil {
		s.logger.Warn(ctx, "Unparseable token on revoke", logger.ErrorField(err))
		return err
	}
	data, err := s.tokens.VerifyToken(ctx, req.Token, peeked.TokenType)
	if err != nil {
		s.record(ctx, s.newEvent(ctx, constants.EventTypeTokenRevoke, constants.AuditResultFailure,
			peeked.SubjectID, "revocation target failed verification").
			WithResultCode(errors.CodeOf(err)))
		s.logger.Warn(ctx, "Revocation target failed verification", logger.ErrorField(err))
		return err
	}

	// 3. Deny-list the verified token
	reason := req.Reason
	if reason == "" {
		reason = reasonAdministrative
	}
	if err := s.tokens.RevokeToken(ctx, data.JTI, data.SubjectID, data.TokenType, reason); err != nil {
		s.logger.Error(ctx, "Failed to revoke token", err, logger.String("jti", data.JTI))
		return err
	}

	s.record(ctx, s.newEvent(ctx, constants.EventTypeTokenRevoke, constants.AuditResultSuccess,
		data.SubjectID, "token revoked").
		WithMetadata(map[string]interface{}{
			"jti":        data.JTI,
			"token_type": string(data.TokenType),
			"reason":     reason,
		}))
	s.logger.Info(ctx, "Token revoked",
		logger.String("jti", data.JTI),
		logger.String("token_type", string(data.TokenType)),
		logger.String("reason", reason),
	)

	return nil
}

// Introspect implements RFC 7662 style token introspection
func (s *authAppServiceImpl) Introspect(ctx context.Context, req *dto.IntrospectRequest) (*models.TokenIntrospection, error) {
	// 1. Validate request payload
	if err := utils.ValidateStruct(req); err != nil {
		s.logger.Warn(ctx, "Invalid introspect request", logger.ErrorField(err))
		return nil, err
	}

	// 2. Anything short of full verification is reported as inactive. The
	// caller never learns whether the token was malformed, expired,
	// revoked or signed by an unknown key.
	peeked, err := s.tokens.ExtractUnverified(req.Token)
	if err != nil {
		s.logger.Debug(ctx, "Introspected token unparseable", logger.ErrorField(err))
		return models.InactiveIntrospection(), nil
	}
	data, err := s.tokens.VerifyToken(ctx, req.Token, peeked.TokenType)
	if err != nil {
		s.logger.Debug(ctx, "Introspected token inactive", logger.ErrorField(err))
		return models.InactiveIntrospection(), nil
	}

	return models.IntrospectionFromTokenData(data), nil
}

// RequestPasswordReset implements the reset request half of the flow
func (s *authAppServiceImpl) RequestPasswordReset(ctx context.Context, req *dto.PasswordResetRequest) (*dto.AcceptedResponse, error) {
	// 1. Validate request payload
	if err := utils.ValidateStruct(req); err != nil {
		s.logger.Warn(ctx, "Invalid password reset request", logger.ErrorField(err))
		return nil, err
	}

	// 2. Look up the account. An unknown identifier gets the same response
	// as a known one; only the audit trail records the difference.
	user, err := s.users.FindByEmail(ctx, req.Identifier)
	if err != nil {
		if errors.IsCode(err, constants.ErrCodeCredentialsInvalid) {
			s.record(ctx, s.newEvent(ctx, constants.EventTypePasswordReset, constants.AuditResultFailure,
				req.Identifier, "reset requested for unknown identifier").
				WithResultCode(constants.ErrCodeCredentialsInvalid))
			s.logger.Info(ctx, "Password reset requested for unknown identifier")
			return dto.NewResetAcceptedResponse(), nil
		}
		s.logger.Error(ctx, "Account lookup failed for password reset", err)
		return nil, err
	}

	// 3. From here on every failure is logged and audited but the response
	// stays the same: once existence is known, nothing may distinguish a
	// served request from a failed one.
	token, expiresAt, err := s.tokens.IssueResetToken(ctx, user.ID)
	if err != nil {
		s.record(ctx, s.newEvent(ctx, constants.EventTypePasswordReset, constants.AuditResultFailure,
			user.ID, "reset token issuance failed").
			WithResultCode(errors.CodeOf(err)))
		s.logger.Error(ctx, "Failed to issue reset token", err, logger.String("user_id", user.ID))
		return dto.NewResetAcceptedResponse(), nil
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, token, expiresAt); err != nil {
		s.record(ctx, s.newEvent(ctx, constants.EventTypePasswordReset, constants.AuditResultFailure,
			user.ID, "reset notification delivery failed").
			WithResultCode(errors.CodeOf(err)))
		s.logger.Error(ctx, "Failed to deliver reset notification", err, logger.String("user_id", user.ID))
		return dto.NewResetAcceptedResponse(), nil
	}

	s.record(ctx, s.newEvent(ctx, constants.EventTypePasswordReset, constants.AuditResultSuccess,
		user.ID, "reset token issued").
		WithMetadata(map[string]interface{}{"expires_at": expiresAt.UTC()}))
	s.logger.Info(ctx, "Password reset token issued", logger.String("user_id", user.ID))

	return dto.NewResetAcceptedResponse(), nil
}

// ResetPassword implements the reset completion half of the flow
func (s *authAppServiceImpl) ResetPassword(ctx context.Context, req *dto.PasswordResetCompleteRequest) error {
	// 1. Validate request payload
	if err := utils.ValidateStruct(req); err != nil {
		s.logger.Warn(ctx, "Invalid password reset completion", logger.ErrorField(err))
		return err
	}

	// 2. Full verification of the reset token
	data, err := s.tokens.VerifyToken(ctx, req.ResetToken, constants.TokenTypeReset)
	if err != nil {
		s.record(ctx, s.newEvent(ctx, constants.EventTypePasswordReset, constants.AuditResultFailure,
			"", "reset token rejected").
			WithResultCode(errors.CodeOf(err)))
		s.logger.Warn(ctx, "Reset token rejected", logger.ErrorField(err))
		return err
	}

	// 3. Burn the token before touching the credential. A crash after this
	// point costs the user another reset request, never a reusable token.
	if err := s.tokens.RevokeToken(ctx, data.JTI, data.SubjectID, constants.TokenTypeReset, reasonResetRedeemed); err != nil {
		s.logger.Error(ctx, "Failed to revoke redeemed reset token", err, logger.String("jti", data.JTI))
		return err
	}

	// 4. Derive and store the new credential
	hash, err := s.hasher.Hash(req.NewSecret)
	if err != nil {
		s.logger.Error(ctx, "Failed to hash new credential", err)
		return errors.Wrap(err, constants.ErrCodeInternal, "credential hashing failed")
	}
	user, err := s.users.FindByID(ctx, data.SubjectID)
	if err != nil {
		s.logger.Error(ctx, "Account lookup failed for credential update", err, logger.String("user_id", data.SubjectID))
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Save(ctx, user); err != nil {
		s.logger.Error(ctx, "Failed to store new credential", err, logger.String("user_id", user.ID))
		return err
	}

	s.record(ctx, s.newEvent(ctx, constants.EventTypePasswordReset, constants.AuditResultSuccess,
		user.ID, "credential updated").
		WithMetadata(map[string]interface{}{"reset_jti": data.JTI}))
	s.logger.Info(ctx, "Password reset completed", logger.String("user_id", user.ID))

	return nil
}

// newEvent builds an audit event stamped with the request correlation the
// context carries.
func (s *authAppServiceImpl) newEvent(ctx context.Context, eventType constants.AuditEventType, result constants.AuditEventResult, subject, message string) *models.AuditEvent {
	requestID, _ := ctx.Value(constants.ContextKeyRequestID).(string)
	clientIP, _ := ctx.Value(constants.ContextKeyClientIP).(string)
	traceID := ""
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}
	return models.NewAuditEvent(eventType, result, subject, message).
		WithContextInfo(clientIP, "", requestID, traceID)
}

// record hands an event to the audit sink. The sink contract already keeps
// recording out of the request path's failure modes.
func (s *authAppServiceImpl) record(ctx context.Context, event *models.AuditEvent) {
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.Warn(ctx, "Audit record failed", logger.String("event_type", string(event.EventType)), logger.ErrorField(err))
	}
}
