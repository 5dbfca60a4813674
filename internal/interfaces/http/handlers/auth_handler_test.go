package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/application/dto"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/interfaces/http/handlers"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// stubAuthService lets each test script exactly one application behavior.
type stubAuthService struct {
	login        func(ctx context.Context, req *dto.LoginRequest) (*dto.TokenPairResponse, error)
	refresh      func(ctx context.Context, req *dto.RefreshRequest) (*dto.TokenPairResponse, error)
	logout       func(ctx context.Context, req *dto.LogoutRequest) (*dto.LogoutResponse, error)
	revoke       func(ctx context.Context, req *dto.RevokeRequest) error
	introspect   func(ctx context.Context, req *dto.IntrospectRequest) (*models.TokenIntrospection, error)
	requestReset func(ctx context.Context, req *dto.PasswordResetRequest) (*dto.AcceptedResponse, error)
	resetSecret  func(ctx context.Context, req *dto.PasswordResetCompleteRequest) error
}

func (s *stubAuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenPairResponse, error) {
	return s.login(ctx, req)
}

func (s *stubAuthService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.TokenPairResponse, error) {
	return s.refresh(ctx, req)
}

func (s *stubAuthService) Logout(ctx context.Context, req *dto.LogoutRequest) (*dto.LogoutResponse, error) {
	return s.logout(ctx, req)
}

func (s *stubAuthService) Revoke(ctx context.Context, req *dto.RevokeRequest) error {
	return s.revoke(ctx, req)
}

func (s *stubAuthService) Introspect(ctx context.Context, req *dto.IntrospectRequest) (*models.TokenIntrospection, error) {
	return s.introspect(ctx, req)
}

func (s *stubAuthService) RequestPasswordReset(ctx context.Context, req *dto.PasswordResetRequest) (*dto.AcceptedResponse, error) {
	return s.requestReset(ctx, req)
}

func (s *stubAuthService) ResetPassword(ctx context.Context, req *dto.PasswordResetCompleteRequest) error {
	return s.resetSecret(ctx, req)
}

func bearerTokenConfig() config.TokenConfig {
	return config.TokenConfig{
		RefreshTransport: string(constants.RefreshTransportBearer),
		RefreshTokenTTL:  int((30 * 24 * time.Hour).Seconds()),
	}
}

func cookieTokenConfig() config.TokenConfig {
	cfg := bearerTokenConfig()
	cfg.RefreshTransport = string(constants.RefreshTransportCookie)
	return cfg
}

func newAuthEngine(stub *stubAuthService, tokens config.TokenConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handlers.NewAuthHandler(stub, tokens, logger.NewNoopLogger())
	engine := gin.New()
	engine.POST("/v1/auth/login", h.Login)
	engine.POST("/v1/auth/refresh", h.Refresh)
	engine.POST("/v1/auth/logout", h.Logout)
	engine.POST("/v1/auth/revoke", h.Revoke)
	engine.POST("/v1/auth/introspect", h.Introspect)
	return engine
}

func pairResponse() *dto.TokenPairResponse {
	return &dto.TokenPairResponse{
		AccessToken:      "header.payload.sig",
		RefreshToken:     "header.payload2.sig",
		TokenType:        constants.BearerScheme,
		ExpiresIn:        3600,
		RefreshExpiresIn: 7200,
		Scope:            "user",
	}
}

func TestLogin_FillsTransportFields(t *testing.T) {
	var captured *dto.LoginRequest
	stub := &stubAuthService{
		login: func(ctx context.Context, req *dto.LoginRequest) (*dto.TokenPairResponse, error) {
			captured = req
			return pairResponse(), nil
		},
	}
	engine := newAuthEngine(stub, bearerTokenConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"identifier":"alex@crag.example","secret":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "climb-cli/2.1")
	req.RemoteAddr = "203.0.113.9:51423"
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "203.0.113.9", captured.ClientKey)
	assert.Equal(t, "climb-cli/2.1", captured.UserAgent)
	assert.Contains(t, w.Body.String(), `"access_token"`)
	assert.Contains(t, w.Body.String(), `"refresh_token"`)
}

func TestLogin_RateLimitCarriesRetryAfter(t *testing.T) {
	stub := &stubAuthService{
		login: func(ctx context.Context, req *dto.LoginRequest) (*dto.TokenPairResponse, error) {
			return nil, errors.ErrRateLimited(30 * time.Second)
		},
	}
	engine := newAuthEngine(stub, bearerTokenConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"identifier":"alex@crag.example","secret":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"error":"rate_limited"`)
	assert.Contains(t, w.Body.String(), `"retry_after":30`)
}

func TestLogin_MalformedBody(t *testing.T) {
	stub := &stubAuthService{
		login: func(ctx context.Context, req *dto.LoginRequest) (*dto.TokenPairResponse, error) {
			t.Fatal("service must not be called for malformed JSON")
			return nil, nil
		},
	}
	engine := newAuthEngine(stub, bearerTokenConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"identifier":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"invalid_request"`)
}

func TestLogin_CredentialFailureIsGeneric(t *testing.T) {
	stub := &stubAuthService{
		login: func(ctx context.Context, req *dto.LoginRequest) (*dto.TokenPairResponse, error) {
			return nil, errors.ErrCredentialsInvalid()
		},
	}
	engine := newAuthEngine(stub, bearerTokenConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"identifier":"alex@crag.example","secret":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	// The body names the code but never which half of the pair failed.
	assert.Contains(t, w.Body.String(), `"error":"credentials_invalid"`)
	assert.NotContains(t, w.Body.String(), "identifier")
}

func TestRefresh_CookieModeRoundTrip(t *testing.T) {
	var captured *dto.RefreshRequest
	stub := &stubAuthService{
		refresh: func(ctx context.Context, req *dto.RefreshRequest) (*dto.TokenPairResponse, error) {
			captured = req
			return pairResponse(), nil
		},
	}
	engine := newAuthEngine(stub, cookieTokenConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: constants.RefreshCookieName, Value: "cookie.refresh.token"})
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "cookie.refresh.token", captured.RefreshToken)

	// The new refresh token travels only in the cookie, never the body.
	assert.NotContains(t, w.Body.String(), `"refresh_token"`)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, constants.RefreshCookieName, cookies[0].Name)
	assert.Equal(t, "header.payload2.sig", cookies[0].Value)
	assert.Equal(t, constants.RefreshCookiePath, cookies[0].Path)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	assert.Greater(t, cookies[0].MaxAge, 0)
}

func TestLogout_HarvestsHeaderAndCookie(t *testing.T) {
	var captured *dto.LogoutRequest
	stub := &stubAuthService{
		logout: func(ctx context.Context, req *dto.LogoutRequest) (*dto.LogoutResponse, error) {
			captured = req
			return &dto.LogoutResponse{Revoked: 2}, nil
		},
	}
	engine := newAuthEngine(stub, cookieTokenConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer header.access.sig")
	req.AddCookie(&http.Cookie{Name: constants.RefreshCookieName, Value: "cookie.refresh.token"})
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "header.access.sig", captured.AccessToken)
	assert.Equal(t, "cookie.refresh.token", captured.RefreshToken)
	assert.Contains(t, w.Body.String(), `"revoked":2`)

	// The refresh cookie is expired on the way out.
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestRevoke_MapsRevokedToForbidden(t *testing.T) {
	stub := &stubAuthService{
		revoke: func(ctx context.Context, req *dto.RevokeRequest) error {
			return errors.ErrTokenRevoked("jti-1")
		},
	}
	engine := newAuthEngine(stub, bearerTokenConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/revoke",
		strings.NewReader(`{"token":"header.payload.sig"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"token_revoked"`)
}

func TestIntrospect_InactiveBodyIsBare(t *testing.T) {
	stub := &stubAuthService{
		introspect: func(ctx context.Context, req *dto.IntrospectRequest) (*models.TokenIntrospection, error) {
			return models.InactiveIntrospection(), nil
		},
	}
	engine := newAuthEngine(stub, bearerTokenConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/introspect",
		strings.NewReader(`{"token":"whatever.this.is"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"active":false}`, w.Body.String())
}
