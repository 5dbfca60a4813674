package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/interfaces/http/middleware"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ================================================================================
// Request Context
// ================================================================================

func TestRequestContext_HonorsInboundID(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.RequestContext())

	var gotID, gotIP interface{}
	engine.GET("/probe", func(c *gin.Context) {
		gotID = c.Request.Context().Value(constants.ContextKeyRequestID)
		gotIP = c.Request.Context().Value(constants.ContextKeyClientIP)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(middleware.HeaderRequestID, "edge-proxy-7741")
	req.RemoteAddr = "203.0.113.9:51423"
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, "edge-proxy-7741", gotID)
	assert.Equal(t, "203.0.113.9", gotIP)
	assert.Equal(t, "edge-proxy-7741", w.Header().Get(middleware.HeaderRequestID))
}

func TestRequestContext_MintsIDWhenAbsent(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.RequestContext())
	engine.GET("/probe", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))

	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

// ================================================================================
// Bearer Extraction and Verification
// ================================================================================

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"well formed", "Bearer abc.def.ghi", "abc.def.ghi"},
		{"scheme is case insensitive", "bearer abc.def.ghi", "abc.def.ghi"},
		{"wrong scheme", "Basic abc.def.ghi", ""},
		{"scheme only", "Bearer", ""},
		{"empty header", "", ""},
		{"surrounding space trimmed", "Bearer   abc.def.ghi  ", "abc.def.ghi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, middleware.ExtractBearer(tt.header))
		})
	}
}

type stubVerifier struct {
	data *models.TokenData
	err  error

	gotToken string
	gotType  constants.TokenType
}

func (s *stubVerifier) VerifyToken(ctx context.Context, tokenString string, expectedType constants.TokenType) (*models.TokenData, error) {
	s.gotToken = tokenString
	s.gotType = expectedType
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

func protectedEngine(verifier middleware.AccessVerifier) *gin.Engine {
	engine := gin.New()
	engine.GET("/protected",
		middleware.RequireAccessToken(verifier, logger.NewNoopLogger()),
		func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
	return engine
}

func TestRequireAccessToken_InjectsVerifiedClaims(t *testing.T) {
	verifier := &stubVerifier{data: &models.TokenData{
		JTI:       "jti-7001",
		SubjectID: "user-0001",
		TokenType: constants.TokenTypeAccess,
	}}

	var seen *models.TokenData
	engine := gin.New()
	engine.GET("/protected",
		middleware.RequireAccessToken(verifier, logger.NewNoopLogger()),
		func(c *gin.Context) {
			seen, _ = c.Request.Context().Value(constants.ContextKeyTokenData).(*models.TokenData)
			c.Status(http.StatusNoContent)
		})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "jti-7001", seen.JTI)
	assert.Equal(t, "abc.def.ghi", verifier.gotToken)
	assert.Equal(t, constants.TokenTypeAccess, verifier.gotType)
}

func TestRequireAccessToken_MissingHeader(t *testing.T) {
	verifier := &stubVerifier{data: &models.TokenData{}}
	engine := protectedEngine(verifier)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"token_malformed"`)
	assert.Empty(t, verifier.gotToken, "verifier must not run without a token")
}

func TestRequireAccessToken_MapsVerifierFailures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"expired", errors.ErrTokenExpired("access"), http.StatusUnauthorized, "token_expired"},
		{"revoked", errors.ErrTokenRevoked("jti-7001"), http.StatusForbidden, "token_revoked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := protectedEngine(&stubVerifier{err: tt.err})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer abc.def.ghi")
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}

// ================================================================================
// Recovery
// ================================================================================

func TestRecovery_ConvertsPanicToServerError(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.Recovery(logger.NewNoopLogger()))
	engine.GET("/boom", func(c *gin.Context) {
		panic("unreachable key state")
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"server_error"`)
	assert.NotContains(t, w.Body.String(), "unreachable key state")
}

// ================================================================================
// ETag
// ================================================================================

func TestETag_RoundTrip(t *testing.T) {
	engine := gin.New()
	engine.GET("/keys", middleware.ETag(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"keys": []string{"kid-0042"}})
	})

	first := httptest.NewRecorder()
	engine.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/keys", nil))

	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Contains(t, first.Header().Get("Cache-Control"), "max-age=300")
	assert.Contains(t, first.Body.String(), "kid-0042")

	// Replaying the tag answers 304 with no body.
	req := httptest.NewRequest(http.MethodGet, "/keys", nil)
	req.Header.Set("If-None-Match", etag)
	second := httptest.NewRecorder()
	engine.ServeHTTP(second, req)

	assert.Equal(t, http.StatusNotModified, second.Code)
	assert.Empty(t, second.Body.String())
}

func TestETag_StaleTagGetsFullBody(t *testing.T) {
	engine := gin.New()
	engine.GET("/keys", middleware.ETag(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"keys": []string{"kid-0043"}})
	})

	req := httptest.NewRequest(http.MethodGet, "/keys", nil)
	req.Header.Set("If-None-Match", `"0000000000000000"`)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kid-0043")
	assert.NotEmpty(t, w.Header().Get("ETag"))
}

func TestETag_SkipsErrorsAndNonGET(t *testing.T) {
	engine := gin.New()
	engine.GET("/missing", middleware.ETag(), func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})
	engine.POST("/keys", middleware.ETag(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get("ETag"))
	assert.Contains(t, w.Body.String(), "not_found")

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/keys", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("ETag"))
}
