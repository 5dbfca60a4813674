// Package handlers implements the gin handlers for the authentication
// endpoints, the JWKS document and the health probes.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/application/dto"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/application/service"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/config"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/interfaces/http/middleware"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// AuthHandler adapts the authentication application service to HTTP. It owns
// the refresh-token transport: in cookie mode refresh tokens travel only in
// an HttpOnly cookie scoped to the auth path and never appear in a body.
// AuthHandler 将认证应用服务适配到 HTTP。它负责刷新令牌的传输方式：
// cookie 模式下刷新令牌仅通过限定路径的 HttpOnly cookie 传输，绝不出现在响应体中。
type AuthHandler struct {
	auth   service.AuthAppService
	tokens config.TokenConfig
	logger logger.Logger
}

// NewAuthHandler creates the handler.
//
// Parameters:
//   - auth: authentication application service
//   - tokens: token transport configuration
//   - log: structured logger
//
// Returns:
//   - *AuthHandler: the assembled handler
func NewAuthHandler(auth service.AuthAppService, tokens config.TokenConfig, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		tokens: tokens,
		logger: log.WithComponent("auth_handler"),
	}
}

// WriteError renders any error as the minimal external body. Rate limited
// responses additionally carry a Retry-After header.
func WriteError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if authErr, ok := errors.AsAuthError(err); ok {
		status = authErr.HTTPStatus()
	}
	if retryAfter := errors.RetryAfterSeconds(err); retryAfter > 0 {
		c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
	}
	c.JSON(status, errors.ToErrorResponse(err))
}

// Login authenticates a credential pair and returns a fresh token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, errors.ErrInvalidRequest("request body is not valid JSON"))
		return
	}
	req.ClientKey = c.ClientIP()
	req.UserAgent = c.Request.UserAgent()

	resp, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		WriteError(c, err)
		return
	}
	h.deliverPair(c, resp)
}

// Refresh redeems a refresh token for a new pair. In cookie mode the token
// is read from the refresh cookie when the body carries none.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			WriteError(c, errors.ErrInvalidRequest("request body is not valid JSON"))
			return
		}
	}
	if h.cookieMode() && req.RefreshToken == "" {
		if cookie, err := c.Cookie(constants.RefreshCookieName); err == nil {
			req.RefreshToken = cookie
		}
	}

	resp, err := h.auth.Refresh(c.Request.Context(), &req)
	if err != nil {
		WriteError(c, err)
		return
	}
	h.deliverPair(c, resp)
}

// Logout best-effort revokes the caller's tokens. The access token may come
// from the body or the Authorization header, the refresh token from the body
// or the cookie. The cookie is cleared regardless of the outcome.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			WriteError(c, errors.ErrInvalidRequest("request body is not valid JSON"))
			return
		}
	}
	if req.AccessToken == "" {
		req.AccessToken = middleware.ExtractBearer(c.GetHeader("Authorization"))
	}
	if h.cookieMode() {
		if req.RefreshToken == "" {
			if cookie, err := c.Cookie(constants.RefreshCookieName); err == nil {
				req.RefreshToken = cookie
			}
		}
		h.clearRefreshCookie(c)
	}

	resp, err := h.auth.Logout(c.Request.Context(), &req)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Revoke explicitly revokes a presented token after verifying it.
func (h *AuthHandler) Revoke(c *gin.Context) {
	var req dto.RevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, errors.ErrInvalidRequest("request body is not valid JSON"))
		return
	}

	if err := h.auth.Revoke(c.Request.Context(), &req); err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

// Introspect reports whether a token is active. The response for any
// invalid token is {"active": false} with no further detail.
func (h *AuthHandler) Introspect(c *gin.Context) {
	var req dto.IntrospectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, errors.ErrInvalidRequest("request body is not valid JSON"))
		return
	}

	info, err := h.auth.Introspect(c.Request.Context(), &req)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// RequestPasswordReset accepts a reset request. The response is identical
// whether or not the identifier names an account.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req dto.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, errors.ErrInvalidRequest("request body is not valid JSON"))
		return
	}

	resp, err := h.auth.RequestPasswordReset(c.Request.Context(), &req)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

// ResetPassword completes a reset with a single-use reset token.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.PasswordResetCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, errors.ErrInvalidRequest("request body is not valid JSON"))
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), &req); err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Session echoes the verified claims of the caller's access token. The
// bearer middleware has already verified the token and stashed its data.
func (h *AuthHandler) Session(c *gin.Context) {
	data, ok := c.Request.Context().Value(constants.ContextKeyTokenData).(*models.TokenData)
	if !ok {
		WriteError(c, errors.ErrServerError("verified token data missing from context"))
		return
	}
	c.JSON(http.StatusOK, dto.NewSessionResponse(data))
}

func (h *AuthHandler) cookieMode() bool {
	return h.tokens.RefreshTransport == string(constants.RefreshTransportCookie)
}

// deliverPair sends a token pair, moving the refresh token into the cookie
// in cookie mode so it never reaches the response body.
func (h *AuthHandler) deliverPair(c *gin.Context, resp *dto.TokenPairResponse) {
	if h.cookieMode() {
		h.setRefreshCookie(c, resp.RefreshToken, int(h.tokens.RefreshTTL().Seconds()))
		resp.ClearRefreshToken()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(constants.RefreshCookieName, token, maxAge,
		constants.RefreshCookiePath, h.tokens.CookieDomain, true, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(constants.RefreshCookieName, "", -1,
		constants.RefreshCookiePath, h.tokens.CookieDomain, true, true)
}
