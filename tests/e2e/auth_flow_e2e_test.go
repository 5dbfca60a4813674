package e2e

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/serverlite"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
)

// The canonical session lifecycle across the real HTTP surface: login,
// authenticated echo, rotation of the refresh token, rejection of the
// burned token, logout, rejection of the revoked access token.
func TestSessionLifecycle(t *testing.T) {
	s := newStack(t, serverlite.Options{})
	user := seedAccount(t, s)

	pair := login(t, s, seedEmail, seedPassword)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Greater(t, pair.RefreshExpiresIn, pair.ExpiresIn)

	// The access token opens the session endpoint.
	w := do(t, s.Handler, http.MethodGet, "/v1/auth/session", nil, withBearer(pair.AccessToken))
	require.Equal(t, http.StatusOK, w.Code)
	var session struct {
		Sub       string   `json:"sub"`
		TokenType string   `json:"token_type"`
		Scopes    []string `json:"scopes"`
	}
	decode(t, w, &session)
	assert.Equal(t, user.ID, session.Sub)
	assert.Equal(t, "access", session.TokenType)
	assert.Contains(t, session.Scopes, "user")

	// Redeeming the refresh token burns it and yields a fresh pair.
	w = do(t, s.Handler, http.MethodPost, "/v1/auth/refresh",
		map[string]string{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	var next tokenPair
	decode(t, w, &next)
	assert.NotEqual(t, pair.AccessToken, next.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// Replaying the burned refresh token is refused.
	w = do(t, s.Handler, http.MethodPost, "/v1/auth/refresh",
		map[string]string{"refresh_token": pair.RefreshToken})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"token_revoked"`)

	// Logout revokes the current pair.
	w = do(t, s.Handler, http.MethodPost, "/v1/auth/logout", map[string]string{
		"access_token":  next.AccessToken,
		"refresh_token": next.RefreshToken,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"revoked":2`)

	w = do(t, s.Handler, http.MethodGet, "/v1/auth/session", nil, withBearer(next.AccessToken))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogin_FailuresAreUniform(t *testing.T) {
	s := newStack(t, serverlite.Options{})
	seedAccount(t, s)

	wrongSecret := do(t, s.Handler, http.MethodPost, "/v1/auth/login",
		map[string]string{"identifier": seedEmail, "secret": "wrong"})
	unknownUser := do(t, s.Handler, http.MethodPost, "/v1/auth/login",
		map[string]string{"identifier": "nobody@crag.example", "secret": "wrong"})

	assert.Equal(t, http.StatusUnauthorized, wrongSecret.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	// Identical bodies: the response never says which half failed.
	assert.JSONEq(t, wrongSecret.Body.String(), unknownUser.Body.String())
}

func TestIntrospect_TracksTokenLife(t *testing.T) {
	s := newStack(t, serverlite.Options{})
	user := seedAccount(t, s)
	pair := login(t, s, seedEmail, seedPassword)

	w := do(t, s.Handler, http.MethodPost, "/v1/auth/introspect",
		map[string]string{"token": pair.AccessToken})
	require.Equal(t, http.StatusOK, w.Code)
	var active struct {
		Active bool   `json:"active"`
		Sub    string `json:"sub"`
	}
	decode(t, w, &active)
	assert.True(t, active.Active)
	assert.Equal(t, user.ID, active.Sub)

	// After logout the same token introspects inactive, with no detail.
	do(t, s.Handler, http.MethodPost, "/v1/auth/logout",
		map[string]string{"access_token": pair.AccessToken})
	w = do(t, s.Handler, http.MethodPost, "/v1/auth/introspect",
		map[string]string{"token": pair.AccessToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"active":false}`, w.Body.String())
}

func TestRevoke_KillsRefreshToken(t *testing.T) {
	s := newStack(t, serverlite.Options{})
	seedAccount(t, s)
	pair := login(t, s, seedEmail, seedPassword)

	w := do(t, s.Handler, http.MethodPost, "/v1/auth/revoke", map[string]string{
		"token":  pair.RefreshToken,
		"reason": "support_hold",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s.Handler, http.MethodPost, "/v1/auth/refresh",
		map[string]string{"refresh_token": pair.RefreshToken})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The revocation left an audit trail with the operator's reason.
	event := s.Audit.LastOfType(constants.EventTypeTokenRevoke)
	require.NotNil(t, event)
}

func TestOperationalEndpoints(t *testing.T) {
	s := newStack(t, serverlite.Options{})

	w := do(t, s.Handler, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s.Handler, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s.Handler, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "climbauth_")

	w = do(t, s.Handler, http.MethodGet, "/no/such/route", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}
