package e2e

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/serverlite"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
)

const (
	seedEmail    = "alex@crag.example"
	seedPassword = "chalk-and-slopers-9"
)

func newStack(t *testing.T, opts serverlite.Options) *serverlite.Server {
	t.Helper()
	s, err := serverlite.New(opts)
	require.NoError(t, err)
	return s
}

func seedAccount(t *testing.T, s *serverlite.Server) *models.User {
	t.Helper()
	user, err := s.SeedUser(seedEmail, seedPassword, constants.TierFree)
	require.NoError(t, err)
	return user
}

type reqOption func(*http.Request)

func withBearer(token string) reqOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCookie(c *http.Cookie) reqOption {
	return func(r *http.Request) { r.AddCookie(c) }
}

func withClientIP(ip string) reqOption {
	return func(r *http.Request) { r.Header.Set("X-Forwarded-For", ip) }
}

// do runs one request through the full middleware and handler chain.
func do(t *testing.T, h http.Handler, method, path string, body interface{}, opts ...reqOption) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.10:40000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), into),
		"body was: %s", w.Body.String())
}

type tokenPair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	Scope            string `json:"scope"`
}

func login(t *testing.T, s *serverlite.Server, email, password string, opts ...reqOption) tokenPair {
	t.Helper()
	w := do(t, s.Handler, http.MethodPost, "/v1/auth/login",
		map[string]string{"identifier": email, "secret": password}, opts...)
	require.Equal(t, http.StatusOK, w.Code, "login failed: %s", w.Body.String())

	var pair tokenPair
	decode(t, w, &pair)
	return pair
}

// jwtKID reads the kid from a compact JWT header without verifying it.
func jwtKID(t *testing.T, token string) string {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)

	var header struct {
		KID string `json:"kid"`
	}
	require.NoError(t, json.Unmarshal(raw, &header))
	return header.KID
}
