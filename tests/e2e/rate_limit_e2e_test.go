package e2e

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/serverlite"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
)

func badLogin(t *testing.T, s *serverlite.Server, opts ...reqOption) int {
	t.Helper()
	w := do(t, s.Handler, http.MethodPost, "/v1/auth/login",
		map[string]string{"identifier": seedEmail, "secret": "not-the-password"}, opts...)
	return w.Code
}

func TestLogin_ThresholdTriggersRateLimit(t *testing.T) {
	s := newStack(t, serverlite.Options{
		RateLimitThreshold: 3,
		RateLimitWindow:    30 * time.Second,
	})
	seedAccount(t, s)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, badLogin(t, s), "attempt %d", i+1)
	}

	// The fourth attempt inside the window is cut off before the
	// credential is even examined.
	w := do(t, s.Handler, http.MethodPost, "/v1/auth/login",
		map[string]string{"identifier": seedEmail, "secret": seedPassword})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"rate_limited"`)

	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err, "Retry-After header must be numeric")
	assert.GreaterOrEqual(t, retryAfter, 1)
	assert.LessOrEqual(t, retryAfter, 30)

	event := s.Audit.LastOfType(constants.EventTypeRateLimitExceeded)
	require.NotNil(t, event)
}

func TestLogin_RateLimitIsPerClient(t *testing.T) {
	s := newStack(t, serverlite.Options{
		RateLimitThreshold: 2,
		RateLimitWindow:    30 * time.Second,
	})
	seedAccount(t, s)

	// Exhaust one client's budget.
	for i := 0; i < 2; i++ {
		badLogin(t, s, withClientIP("198.51.100.1"))
	}
	w := do(t, s.Handler, http.MethodPost, "/v1/auth/login",
		map[string]string{"identifier": seedEmail, "secret": seedPassword},
		withClientIP("198.51.100.1"))
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	// A different client address still signs in.
	login(t, s, seedEmail, seedPassword, withClientIP("198.51.100.2"))
}

func TestLogin_SuccessClearsTheCounter(t *testing.T) {
	s := newStack(t, serverlite.Options{
		RateLimitThreshold: 3,
		RateLimitWindow:    30 * time.Second,
	})
	seedAccount(t, s)

	badLogin(t, s)
	badLogin(t, s)
	login(t, s, seedEmail, seedPassword)

	// The slate is clean after a success: three more misses fit in the
	// window before the limiter bites again.
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, badLogin(t, s), "attempt %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, badLogin(t, s))
}
