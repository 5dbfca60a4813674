// Package authverify verifies climbauth-issued access tokens inside
// resource servers, offline against the service's published JWKS.
//
// The verifier caches the key set in memory and revalidates it with the
// ETag the JWKS endpoint returns, so steady-state verification costs no
// network round trips. A token carrying an unknown kid triggers one
// refresh before the token is rejected, which is how resource servers
// pick up a freshly rotated key without restarting.
//
//	verifier := authverify.New("https://auth.example.com/.well-known/jwks.json")
//	claims, err := verifier.Verify(ctx, bearerToken)
//
// Package authverify 在资源服务器内离线验证 climbauth 颁发的访问令牌，
// 依据服务发布的 JWKS。密钥集缓存在内存中并通过 ETag 重新验证；
// 携带未知 kid 的令牌在被拒绝前会触发一次刷新，以便获取新轮换的密钥。
package authverify

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrUnknownKeyID means the token's kid is absent from the JWKS even
	// after a refresh. The token was signed by a key this service does not
	// publish, or by one already past its grace period.
	ErrUnknownKeyID = errors.New("authverify: signing key not in JWKS")

	// ErrEmptyKeySet means the JWKS endpoint answered with no usable keys.
	ErrEmptyKeySet = errors.New("authverify: JWKS contains no usable keys")

	// ErrNotAccessToken means the token verified but is not an access
	// token. Refresh and reset tokens never authorize resource access.
	ErrNotAccessToken = errors.New("authverify: token is not an access token")

	// ErrInvalidToken wraps structural and signature failures.
	ErrInvalidToken = errors.New("authverify: invalid token")
)

// Claims is the climbauth access token claim set as it appears on the
// wire: the registered claims plus the token type and granted scopes.
type Claims struct {
	jwt.RegisteredClaims

	// TokenType is "access" for tokens this package accepts.
	TokenType string `json:"type"`

	// Scopes lists the permissions granted by this token.
	Scopes []string `json:"scopes"`
}

// HasScope reports whether the claims grant a specific scope.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Option adjusts a Verifier at construction.
type Option func(*Verifier)

// WithHTTPClient replaces the default 10s-timeout client used for JWKS
// fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(v *Verifier) { v.client = client }
}

// WithLeeway tolerates the given clock skew on time-based claims.
func WithLeeway(d time.Duration) Option {
	return func(v *Verifier) { v.leeway = d }
}

// WithIssuer additionally requires the iss claim to match.
func WithIssuer(issuer string) Option {
	return func(v *Verifier) { v.issuer = issuer }
}

// Verifier validates access tokens against a cached JWKS. It is safe for
// concurrent use by multiple goroutines.
type Verifier struct {
	jwksURL string
	client  *http.Client
	leeway  time.Duration
	issuer  string
	parser  *jwt.Parser

	mu   sync.RWMutex
	keys map[string]*rsa.PublicKey
	etag string
}

// New creates a Verifier for the JWKS document at jwksURL. No network
// traffic happens until the first Verify or Refresh call.
func New(jwksURL string, opts ...Option) *Verifier {
	v := &Verifier{
		jwksURL: jwksURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		keys:    make(map[string]*rsa.PublicKey),
	}
	for _, opt := range opts {
		opt(v)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	v.parser = jwt.NewParser(parserOpts...)

	return v
}

// Refresh fetches the JWKS and replaces the cached key set. A 304 answer
// to the cached ETag leaves the cache untouched. Callers normally never
// need this; Verify refreshes on its own when it meets an unknown kid.
func (v *Verifier) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return err
	}

	v.mu.RLock()
	if v.etag != "" {
		req.Header.Set("If-None-Match", v.etag)
	}
	v.mu.RUnlock()

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("authverify: fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("authverify: JWKS endpoint answered %d", resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("authverify: decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, key := range set.Keys {
		if key.Algorithm != "" && key.Algorithm != jwt.SigningMethodRS256.Alg() {
			continue
		}
		if pub, ok := key.Key.(*rsa.PublicKey); ok && key.KeyID != "" {
			keys[key.KeyID] = pub
		}
	}
	if len(keys) == 0 {
		return ErrEmptyKeySet
	}

	v.mu.Lock()
	v.keys = keys
	v.etag = resp.Header.Get("ETag")
	v.mu.Unlock()

	return nil
}

// Verify checks the token's signature against the published key for its
// kid, the time-based claims, and that the token is an access token. The
// claim set is returned on success.
//
// A kid missing from the cache triggers exactly one JWKS refresh before
// the token is rejected, so tokens signed by a freshly rotated key verify
// on first sight.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	kid, err := headerKID(tokenString)
	if err != nil {
		return nil, err
	}

	key, ok := v.lookup(kid)
	if !ok {
		if err := v.Refresh(ctx); err != nil {
			return nil, err
		}
		if key, ok = v.lookup(kid); !ok {
			return nil, ErrUnknownKeyID
		}
	}

	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != "access" {
		return nil, ErrNotAccessToken
	}
	return claims, nil
}

func (v *Verifier) lookup(kid string) (*rsa.PublicKey, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	key, ok := v.keys[kid]
	return key, ok
}

// headerKID reads the kid from the token header without verifying the
// signature. Verification happens afterwards against the key the kid
// names.
func headerKID(tokenString string) (string, error) {
	unverified, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	kid, ok := unverified.Header["kid"].(string)
	if !ok || kid == "" {
		return "", fmt.Errorf("%w: missing kid header", ErrInvalidToken)
	}
	return kid, nil
}
