// Package dto defines the request and response payloads exchanged between
// the transport adapters and the application services.
package dto

import (
	"strings"
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
)

// LoginRequest 登录请求 DTO
// ClientKey and UserAgent are transport-derived: the adapter fills them from
// the connection, they are never read from the caller's payload.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required,email"`
	Secret     string `json:"secret" validate:"required,min=1"`
	ClientKey  string `json:"-" validate:"required"`
	UserAgent  string `json:"-"`
}

// RefreshRequest 令牌刷新请求 DTO
// In cookie mode the adapter resolves the token from the refresh cookie
// before calling the service; the service only ever sees the token string.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,min=1"`
}

// LogoutRequest 登出请求 DTO
// Both tokens are optional; logout succeeds regardless of what is present.
type LogoutRequest struct {
	AccessToken  string `json:"access_token" validate:"omitempty"`
	RefreshToken string `json:"refresh_token" validate:"omitempty"`
}

// RevokeRequest 令牌吊销请求 DTO（管理路径）
type RevokeRequest struct {
	Token         string `json:"token" validate:"required,min=1"`
	TokenTypeHint string `json:"token_type_hint" validate:"omitempty,token_type"`
	Reason        string `json:"reason" validate:"omitempty,max=256"`
}

// IntrospectRequest 令牌内省请求 DTO
type IntrospectRequest struct {
	Token         string `json:"token" validate:"required,min=1"`
	TokenTypeHint string `json:"token_type_hint" validate:"omitempty,token_type"`
}

// PasswordResetRequest 密码重置请求 DTO
type PasswordResetRequest struct {
	Identifier string `json:"identifier" validate:"required,email"`
}

// PasswordResetCompleteRequest 密码重置完成请求 DTO
// The secret bound is the bcrypt input limit.
type PasswordResetCompleteRequest struct {
	ResetToken string `json:"reset_token" validate:"required,min=1"`
	NewSecret  string `json:"new_secret" validate:"required,min=8,max=72"`
}

// TokenPairResponse 令牌对响应 DTO
type TokenPairResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in,omitempty"`
	Scope            string `json:"scope"`
	IssuedAt         int64  `json:"issued_at"`
}

// NewTokenPairResponse builds the external shape of a freshly issued pair.
// Lifetimes are rendered as remaining seconds so clients need no clock
// agreement with the server.
func NewTokenPairResponse(pair *models.TokenPair, scopes []string) *TokenPairResponse {
	now := time.Now()
	return &TokenPairResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		TokenType:        constants.BearerScheme,
		ExpiresIn:        int64(pair.AccessExpiresAt.Sub(now).Seconds()),
		RefreshExpiresIn: int64(pair.RefreshExpiresAt.Sub(now).Seconds()),
		Scope:            strings.Join(scopes, " "),
		IssuedAt:         now.Unix(),
	}
}

// ClearRefreshToken blanks the refresh fields for cookie-mode responses,
// where the token travels in the Set-Cookie header instead of the body.
func (r *TokenPairResponse) ClearRefreshToken() *TokenPairResponse {
	r.RefreshToken = ""
	r.RefreshExpiresIn = 0
	return r
}

// SessionResponse 会话回显响应 DTO
type SessionResponse struct {
	Subject   string   `json:"sub"`
	TokenType string   `json:"token_type"`
	Scopes    []string `json:"scopes"`
	IssuedAt  int64    `json:"iat"`
	ExpiresAt int64    `json:"exp"`
	JTI       string   `json:"jti"`
}

// NewSessionResponse echoes verified token data back to its holder.
func NewSessionResponse(data *models.TokenData) *SessionResponse {
	return &SessionResponse{
		Subject:   data.SubjectID,
		TokenType: string(data.TokenType),
		Scopes:    data.Scopes,
		IssuedAt:  data.IssuedAt.Unix(),
		ExpiresAt: data.ExpiresAt.Unix(),
		JTI:       data.JTI,
	}
}

// AcceptedResponse is the uniform body for operations that deliberately
// reveal nothing about their outcome.
type AcceptedResponse struct {
	Message string `json:"message"`
}

// NewResetAcceptedResponse is the fixed response for password reset
// requests, identical whether or not the identifier exists.
func NewResetAcceptedResponse() *AcceptedResponse {
	return &AcceptedResponse{Message: "If that account exists, a reset message is on its way."}
}

// LogoutResponse 登出响应 DTO
type LogoutResponse struct {
	Revoked int `json:"revoked"`
}
