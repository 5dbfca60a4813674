package models

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
)

// Claims represents the JWT claim set issued by the climbauth service.
// It embeds the standard jwt.RegisteredClaims and adds the token type and
// the scopes granted by the subject's account tier.
// Claims 代表 climbauth 服务颁发的 JWT 声明集。
// 它嵌入了标准的 jwt.RegisteredClaims，并添加了令牌类型和
// 由主体账户等级授予的范围。
type Claims struct {
	jwt.RegisteredClaims

	// TokenType distinguishes access, refresh and reset tokens. A token of
	// one type is never accepted where another type is expected.
	// TokenType 区分 access、refresh 和 reset 令牌。
	// 一种类型的令牌绝不会在期望另一种类型的场合被接受。
	TokenType constants.TokenType `json:"type"`

	// Scopes lists the permissions granted by this token.
	// Scopes 列出此令牌授予的权限。
	Scopes []string `json:"scopes"`
}

// Type returns the token type carried by the claims
func (c *Claims) Type() constants.TokenType {
	return c.TokenType
}

// HasScope reports whether the claims grant a specific scope
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
