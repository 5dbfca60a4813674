package utils

import (
	"github.com/google/uuid"
)

// MaskToken truncates a token for safe inclusion in logs and audit metadata.
// Only a prefix survives; the signature segment never appears.
func MaskToken(token string) string {
	if len(token) <= 12 {
		return "***"
	}
	return token[:12] + "***"
}

// NewJTI generates a unique token identifier
func NewJTI() string {
	return uuid.NewString()
}

// NewKeyID generates a unique signing key identifier
func NewKeyID() string {
	return uuid.NewString()
}
