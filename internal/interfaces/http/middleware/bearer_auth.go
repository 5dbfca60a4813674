package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/models"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// AccessVerifier is the slice of the token service the bearer middleware
// needs.
type AccessVerifier interface {
	VerifyToken(ctx context.Context, tokenString string, expectedType constants.TokenType) (*models.TokenData, error)
}

// ExtractBearer returns the token from an Authorization header, or empty
// when the header is absent or not a bearer credential.
func ExtractBearer(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], constants.BearerScheme) {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAccessToken verifies the bearer access token and places the
// verified claims in the request context for downstream handlers. The
// response for any failure is the generic unauthenticated body; the
// specific reason stays in the server log.
func RequireAccessToken(verifier AccessVerifier, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ExtractBearer(c.GetHeader("Authorization"))
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				errors.ToErrorResponse(errors.ErrTokenMalformed("bearer token required")))
			return
		}

		data, err := verifier.VerifyToken(c.Request.Context(), tokenString, constants.TokenTypeAccess)
		if err != nil {
			log.Debug(c.Request.Context(), "Bearer token rejected", logger.ErrorField(err))
			status := http.StatusUnauthorized
			if authErr, ok := errors.AsAuthError(err); ok {
				status = authErr.HTTPStatus()
			}
			c.AbortWithStatusJSON(status, errors.ToErrorResponse(err))
			return
		}

		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyTokenData, data)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
