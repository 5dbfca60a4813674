// Package middleware provides the gin middleware chain for the HTTP
// adapter: request correlation, observability, panic recovery, bearer
// token verification and response caching.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
)

// HeaderRequestID is the inbound and outbound request correlation header.
const HeaderRequestID = "X-Request-ID"

// RequestContext stamps every request with a correlation id and the caller's
// network address, placing both in the request context where the logger and
// the audit trail pick them up. An inbound X-Request-ID is honored so ids
// survive proxy hops; otherwise a fresh one is minted.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, constants.ContextKeyRequestID, requestID)
		ctx = context.WithValue(ctx, constants.ContextKeyClientIP, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)

		c.Header(HeaderRequestID, requestID)
		c.Next()
	}
}
