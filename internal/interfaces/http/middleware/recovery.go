package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// Recovery converts a handler panic into a generic server error response.
// The panic value is logged server-side and never reaches the client.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				log.Error(c.Request.Context(), "Panic recovered",
					fmt.Errorf("panic: %v", recovered),
					logger.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					errors.ToErrorResponse(errors.ErrServerError("request handler panicked")))
			}
		}()
		c.Next()
	}
}
