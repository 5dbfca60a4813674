package middleware

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// bodyCaptureWriter buffers the response body so its hash can be computed
// before anything is sent to the client.
type bodyCaptureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

// ETag adds conditional-request support to GET endpoints whose body is a
// pure function of server state, such as the JWKS document: the tag is a
// hash of the rendered body, so it changes exactly when the key set does.
// A matching If-None-Match answers 304 with no body.
func ETag() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		capture := &bodyCaptureWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = capture
		c.Next()
		c.Writer = capture.ResponseWriter

		body := capture.body.Bytes()
		if c.Writer.Status() != http.StatusOK || len(body) == 0 {
			c.Writer.Write(body)
			return
		}

		etag := fmt.Sprintf(`"%x"`, sha256.Sum256(body))
		if c.GetHeader("If-None-Match") == etag {
			c.Writer.WriteHeader(http.StatusNotModified)
			return
		}

		c.Header("ETag", etag)
		c.Header("Cache-Control", "public, max-age=300, must-revalidate")
		c.Writer.Write(body)
	}
}
