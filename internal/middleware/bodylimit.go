package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/depthcue/internal/httputil"
)

// MaxBodySize caps request bodies at maxBytes. A declared Content-Length
// over the cap is refused before the handler runs; chunked bodies fail on
// read once they pass it.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			httputil.RespondError(c, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
			return
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
