// Package httputil holds the error envelope shared by every HTTP surface of
// the collection service.
package httputil

import (
	"github.com/gin-gonic/gin"

	"github.com/persistorai/depthcue/internal/metrics"
)

// RequestIDKey is the gin context key the request ID middleware writes.
const RequestIDKey = "request_id"

// ErrorBody is the JSON body of every non-2xx response.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// RequestID returns the request's server-side ID, or "" outside the middleware.
func RequestID(c *gin.Context) string {
	if rid, ok := c.Get(RequestIDKey); ok {
		if s, ok := rid.(string); ok {
			return s
		}
	}

	return ""
}

// RespondError counts the error by code, writes the envelope and aborts.
func RespondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()

	c.AbortWithStatusJSON(status, ErrorBody{
		Code:      code,
		Message:   message,
		RequestID: RequestID(c),
	})
}
