package api

import (
	"github.com/gin-gonic/gin"

	"github.com/persistorai/depthcue/internal/httputil"
)

// Error codes carried in the ErrorBody of every failed request.
const (
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeConflict        = "conflict"
	ErrCodeInternalError   = "internal_error"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeValidationError = "validation_error"
	ErrCodeUnprocessable   = "unprocessable"
	ErrCodeUnavailable     = "unavailable"
)

func respondError(c *gin.Context, status int, code, message string) {
	httputil.RespondError(c, status, code, message)
}
