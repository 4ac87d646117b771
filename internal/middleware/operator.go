package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/depthcue/internal/httputil"
)

// OperatorKey is the gin context key set on requests that passed operator auth.
const OperatorKey = "operator"

// authTimingFloor is the minimum response time for rejected operator
// requests so valid and invalid tokens cannot be told apart by latency.
const authTimingFloor = 50 * time.Millisecond

func enforceTimingFloor(start time.Time) {
	if elapsed := time.Since(start); elapsed < authTimingFloor {
		time.Sleep(authTimingFloor - elapsed)
	}
}

// ExtractBearerToken extracts the token from the Authorization header.
func ExtractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}

	return strings.TrimPrefix(header, "Bearer ")
}

// OperatorAuth guards operator routes (result read-back, session list, live
// feed) with a shared bearer token. An empty token leaves the routes open,
// which config validation only allows on a loopback listener. Failed attempts
// are counted per client IP when guard is non-nil.
func OperatorAuth(token string, guard *LockoutGuard, log logrus.FieldLogger) gin.HandlerFunc {
	want := []byte(token)

	return func(c *gin.Context) {
		if token == "" {
			c.Set(OperatorKey, true)
			c.Next()

			return
		}

		ip := c.ClientIP()

		if guard != nil && guard.IsBlocked(ip) {
			httputil.RespondError(c, http.StatusTooManyRequests, "rate_limited", "too many failed authentication attempts")
			return
		}

		start := time.Now()

		got := ExtractBearerToken(c)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			Logger(c, log).WithFields(logrus.Fields{
				"client_ip": ip,
				"method":    c.Request.Method,
				"path":      c.Request.URL.Path,
			}).Warn("operator authentication failed")

			if guard != nil {
				guard.RecordFailure(ip)
			}

			enforceTimingFloor(start)
			httputil.RespondError(c, http.StatusUnauthorized, "unauthorized", "missing or invalid operator token")

			return
		}

		if guard != nil {
			guard.Reset(ip)
		}

		c.Set(OperatorKey, true)
		c.Next()
	}
}
