package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/depthcue/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// limitedRouter serves /test behind a limiter that stops with the test.
func limitedRouter(t *testing.T, perSecond float64, burst int) *gin.Engine {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := gin.New()
	r.Use(middleware.RequestID(testLogger()))
	r.Use(middleware.NewRateLimiter(ctx, perSecond, burst).Handler())
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	return r
}

func hit(r http.Handler, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.RemoteAddr = ip + ":1000"
	r.ServeHTTP(w, req)

	return w
}

func TestRateLimiter_Burst(t *testing.T) {
	tests := []struct {
		name  string
		burst int
		want  []int
	}{
		{"single request", 5, []int{200}},
		{"burst then reject", 2, []int{200, 200, 429}},
		{"burst of one", 1, []int{200, 429, 429}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := limitedRouter(t, 0.01, tt.burst)

			for i, want := range tt.want {
				if got := hit(r, "1.2.3.4").Code; got != want {
					t.Fatalf("request %d: got %d, want %d", i, got, want)
				}
			}
		})
	}
}

func TestRateLimiter_IndependentBuckets(t *testing.T) {
	r := limitedRouter(t, 0.01, 1)

	hit(r, "1.1.1.1")

	if w := hit(r, "2.2.2.2"); w.Code != http.StatusOK {
		t.Fatalf("a second participant laptop was limited: %d", w.Code)
	}
}

func TestRateLimiter_TokensRefillOverTime(t *testing.T) {
	r := limitedRouter(t, 1_000_000, 2)

	hit(r, "5.5.5.5")
	hit(r, "5.5.5.5")
	time.Sleep(time.Millisecond)

	if w := hit(r, "5.5.5.5"); w.Code != http.StatusOK {
		t.Fatalf("expected tokens to refill, got %d", w.Code)
	}
}

func TestRateLimiter_RejectedResponseShape(t *testing.T) {
	r := limitedRouter(t, 0.001, 1)

	hit(r, "6.6.6.6")
	w := hit(r, "6.6.6.6")

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}

	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}

	if body["code"] != "rate_limited" || body["request_id"] == "" {
		t.Errorf("body = %v", body)
	}
}
