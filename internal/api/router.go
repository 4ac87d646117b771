package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/depthcue/internal/dbpool"
	"github.com/persistorai/depthcue/internal/middleware"
	"github.com/persistorai/depthcue/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log           logrus.FieldLogger
	Pool          *dbpool.Pool
	Hub           *ws.Hub
	Results       ResultRepository
	Surveys       SurveyRepository
	Sessions      SessionRepository
	Plans         PlanSource
	Graphs        GraphSource
	CORSOrigins   []string
	Version       string
	OperatorToken string
	RateLimitRPS  float64
	RateBurst     int
	MaxBodyBytes  int64
}

// Router-level defaults used when RouterDeps leaves a limit at zero.
const (
	defaultMaxBodySize = 4 << 20 // 4 MB
	defaultRateLimit   = 20      // requests per second per IP
	defaultRateBurst   = 40      // token bucket burst size
)

func (d *RouterDeps) limits() (rps float64, burst int, body int64) {
	rps, burst, body = d.RateLimitRPS, d.RateBurst, d.MaxBodyBytes
	if rps <= 0 {
		rps = defaultRateLimit
	}
	if burst <= 0 {
		burst = defaultRateBurst
	}
	if body <= 0 {
		body = defaultMaxBodySize
	}

	return rps, burst, body
}

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	rps, burst, body := deps.limits()

	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(body))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.NewRateLimiter(ctx, rps, burst).Handler())
	r.Use(middleware.RequestMetrics())

	// Metrics endpoint (unauthenticated, like health).
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(deps.Pool, deps.Hub, log, deps.Version)
	results := NewResultHandler(deps.Results, deps.Surveys, deps.Sessions, log)
	experiment := NewExperimentHandler(deps.Plans, deps.Graphs, log)

	// Health and readiness.
	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	// Participant-facing endpoints. The experiment client has no credentials.
	api.POST("/trials", results.SaveTrial)
	api.POST("/surveys", results.SaveSurvey)
	api.POST("/complete", results.Complete)
	api.GET("/participants/:id/plan", experiment.Plan)
	api.GET("/graphs/*file", middleware.Cacheable(time.Hour), experiment.Graph)
	api.GET("/scene", experiment.Scene)

	// Operator endpoints.
	guard := middleware.NewLockoutGuard(ctx, log)
	operator := api.Group("", middleware.OperatorAuth(deps.OperatorToken, guard, log))
	operator.GET("/participants", results.Sessions)
	operator.GET("/participants/:id/results", results.Results)
	operator.GET("/ws", wsHandler(ctx, log, deps.Hub, deps.CORSOrigins))
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}
