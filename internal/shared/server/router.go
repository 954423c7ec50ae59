package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"report-backend/internal/reports"
	"report-backend/internal/services/health"
	"report-backend/internal/shared/config"
	"report-backend/internal/shared/metrics"
	"report-backend/internal/shared/server/middleware"
	"report-backend/internal/shared/server/respond"
	"report-backend/internal/shared/telemetry"
)

const (
	healthPath  = "/api/v1/health"
	metricsPath = "/metrics"
)

// RouterDeps holds handlers needed to build the router.
type RouterDeps struct {
	Config        config.Config
	ReportHandler *reports.Handler
	Health        *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	if len(cfg.APIKeys) == 0 && cfg.Env == "production" {
		telemetry.Warn("server.auth_disabled", map[string]any{"env": cfg.Env})
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.APIKeyAuth(cfg.APIKeys, healthPath, metricsPath),
		middleware.RateLimit(middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			Burst:             cfg.RateLimitBurst,
		})),
	)

	r.GET(metricsPath, metrics.Handler())
	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		status := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})
	if deps.ReportHandler != nil {
		deps.ReportHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
