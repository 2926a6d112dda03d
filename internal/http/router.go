// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers for the two services living behind the
// gateway. It centralizes cross-cutting concerns: tracing, correlation IDs,
// logging, panic recovery, metrics, latency headers, CORS, and security
// headers.
//
// Design goals:
//   - Observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/taskgate/go-task-gateway/internal/cache"
	"github.com/taskgate/go-task-gateway/internal/config"
	"github.com/taskgate/go-task-gateway/internal/http/handlers"
	"github.com/taskgate/go-task-gateway/internal/http/middleware"
	"github.com/taskgate/go-task-gateway/internal/services"
)

// useBase attaches the middleware stack shared by both services.
//
// Order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: propagate the gateway's correlation id
//  3. Logger: structured access logs
//  4. Recovery: panics to JSON 500 after the logger
//  5. Body size limiter (1 MiB)
//  6. ResponseTime: latency header on every response
//  7. Metrics and the /metrics endpoint
//  8. gzip, CORS, security headers
func useBase(r *gin.Engine, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(middleware.ResponseTime())
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(gzip.Gzip(gzip.DefaultCompression))
	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization",
			middleware.HeaderIdempotencyKey, middleware.HeaderRequestID,
			middleware.HeaderUserSub, middleware.HeaderUserRole},
		ExposeHeaders: []string{middleware.HeaderRequestID, middleware.HeaderResponseTime},
		MaxAge:        12 * time.Hour,
	}
	// An empty CORS_ALLOWED_ORIGINS keeps the permissive default.
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
}

// RegisterTasksRoutes mounts the tasks service API.
//
// Both endpoints sit behind Identity(): the service trusts the gateway's
// X-User-Sub/X-User-Role headers and performs no token verification of its
// own. The create route additionally requires a valid Idempotency-Key.
func RegisterTasksRoutes(r *gin.Engine, db *gorm.DB, store cache.Store, cfg config.Config) {
	useBase(r, cfg)

	svc := &services.TaskService{
		DB:       db,
		Cache:    store,
		CacheTTL: cfg.Tasks.CacheTTL,
	}
	h := handlers.NewTaskHandlers(svc, svc)

	tasks := r.Group("/tasks", middleware.Identity())
	{
		tasks.POST("", middleware.RequireIdempotencyKey(), h.CreateTask)
		tasks.GET("", h.ListTasks)
	}
}

// RegisterAuthRoutes mounts the auth service API.
func RegisterAuthRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	useBase(r, cfg)

	svc := &services.AuthService{
		DB:       db,
		Secret:   cfg.JWT.Secret,
		Audience: cfg.JWT.Audience,
		Issuer:   cfg.JWT.Issuer,
		TokenTTL: cfg.JWT.TokenTTL,
		Throttle: services.NewLoginThrottle(cfg.Auth.LoginRPS, cfg.Auth.LoginBurst),
	}
	h := handlers.NewAuthHandlers(svc)

	r.POST("/auth/login", h.Login)
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader. Oversized bodies error on read downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
