// Package gateway implements the edge tier of the system.
//
// This file wires the gateway pipeline onto a Gin engine. Every request moves
// through fixed gates in a fixed order — admission (rate limit), then
// authentication where the target requires it, then forwarding — with an
// early exit at any gate. Rate limiting always runs before the token check so
// abusive unauthenticated traffic cannot bypass throttling.
package gateway

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/taskgate/go-task-gateway/internal/config"
	"github.com/taskgate/go-task-gateway/internal/http/handlers"
	"github.com/taskgate/go-task-gateway/internal/http/middleware"
)

// RegisterRoutes attaches the gateway middleware and proxy routes to r.
//
// Middleware order:
//  1. OpenTelemetry tracing
//  2. RequestID (correlation id, generated or propagated)
//  3. Logger (structured access logs)
//  4. Recovery (panics to JSON 500)
//  5. ResponseTime (X-Response-Time on every response)
//  6. Metrics and the /metrics endpoint
//  7. CORS and security headers
//
// Proxy routes:
//   - ANY /auth/*path  → auth service, no token required
//   - ANY /tasks/*path → tasks service, bearer token required
func RegisterRoutes(r *gin.Engine, cfg config.Config) {
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.ResponseTime())
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization",
			middleware.HeaderIdempotencyKey, middleware.HeaderRequestID},
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

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	limiter := NewFixedWindow(cfg.Gateway.RateLimit, cfg.Gateway.RateWindow)
	verifier := &TokenVerifier{
		Secret:   cfg.JWT.Secret,
		Audience: cfg.JWT.Audience,
		Issuer:   cfg.JWT.Issuer,
	}
	fwd := NewForwarder(cfg.Gateway.UpstreamTimeout)

	rate := rateLimit(limiter)
	r.Any("/auth/*path", rate, func(c *gin.Context) {
		fwd.Proxy(c, cfg.Gateway.AuthBaseURL, nil)
	})
	r.Any("/tasks/*path", rate, authenticate(verifier), func(c *gin.Context) {
		fwd.Proxy(c, cfg.Gateway.TasksBaseURL, credentialFrom(c))
	})
	// Bare /tasks (no trailing slash) must behave like /tasks/.
	r.Any("/tasks", rate, authenticate(verifier), func(c *gin.Context) {
		fwd.Proxy(c, cfg.Gateway.TasksBaseURL, credentialFrom(c))
	})
}

// ctxKeyCredential stashes the verified credential for the proxy handler.
const ctxKeyCredential = "gateway.credential"

// rateLimit admits requests per client IP within the fixed window. Denials
// carry a Retry-After hint alongside the stable error code.
func rateLimit(fw *FixedWindow) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "gw:ip:" + c.ClientIP()
		allowed, retryAfter := fw.Allow(key)
		if !allowed {
			secs := int(retryAfter.Seconds())
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			handlers.Fail(c, http.StatusTooManyRequests, handlers.ErrCodeRateLimited,
				"Too many requests")
			return
		}
		c.Next()
	}
}

// authenticate verifies the bearer token and stashes the credential. Any
// token failure — absent header, wrong scheme, or any verification error —
// yields the same 401 so the response never reveals which check failed. A
// verifier with no secret is a deployment fault and yields a 500 instead.
func authenticate(v *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, err := v.Verify(BearerToken(c.GetHeader("Authorization")))
		if errors.Is(err, ErrUnconfigured) {
			handlers.Fail(c, http.StatusInternalServerError, handlers.ErrCodeInternal,
				"JWT configuration missing")
			return
		}
		if err != nil {
			handlers.Fail(c, http.StatusUnauthorized, handlers.ErrCodeUnauthorized,
				"Missing or invalid token")
			return
		}
		c.Set(ctxKeyCredential, cred)
		c.Next()
	}
}

// credentialFrom returns the credential stashed by authenticate, or nil.
func credentialFrom(c *gin.Context) *Credential {
	if v, ok := c.Get(ctxKeyCredential); ok {
		if cred, ok := v.(*Credential); ok {
			return cred
		}
	}
	return nil
}
