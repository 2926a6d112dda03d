// Package gateway implements the edge tier of the system.
//
// This file forwards admitted requests to their upstream service. The proxy
// is deliberately transparent: upstream status and body pass through
// byte-for-byte, while the gateway injects its correlation id and, after
// token verification, the caller's identity headers.
package gateway

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskgate/go-task-gateway/internal/http/handlers"
	"github.com/taskgate/go-task-gateway/internal/http/middleware"
)

// Forwarder proxies requests to a configured upstream base URL.
type Forwarder struct {
	// Client performs outbound calls; its Timeout bounds every hop.
	Client *http.Client
}

// NewForwarder builds a Forwarder with a bounded HTTP client.
func NewForwarder(timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Forwarder{Client: &http.Client{Timeout: timeout}}
}

// Headers the gateway owns on the response: they reflect this hop, not the
// upstream's, so the upstream's copies are dropped during passthrough.
var gatewayOwnedHeaders = []string{
	middleware.HeaderRequestID,
	middleware.HeaderResponseTime,
}

// Proxy forwards the inbound request to base and writes the upstream
// response. cred is nil for routes that do not require authentication.
//
// When base is empty the route is misconfigured; the request is failed
// locally with server_error and no upstream call is attempted.
func (f *Forwarder) Proxy(c *gin.Context, base string, cred *Credential) {
	if base == "" {
		handlers.Fail(c, http.StatusInternalServerError, handlers.ErrCodeInternal,
			"upstream not configured")
		return
	}

	// Forward the full inbound path so the upstream sees the same route the
	// client requested (e.g. /tasks, /auth/login).
	target := base + c.Request.URL.Path
	if q := c.Request.URL.RawQuery; q != "" {
		target += "?" + q
	}

	out, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, target, c.Request.Body)
	if err != nil {
		handlers.Fail(c, http.StatusInternalServerError, handlers.ErrCodeInternal,
			"failed to build upstream request")
		return
	}

	// Correlation id first, then selective passthrough, then identity.
	rid := middleware.RequestIDFrom(c)
	out.Header.Set(middleware.HeaderRequestID, rid)
	for _, h := range []string{"Authorization", middleware.HeaderIdempotencyKey, "Content-Type", "Accept"} {
		if v := c.GetHeader(h); v != "" {
			out.Header.Set(h, v)
		}
	}
	if cred != nil {
		out.Header.Set(middleware.HeaderUserSub, cred.Subject)
		out.Header.Set(middleware.HeaderUserRole, cred.Role)
	}

	start := time.Now()
	resp, err := f.Client.Do(out)
	latency := time.Since(start)

	lg := middleware.LoggerFrom(c)
	if err != nil {
		lg.Error().
			Str("upstream", target).
			Dur("upstream_latency", latency).
			Err(err).
			Msg("gateway.forward")
		handlers.Fail(c, http.StatusInternalServerError, handlers.ErrCodeInternal,
			"upstream request failed")
		return
	}
	defer resp.Body.Close()

	lg.Info().
		Str("upstream", target).
		Int("upstream_status", resp.StatusCode).
		Dur("upstream_latency", latency).
		Msg("gateway.forward")

	copyUpstreamHeaders(c, resp)
	c.Status(resp.StatusCode)
	_, _ = io.Copy(c.Writer, resp.Body)
}

// copyUpstreamHeaders mirrors the upstream response headers onto the gateway
// response. Headers this hop owns are dropped, and headers the gateway's own
// middleware already set are not duplicated.
func copyUpstreamHeaders(c *gin.Context, resp *http.Response) {
	dst := c.Writer.Header()
	for k, vals := range resp.Header {
		if owned(k) || len(dst.Values(k)) > 0 {
			continue
		}
		for _, v := range vals {
			dst.Add(k, v)
		}
	}
}

func owned(key string) bool {
	for _, h := range gatewayOwnedHeaders {
		if http.CanonicalHeaderKey(key) == http.CanonicalHeaderKey(h) {
			return true
		}
	}
	return false
}
