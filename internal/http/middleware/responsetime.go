// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file stamps every response with its server-side processing time. The
// header must be set before the status line is flushed, so the middleware
// wraps the response writer and computes the value at first write rather than
// after the handler returns.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderResponseTime reports server-side latency in whole milliseconds,
// formatted as "<n>ms" (e.g. "12ms").
const HeaderResponseTime = "X-Response-Time"

// ResponseTime sets X-Response-Time on every response.
//
// The elapsed time covers everything between the middleware entering the
// chain and the first byte of the response being written.
func ResponseTime() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer = &timedWriter{ResponseWriter: c.Writer, start: time.Now()}
		c.Next()
	}
}

// timedWriter injects the latency header just before headers are flushed.
type timedWriter struct {
	gin.ResponseWriter
	start   time.Time
	stamped bool
}

// stamp writes the header once, before the first header/body flush.
func (w *timedWriter) stamp() {
	if w.stamped {
		return
	}
	w.stamped = true
	ms := time.Since(w.start).Milliseconds()
	w.ResponseWriter.Header().Set(HeaderResponseTime, strconv.FormatInt(ms, 10)+"ms")
}

func (w *timedWriter) WriteHeader(code int) {
	w.stamp()
	w.ResponseWriter.WriteHeader(code)
}

func (w *timedWriter) WriteHeaderNow() {
	w.stamp()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *timedWriter) Write(b []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(b)
}

func (w *timedWriter) WriteString(s string) (int, error) {
	w.stamp()
	return w.ResponseWriter.WriteString(s)
}
