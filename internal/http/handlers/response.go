// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all
// endpoints. Every failure path, on the gateway and on the services behind
// it, renders the same machine-friendly envelope:
//
//	HTTP/1.1 409 Conflict
//	{
//	  "code": "idempotency_conflict",
//	  "message": "Idempotency-Key already used with a different request"
//	}
//
// Conventions:
//   - All error responses return an ErrorResponse with a stable `code`.
//   - fail() centralizes error formatting and ensures 5xx responses are
//     logged with request context.
//   - ok() keeps success responses uniform across handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskgate/go-task-gateway/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
//
// Code is a stable, machine-readable string (see errors.go constants).
// Message is human-readable and safe to display. Details optionally carries
// structured validation context (e.g. per-field errors) and is omitted when
// empty.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// fail aborts the request with a structured error body.
//
// Server errors (>=500) are logged using the request-scoped logger so the
// correlation ID ties the response to the log entry.
func fail(c *gin.Context, status int, code, msg string) {
	failWith(c, status, code, msg, nil)
}

// failWith is fail with an optional details payload.
func failWith(c *gin.Context, status int, code, msg string, details any) {
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Code: code, Message: msg, Details: details})
}

// Fail is the exported variant of fail() for use by router setup (NoRoute,
// NoMethod) without depending on unexported helpers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
