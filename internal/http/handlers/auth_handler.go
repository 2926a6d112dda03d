// Auth HTTP handlers.
//
// This file exposes the single endpoint of the auth service:
//   - POST /auth/login  (credential check, issues a bearer token)
//
// Unknown email and wrong password produce the same response; throttled
// attempts are reported before credentials are examined.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskgate/go-task-gateway/internal/services"
)

// LoginService verifies credentials and issues signed tokens.
type LoginService interface {
	Login(ctx context.Context, email, password, ip string) (*services.LoginResult, error)
}

// AuthHandlers groups the HTTP endpoints of the auth service.
type AuthHandlers struct {
	svc LoginService
}

// NewAuthHandlers binds the handlers to the given login service.
func NewAuthHandlers(svc LoginService) *AuthHandlers {
	return &AuthHandlers{svc: svc}
}

// LoginRequest is the JSON payload for a login attempt.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Malformed credentials are a 400 before the login service runs; a wrong but
// well-formed pair is the service's 401.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLen = 3

// Login handles POST /auth/login.
//
// Response on success:
//
//	{ "token": "…", "token_type": "Bearer", "expires_in": 900 }
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	details := gin.H{}
	if !emailPattern.MatchString(req.Email) {
		details["email"] = "must be a valid email address"
	}
	if len(req.Password) < minPasswordLen {
		details["password"] = "must be at least 3 characters"
	}
	if len(details) > 0 {
		failWith(c, http.StatusBadRequest, ErrCodeBadRequest, "validation failed", details)
		return
	}

	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoginThrottled):
			fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, "Too many login attempts")
		case errors.Is(err, services.ErrInvalidCredentials):
			fail(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid email or password")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, res)
}
