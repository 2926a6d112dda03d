// Package services – AuthService
//
// This file implements the credential store half of the system: it verifies a
// principal's email/password against the users table and issues the signed
// bearer tokens the gateway later verifies. Verification is deliberately
// oracle-free: unknown user and wrong password produce the same error.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/taskgate/go-task-gateway/internal/domain"
	"github.com/taskgate/go-task-gateway/internal/repo"
)

// TokenClaims is the payload of tokens issued by the auth service. The
// subject, role, audience, issuer, and expiry are exactly what the gateway's
// verifier checks.
type TokenClaims struct {
	jwt.RegisteredClaims
	// Role is propagated downstream as X-User-Role; defaults to "user".
	Role string `json:"role"`
}

// LoginResult carries a freshly issued token and its validity window.
type LoginResult struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// AuthService verifies credentials and issues HS256 tokens.
type AuthService struct {
	DB *gorm.DB

	// Token parameters, shared with the gateway through configuration.
	Secret   string
	Audience string
	Issuer   string
	TokenTTL time.Duration

	// Throttle bounds attempts per (email, ip); nil disables throttling.
	Throttle *LoginThrottle

	// now is a clock seam for tests; defaults to time.Now.
	Now func() time.Time
}

// Login verifies the credential pair and returns a signed token.
//
// Failure modes:
//   - ErrLoginThrottled when the (email, ip) budget is exhausted; the
//     throttle is consulted before the credential check so brute force pays
//     no bcrypt cost.
//   - ErrInvalidCredentials for unknown user or wrong password alike.
func (s *AuthService) Login(ctx context.Context, email, password, ip string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if s.Throttle != nil {
		key := fmt.Sprintf("login:%s:%s", email, ip)
		if !s.Throttle.Allow(key) {
			return nil, ErrLoginThrottled
		}
	}

	user, err := repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		// Run a dummy compare anyway so timing does not reveal whether the
		// account exists.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"), []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.clock()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Issuer,
			Audience:  jwt.ClaimStrings{s.Audience},
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TokenTTL)),
		},
		Role: user.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	log.Info().
		Str("email", email).
		Str("user_id", user.ID).
		Msg("auth.login")

	return &LoginResult{
		Token:     signed,
		TokenType: "Bearer",
		ExpiresIn: int(s.TokenTTL.Seconds()),
	}, nil
}

// Register creates a user with a freshly hashed password. It exists for
// seeding and tests; there is no public registration endpoint.
func (s *AuthService) Register(ctx context.Context, email, password, role string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return repo.CreateUser(ctx, s.DB, email, string(hash), role)
}

func (s *AuthService) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
