// Package gateway implements the edge tier of the system.
//
// This file verifies bearer tokens at the gateway. Verification is stateless
// and local: signature, subject, audience, issuer, and (when present) expiry
// are checked against configuration, and every failure collapses into the
// single ErrInvalidToken so the response never reveals which check failed.
package gateway

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the undifferentiated verification failure. Callers map
// it to a 401 with a generic message.
var ErrInvalidToken = errors.New("invalid token")

// ErrUnconfigured reports a verifier with no secret. It maps to a 500, not a
// 401: the request is fine, the deployment is not. Without this guard an
// empty secret would verify HS256 against the empty key and accept forged
// tokens.
var ErrUnconfigured = errors.New("jwt secret not configured")

// Credential is the verified identity extracted from a token. It is
// propagated to upstream services as plain headers.
type Credential struct {
	Subject string
	Role    string
}

// gatewayClaims mirrors the token payload issued by the auth service.
type gatewayClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// TokenVerifier checks HS256 bearer tokens against a shared secret.
type TokenVerifier struct {
	Secret   string
	Audience string
	Issuer   string
}

// Verify parses and validates raw, returning the credential on success.
//
// A token without an expiry claim is accepted; expiry is only enforced when
// the claim is present. A missing role defaults to "user".
func (v *TokenVerifier) Verify(raw string) (*Credential, error) {
	if strings.TrimSpace(v.Secret) == "" {
		return nil, ErrUnconfigured
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}

	claims := &gatewayClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return []byte(v.Secret), nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithAudience(v.Audience),
		jwt.WithIssuer(v.Issuer),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}

	role := strings.TrimSpace(claims.Role)
	if role == "" {
		role = "user"
	}
	return &Credential{Subject: claims.Subject, Role: role}, nil
}

// BearerToken extracts the token from an Authorization header value of the
// form "Bearer <token>". It returns "" when the scheme is absent or wrong.
func BearerToken(authorization string) string {
	const prefix = "Bearer "
	if len(authorization) > len(prefix) && strings.EqualFold(authorization[:len(prefix)], prefix) {
		return strings.TrimSpace(authorization[len(prefix):])
	}
	return ""
}
