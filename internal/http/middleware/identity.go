// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements identity propagation for services running behind the
// gateway. The gateway verifies bearer tokens and forwards the result as two
// plain headers; upstream services trust those headers rather than
// re-verifying the token, so this middleware is the only authentication the
// backend performs.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Identity headers injected by the gateway after token verification.
const (
	// HeaderUserSub carries the verified token subject.
	HeaderUserSub = "X-User-Sub"
	// HeaderUserRole carries the verified token role.
	HeaderUserRole = "X-User-Role"
)

// Context keys used to stash the propagated identity.
const (
	identityKeySub  = "identity.sub"
	identityKeyRole = "identity.role"
)

// Identity requires the gateway-propagated subject header and stashes the
// identity in the Gin context.
//
// A request without X-User-Sub never passed token verification, so it is
// rejected with 401 before any handler runs. The role header is optional and
// defaults to "user".
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		sub := strings.TrimSpace(c.GetHeader(HeaderUserSub))
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "Missing user context",
			})
			return
		}

		role := strings.TrimSpace(c.GetHeader(HeaderUserRole))
		if role == "" {
			role = "user"
		}

		c.Set(identityKeySub, sub)
		c.Set(identityKeyRole, role)
		c.Next()
	}
}

// UserSub returns the propagated subject stored by Identity, or "".
func UserSub(c *gin.Context) string {
	v, _ := c.Get(identityKeySub)
	return asString(v)
}

// UserRole returns the propagated role stored by Identity, defaulting to
// "user" when Identity has not run.
func UserRole(c *gin.Context) string {
	if v, ok := c.Get(identityKeyRole); ok {
		if s := asString(v); s != "" {
			return s
		}
	}
	return "user"
}
