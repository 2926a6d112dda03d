// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file validates the Idempotency-Key request header for unsafe HTTP
// methods. Transport concerns (presence, length, character set) live here;
// dedup semantics — fingerprint comparison, replay, conflict — belong to the
// command processor in the services layer.
package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the canonical request header clients use to convey
// an idempotency key for unsafe operations. The value is expected to be
// stable for a given semantic operation so retries can be deduplicated.
const HeaderIdempotencyKey = "Idempotency-Key"

// ctxKeyIdemKey stashes the validated key; read it via GetIdempotencyKey.
const ctxKeyIdemKey = "idem.key"

// idemKeyMaxLen caps accepted key length.
const idemKeyMaxLen = 200

// idemKeyPattern is an RFC-7230-ish token plus common safe characters.
var idemKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the validated idempotency key stored by
// RequireIdempotencyKey. The second return value indicates presence.
//
// Handlers should prefer this over reading the header directly.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// RequireIdempotencyKey enforces a present, well-formed Idempotency-Key
// header and stashes the normalized key in the Gin context.
//
// An absent or blank header is rejected with 400 so the at-most-once contract
// is never silently skipped; malformed keys are rejected with the same status
// and a distinct message.
func RequireIdempotencyKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_request",
				"message": "Idempotency-Key header is required",
			})
			return
		}
		if len(key) > idemKeyMaxLen || !idemKeyPattern.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_request",
				"message": "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)
		c.Next()
	}
}
