// Package handlers defines the HTTP-layer error codes used across all API
// endpoints.
//
// Codes are lowercase snake_case and stable: clients branch on them for
// programmatic error handling, so renaming one is a breaking change. Each
// error response pairs an HTTP status with exactly one of these codes (via
// the fail() helper in this package).
package handlers

const (
	// ErrCodeBadRequest: malformed or missing required input; the client
	// must fix the request before retrying.
	ErrCodeBadRequest = "bad_request"

	// ErrCodeUnauthorized: credential missing, invalid, expired, or
	// mismatched. Deliberately undifferentiated so the response never
	// reveals which check failed.
	ErrCodeUnauthorized = "unauthorized"

	// ErrCodeInvalidCredentials: login with an unknown email or wrong
	// password; also undifferentiated between the two.
	ErrCodeInvalidCredentials = "invalid_credentials"

	// ErrCodeIdempotencyConflict: an Idempotency-Key reused with a
	// different owner or payload. Permanent; never retried.
	ErrCodeIdempotencyConflict = "idempotency_conflict"

	// ErrCodeRateLimited: request budget exhausted; transient, clients may
	// retry after the window elapses.
	ErrCodeRateLimited = "too_many_requests"

	// ErrCodeInternal: misconfiguration or unexpected failure.
	ErrCodeInternal = "server_error"

	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
