// Package services contains the application layer: idempotent task command
// execution, paginated list queries through the read cache, and credential
// verification with token issuing.
//
// This file defines service-level sentinel errors returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import "errors"

// ErrMissingIdempotencyKey is returned when a command arrives without an
// Idempotency-Key. Commands are never executed without one.
var ErrMissingIdempotencyKey = errors.New("missing idempotency key")

// ErrIdempotencyConflict is returned when an idempotency key is reused with a
// different owner or payload. This is a permanent client error: the stored
// record is immutable and the command is not executed.
var ErrIdempotencyConflict = errors.New("idempotency conflict")

// ErrInvalidCredentials is returned for every failed login, whether the user
// is unknown or the password is wrong, so responses cannot be used as an
// account oracle.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrLoginThrottled is returned when a (email, ip) pair has exhausted its
// login attempt budget.
var ErrLoginThrottled = errors.New("login throttled")
