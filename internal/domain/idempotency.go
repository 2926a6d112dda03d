// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// IdempotencyRecord captures the outcome of a previously executed command,
// keyed by the client-supplied Idempotency-Key. The key is globally unique;
// a record, once written, is never updated. Replays of the same key with the
// same owner and request hash are served the stored response verbatim, so the
// side-effecting command runs at most once.
type IdempotencyRecord struct {
	Key          string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID       string    `gorm:"type:TEXT NOT NULL;index"`
	RequestHash  string    `gorm:"type:TEXT NOT NULL"`
	ResponseBody []byte    `gorm:"type:BLOB NOT NULL"`
	StatusCode   int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt    time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (IdempotencyRecord) TableName() string { return "idempotency_keys" }

// Matches reports whether the record was written for the same owner and the
// same request payload. A mismatch means the key is being reused for a
// semantically different command, which is a permanent client error.
func (r *IdempotencyRecord) Matches(userID, requestHash string) bool {
	return r.UserID == userID && r.RequestHash == requestHash
}
