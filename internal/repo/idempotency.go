// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// IdempotencyRecord model used to implement at-most-once command execution.
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/taskgate/go-task-gateway/internal/domain"
)

// GetIdempotencyRecord returns the record stored for key, or ErrNotFound.
func GetIdempotencyRecord(ctx context.Context, db *gorm.DB, key string) (*domain.IdempotencyRecord, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.IdempotencyRecord
	err := db.WithContext(ctx).
		Where("key = ?", key).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// InsertIdempotencyRecord writes the record inside the caller's transaction
// and returns ErrDuplicate on a primary-key violation. Records are
// append-once; there is no update path.
func InsertIdempotencyRecord(ctx context.Context, tx *gorm.DB, rec *domain.IdempotencyRecord) error {
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// IsUniqueViolation reports whether err is a uniqueness-constraint failure.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations, so
// this checks both the GORM sentinel and the driver's message.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
