// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the User model
// used by the auth service.
package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskgate/go-task-gateway/internal/domain"
)

// GetUserByEmail fetches a user by lowercased email, or ErrNotFound.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrNotFound
	}
	var u domain.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user row with the given (already hashed) password.
// Emails are stored lowercased; an empty role defaults to "user".
// Returns ErrDuplicate when the email is already registered.
func CreateUser(ctx context.Context, db *gorm.DB, email, passwordHash, role string) (*domain.User, error) {
	if role == "" {
		role = "user"
	}
	u := &domain.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		Role:         role,
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return u, nil
}
