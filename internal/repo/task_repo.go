// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the Task model.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taskgate/go-task-gateway/internal/domain"
)

// CreateTask inserts a new task row for the given user and returns it.
func CreateTask(ctx context.Context, db *gorm.DB, userID, title, status string) (*domain.Task, error) {
	t := &domain.Task{
		ID:     uuid.NewString(),
		UserID: userID,
		Title:  title,
		Status: status,
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// CountTasks returns the number of tasks owned by the user, optionally
// filtered by status ("" means all).
func CountTasks(ctx context.Context, db *gorm.DB, userID, status string) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.Task{}).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// ListTasksPage returns one page of the user's tasks, newest first,
// optionally filtered by status ("" means all).
func ListTasksPage(ctx context.Context, db *gorm.DB, userID, status string, offset, limit int) ([]domain.Task, error) {
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.Task
	err := q.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
