// Package domain defines the persistence models for tasks and users.
// These types are mapped with GORM and form the core data layer of the
// task backend and the auth service.
package domain

import (
	"time"
)

// Task status values. A task starts pending and may later be marked done.
const (
	TaskStatusPending = "pending"
	TaskStatusDone    = "done"
)

// Task represents a unit of work owned by a user. Tasks are created through
// the idempotent command path; once created, only the status may change.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the task owner; indexed for list queries.
//   - Title: human-readable task title.
//   - Status: "pending" or "done" (enforced by DB constraint).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Task struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_tasks"`
	Title     string    `json:"title"      gorm:"type:varchar(255);not null"`
	Status    string    `json:"status"     gorm:"type:varchar(16);not null;default:'pending';index;check:status IN ('pending','done')"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Task.
func (Task) TableName() string { return "tasks" }

// ValidTaskStatus reports whether s is one of the accepted task states.
func ValidTaskStatus(s string) bool {
	return s == TaskStatusPending || s == TaskStatusDone
}

// User represents a principal known to the auth service. Passwords are stored
// as bcrypt hashes; the gateway and tasks service never see this table.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Email: unique login identifier, stored lowercased.
//   - PasswordHash: bcrypt hash of the password.
//   - Role: propagated into issued tokens; defaults to "user".
type User struct {
	ID           string    `json:"id"    gorm:"type:char(36);primaryKey"`
	Email        string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string    `json:"-"     gorm:"type:varchar(255);not null"`
	Role         string    `json:"role"  gorm:"type:varchar(32);not null;default:'user'"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }
