// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file defines sentinel errors shared by the repository
// functions so callers can branch without string matching.
package repo

import "errors"

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate indicates an insert violated a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate")
