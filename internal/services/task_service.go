// Package services – TaskService
//
// This file implements the backend's idempotency engine. Create executes the
// task-creation command under an at-most-once guarantee: the first request to
// commit for a given Idempotency-Key persists both the task and an immutable
// record of the response inside one transaction; every later request bearing
// the same key (and the same owner and payload) is served that stored
// response byte for byte, without re-executing the command. List serves
// paginated queries through the read cache, which Create invalidates per
// owner before returning so reads always reflect the caller's own writes.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/taskgate/go-task-gateway/internal/cache"
	"github.com/taskgate/go-task-gateway/internal/domain"
	"github.com/taskgate/go-task-gateway/internal/repo"
)

// TaskView is the command response shape stored in the idempotency record and
// returned to the caller on both first execution and every replay.
type TaskView struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// TaskPage is the serialized list-query result cached per
// (owner, page, limit, status) combination.
type TaskPage struct {
	Data  []domain.Task `json:"data"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Total int64         `json:"total"`
}

// CommandResult carries the response bytes and status code produced (or
// replayed) by Create.
type CommandResult struct {
	Body       []byte
	StatusCode int
	// Replayed is true when the result came from a stored record rather than
	// a fresh execution.
	Replayed bool
}

// TaskService coordinates task persistence, idempotent command execution,
// and cached list queries.
type TaskService struct {
	DB       *gorm.DB
	Cache    cache.Store
	CacheTTL time.Duration
}

// Fingerprint returns the request fingerprint for a create command: the hex
// SHA-256 of the canonical JSON of the mutable fields. It detects reuse of an
// idempotency key with a semantically different payload.
func Fingerprint(title, status string) string {
	canonical, _ := json.Marshal(struct {
		Status string `json:"status"`
		Title  string `json:"title"`
	}{Status: status, Title: title})
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// Create executes the task-creation command for (userID, key).
//
// Algorithm:
//  1. An absent key is rejected; callers surface it as a bad request.
//  2. An existing record for the key is consulted: matching owner and
//     fingerprint replays the stored response; any mismatch is a permanent
//     conflict.
//  3. Otherwise the task insert and the idempotency record insert run in one
//     transaction, so either both persist or neither does.
//  4. A uniqueness violation on the key means another execution won a race
//     for the same key: the committed record is re-read and either replayed
//     (full match) or reported as a conflict.
//  5. First-time success invalidates the owner's cached list pages before
//     returning, preserving read-your-writes.
func (s *TaskService) Create(ctx context.Context, userID, key, title, status string) (*CommandResult, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrMissingIdempotencyKey
	}
	if status == "" {
		status = domain.TaskStatusPending
	}
	hash := Fingerprint(title, status)

	// Fast path: a completed execution already exists for this key.
	if rec, err := repo.GetIdempotencyRecord(ctx, s.DB, key); err == nil {
		return s.replay(rec, userID, hash)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	var body []byte
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := repo.CreateTask(ctx, tx, userID, title, status)
		if err != nil {
			return err
		}

		view := TaskView{
			ID:        task.ID,
			Title:     task.Title,
			Status:    task.Status,
			CreatedAt: task.CreatedAt.UTC().Format(time.RFC3339),
		}
		body, err = json.Marshal(view)
		if err != nil {
			return err
		}

		return repo.InsertIdempotencyRecord(ctx, tx, &domain.IdempotencyRecord{
			Key:          key,
			UserID:       userID,
			RequestHash:  hash,
			ResponseBody: body,
			StatusCode:   200,
		})
	})

	if txErr != nil {
		// Losing side of a concurrent duplicate submission: the winner's
		// record is committed, so serve it exactly as the fast path would.
		if errors.Is(txErr, repo.ErrDuplicate) || repo.IsUniqueViolation(txErr) {
			rec, err := repo.GetIdempotencyRecord(ctx, s.DB, key)
			if err != nil {
				return nil, ErrIdempotencyConflict
			}
			return s.replay(rec, userID, hash)
		}
		return nil, txErr
	}

	if err := s.invalidateOwner(ctx, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("cache invalidation failed")
	}

	log.Info().Str("user_id", userID).Msg("tasks.created")

	return &CommandResult{Body: body, StatusCode: 200}, nil
}

// replay serves a stored record when owner and fingerprint match, and
// reports a conflict otherwise.
func (s *TaskService) replay(rec *domain.IdempotencyRecord, userID, hash string) (*CommandResult, error) {
	if !rec.Matches(userID, hash) {
		return nil, ErrIdempotencyConflict
	}
	return &CommandResult{
		Body:       rec.ResponseBody,
		StatusCode: rec.StatusCode,
		Replayed:   true,
	}, nil
}

// ListPage returns one serialized page of the user's tasks through the read
// cache. page and limit are assumed already clamped by the transport layer.
func (s *TaskService) ListPage(ctx context.Context, userID string, page, limit int, status string) ([]byte, error) {
	key := listCacheKey(userID, page, limit, status)

	compute := func(ctx context.Context) ([]byte, error) {
		total, err := repo.CountTasks(ctx, s.DB, userID, status)
		if err != nil {
			return nil, err
		}
		items, err := repo.ListTasksPage(ctx, s.DB, userID, status, (page-1)*limit, limit)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []domain.Task{}
		}
		return json.Marshal(TaskPage{Data: items, Page: page, Limit: limit, Total: total})
	}

	if s.Cache == nil {
		return compute(ctx)
	}
	return s.Cache.GetOrCompute(ctx, key, s.CacheTTL, compute)
}

// invalidateOwner removes every cached list page scoped to userID.
func (s *TaskService) invalidateOwner(ctx context.Context, userID string) error {
	if s.Cache == nil {
		return nil
	}
	return s.Cache.InvalidatePrefix(ctx, ownerCachePrefix(userID))
}

// ownerCachePrefix is the key prefix shared by all of a user's list pages.
func ownerCachePrefix(userID string) string {
	return fmt.Sprintf("tasks:user:%s:", userID)
}

// listCacheKey derives the cache key for one (owner, page, limit, status)
// combination.
func listCacheKey(userID string, page, limit int, status string) string {
	key := fmt.Sprintf("%spage:%d:limit:%d", ownerCachePrefix(userID), page, limit)
	if status != "" {
		key += ":status:" + status
	}
	return key
}
