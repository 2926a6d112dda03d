// Task HTTP handlers.
//
// This file exposes the REST endpoints of the tasks service:
//   - POST /tasks  (create, idempotent via Idempotency-Key)
//   - GET  /tasks  (list, paginated, read-through cached)
//
// Handlers are transport-thin: they validate input, call the task service,
// and translate results into HTTP responses. The create path in particular
// writes the service's stored response bytes verbatim so a replayed request
// is byte-identical to the original.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/taskgate/go-task-gateway/internal/domain"
	"github.com/taskgate/go-task-gateway/internal/http/middleware"
	"github.com/taskgate/go-task-gateway/internal/services"
	"github.com/taskgate/go-task-gateway/internal/utils"
)

// TaskCommandService is the write half of the task API consumed by handlers.
//
// Implementations must be safe for concurrent use and honor the provided
// context for cancellation.
type TaskCommandService interface {
	// Create runs the task creation command at most once per (owner, key).
	Create(ctx context.Context, userID, key, title, status string) (*services.CommandResult, error)
}

// TaskQueryService is the read half of the task API.
type TaskQueryService interface {
	// ListPage returns the serialized page envelope for the given query.
	ListPage(ctx context.Context, userID string, page, limit int, status string) ([]byte, error)
}

// TaskHandlers groups the HTTP endpoints of the tasks service.
type TaskHandlers struct {
	cmd TaskCommandService
	qry TaskQueryService
}

// NewTaskHandlers binds the handlers to the given service halves. The same
// *services.TaskService typically implements both.
func NewTaskHandlers(cmd TaskCommandService, qry TaskQueryService) *TaskHandlers {
	return &TaskHandlers{cmd: cmd, qry: qry}
}

// CreateTaskRequest is the JSON payload for creating a task.
type CreateTaskRequest struct {
	// Title names the task (1–255 chars, required).
	Title string `json:"title"`
	// Status optionally sets the initial status; defaults to "pending".
	Status string `json:"status"`
}

// clampPagination parses and bounds the page and limit query params.
// Page floors at 1; limit is clamped into [1, 100] with a default of 10.
func clampPagination(c *gin.Context) (page, limit int) {
	const (
		defaultPage  = 1
		defaultLimit = 10
		maxLimit     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	limit = utils.AtoiDefault(c.Query("limit"), defaultLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return
}

// CreateTask handles POST /tasks.
//
// The Idempotency-Key header is mandatory (enforced again here in case the
// route is mounted without the validator middleware). Replays of a completed
// request return the stored response bytes unchanged; a key reuse with a
// different owner or payload is a permanent 409.
func (h *TaskHandlers) CreateTask(c *gin.Context) {
	key, ok := middleware.GetIdempotencyKey(c)
	if !ok {
		key = strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
	}
	if key == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Idempotency-Key header is required")
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		failWith(c, http.StatusBadRequest, ErrCodeBadRequest, "validation failed",
			gin.H{"title": "title is required"})
		return
	}
	if utf8.RuneCountInString(title) > 255 {
		failWith(c, http.StatusBadRequest, ErrCodeBadRequest, "validation failed",
			gin.H{"title": "title must be at most 255 characters"})
		return
	}
	if req.Status != "" && !domain.ValidTaskStatus(req.Status) {
		failWith(c, http.StatusBadRequest, ErrCodeBadRequest, "validation failed",
			gin.H{"status": "status must be one of: pending, done"})
		return
	}

	res, err := h.cmd.Create(c.Request.Context(), middleware.UserSub(c), key, title, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrIdempotencyConflict):
			fail(c, http.StatusConflict, ErrCodeIdempotencyConflict,
				"Idempotency-Key already used with a different request")
		case errors.Is(err, services.ErrMissingIdempotencyKey):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Idempotency-Key header is required")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	if res.Replayed {
		lg := middleware.LoggerFrom(c)
		lg.Info().Str("idempotency_key", key).Msg("tasks.replayed")
	}
	c.Data(res.StatusCode, "application/json; charset=utf-8", res.Body)
}

// ListTasks handles GET /tasks.
//
// Supports page/limit pagination and an optional status filter. Pages are
// served from the read-through cache; the page envelope is written verbatim
// as produced by the service so cached and fresh responses are identical.
func (h *TaskHandlers) ListTasks(c *gin.Context) {
	page, limit := clampPagination(c)

	status := strings.TrimSpace(c.Query("status"))
	if status != "" && !domain.ValidTaskStatus(status) {
		failWith(c, http.StatusBadRequest, ErrCodeBadRequest, "validation failed",
			gin.H{"status": "status must be one of: pending, done"})
		return
	}

	raw, err := h.qry.ListPage(c.Request.Context(), middleware.UserSub(c), page, limit, status)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}
