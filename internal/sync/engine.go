package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"taskdeck/internal/api"
	"taskdeck/internal/models"
)

// ErrSessionExpired is returned when the server rejects the session token.
// The token has already been cleared; the caller must navigate back to the
// login flow and stop using the collection it holds.
var ErrSessionExpired = errors.New("session expired")

// Gateway is the remote task service boundary.
type Gateway interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
	CreateTask(ctx context.Context, draft models.TaskDraft) (models.Task, error)
	ToggleTask(ctx context.Context, id int64) error
	DeleteTask(ctx context.Context, id int64) error
}

// SessionClearer is the slice of the session store the engine needs.
type SessionClearer interface {
	Clear() error
}

// Engine owns the authoritative in-memory task collection. Every mutation is
// a confirm-then-refetch cycle: the gateway call is made, and on success the
// whole collection is refetched so server-assigned fields come back
// canonical. The collection is only ever replaced wholesale.
type Engine struct {
	gw      Gateway
	session SessionClearer
	log     *slog.Logger

	mu      sync.Mutex
	tasks   []models.Task
	nextSeq uint64
	applied uint64
}

// New creates an engine with an empty collection.
func New(gw Gateway, session SessionClearer, log *slog.Logger) *Engine {
	return &Engine{gw: gw, session: session, log: log}
}

// Tasks returns a snapshot of the current collection, in server order.
func (e *Engine) Tasks() []models.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Task, len(e.tasks))
	copy(out, e.tasks)
	return out
}

// Refresh fetches the full collection and replaces the local one. Refreshes
// are sequence-tagged at dispatch; a completion that would regress the
// collection to an older snapshot is discarded. On an unauthorized response
// the existing collection is left intact (stale but not corrupt) and
// ErrSessionExpired is returned.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	e.nextSeq++
	seq := e.nextSeq
	e.mu.Unlock()

	tasks, err := e.gw.ListTasks(ctx)
	if err != nil {
		return e.fail("refresh", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if seq < e.applied {
		// A newer refresh already landed.
		e.log.Debug("discarding stale refresh", "seq", seq, "applied", e.applied)
		return nil
	}
	e.applied = seq
	e.tasks = tasks
	return nil
}

// Create submits the draft and, on success, refetches the collection so the
// new task appears with its server-assigned id and timestamps. On failure
// the collection is untouched.
func (e *Engine) Create(ctx context.Context, draft models.TaskDraft) error {
	if _, err := e.gw.CreateTask(ctx, draft); err != nil {
		return e.fail("create", err)
	}
	return e.Refresh(ctx)
}

// Toggle flips a task between pending and completed. A NotFound failure
// (e.g. the task was deleted meanwhile) is reported as-is; the next refresh
// reconciles reality.
func (e *Engine) Toggle(ctx context.Context, id int64) error {
	if err := e.gw.ToggleTask(ctx, id); err != nil {
		return e.fail("toggle", err)
	}
	return e.Refresh(ctx)
}

// Delete removes a task by id. No speculative local removal is performed.
func (e *Engine) Delete(ctx context.Context, id int64) error {
	if err := e.gw.DeleteTask(ctx, id); err != nil {
		return e.fail("delete", err)
	}
	return e.Refresh(ctx)
}

// fail maps gateway failures onto the engine's contract. Unauthorized from
// any operation clears the session exactly once for that call and converts
// to ErrSessionExpired; everything else passes through wrapped.
func (e *Engine) fail(op string, err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		e.log.Info("session rejected by server", "op", op)
		if cerr := e.session.Clear(); cerr != nil {
			e.log.Error("clearing session", "error", cerr)
		}
		return ErrSessionExpired
	}
	return fmt.Errorf("%s: %w", op, err)
}
