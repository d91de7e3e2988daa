package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"taskdeck/internal/api"
	"taskdeck/internal/models"
)

// fakeGateway implements Gateway with overridable behavior per call.
type fakeGateway struct {
	listFunc   func(ctx context.Context) ([]models.Task, error)
	createFunc func(ctx context.Context, draft models.TaskDraft) (models.Task, error)
	toggleFunc func(ctx context.Context, id int64) error
	deleteFunc func(ctx context.Context, id int64) error
}

func (g *fakeGateway) ListTasks(ctx context.Context) ([]models.Task, error) {
	if g.listFunc != nil {
		return g.listFunc(ctx)
	}
	return nil, nil
}

func (g *fakeGateway) CreateTask(ctx context.Context, draft models.TaskDraft) (models.Task, error) {
	if g.createFunc != nil {
		return g.createFunc(ctx, draft)
	}
	return models.Task{}, nil
}

func (g *fakeGateway) ToggleTask(ctx context.Context, id int64) error {
	if g.toggleFunc != nil {
		return g.toggleFunc(ctx, id)
	}
	return nil
}

func (g *fakeGateway) DeleteTask(ctx context.Context, id int64) error {
	if g.deleteFunc != nil {
		return g.deleteFunc(ctx, id)
	}
	return nil
}

type fakeSession struct {
	clears int
}

func (s *fakeSession) Clear() error {
	s.clears++
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeServer keeps a mutable task list behind a fakeGateway, so mutations
// behave like the real service: confirm, then the next list reflects it.
type fakeServer struct {
	tasks  []models.Task
	nextID int64
}

func (srv *fakeServer) gateway() *fakeGateway {
	return &fakeGateway{
		listFunc: func(ctx context.Context) ([]models.Task, error) {
			out := make([]models.Task, len(srv.tasks))
			copy(out, srv.tasks)
			return out, nil
		},
		createFunc: func(ctx context.Context, draft models.TaskDraft) (models.Task, error) {
			if draft.Title == "" {
				return models.Task{}, api.ErrValidation
			}
			srv.nextID++
			task := models.Task{ID: srv.nextID, Title: draft.Title, Status: models.StatusPending}
			srv.tasks = append(srv.tasks, task)
			return task, nil
		},
		toggleFunc: func(ctx context.Context, id int64) error {
			for i := range srv.tasks {
				if srv.tasks[i].ID == id {
					if srv.tasks[i].Status == models.StatusPending {
						srv.tasks[i].Status = models.StatusCompleted
					} else {
						srv.tasks[i].Status = models.StatusPending
					}
					return nil
				}
			}
			return api.ErrNotFound
		},
		deleteFunc: func(ctx context.Context, id int64) error {
			for i := range srv.tasks {
				if srv.tasks[i].ID == id {
					srv.tasks = append(srv.tasks[:i], srv.tasks[i+1:]...)
					return nil
				}
			}
			return api.ErrNotFound
		},
	}
}

func TestRefreshReplacesCollection(t *testing.T) {
	t.Parallel()

	srv := &fakeServer{
		tasks:  []models.Task{{ID: 1, Title: "a", Status: models.StatusPending}},
		nextID: 1,
	}
	e := New(srv.gateway(), &fakeSession{}, discardLogger())

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if len(e.Tasks()) != 1 {
		t.Fatalf("expected 1 task, got %d", len(e.Tasks()))
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	t.Parallel()

	srv := &fakeServer{
		tasks: []models.Task{
			{ID: 1, Title: "a", Status: models.StatusPending},
			{ID: 2, Title: "b", Status: models.StatusCompleted},
		},
		nextID: 2,
	}
	e := New(srv.gateway(), &fakeSession{}, discardLogger())

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	first := e.Tasks()

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	second := e.Tasks()

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("collections differ after back-to-back refreshes:\n%v\n%v", first, second)
	}
}

func TestCreateRefetchesCanonicalData(t *testing.T) {
	t.Parallel()

	srv := &fakeServer{}
	e := New(srv.gateway(), &fakeSession{}, discardLogger())

	if err := e.Create(context.Background(), models.TaskDraft{Title: "new task"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	tasks := e.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task after create, got %d", len(tasks))
	}
	if tasks[0].ID == 0 {
		t.Fatalf("expected server-assigned id, got 0")
	}
}

func TestCreateValidationFailureLeavesCollectionUntouched(t *testing.T) {
	t.Parallel()

	srv := &fakeServer{
		tasks:  []models.Task{{ID: 1, Title: "a", Status: models.StatusPending}},
		nextID: 1,
	}
	e := New(srv.gateway(), &fakeSession{}, discardLogger())
	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	before := e.Tasks()

	err := e.Create(context.Background(), models.TaskDraft{Title: ""})
	if !errors.Is(err, api.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !reflect.DeepEqual(before, e.Tasks()) {
		t.Fatalf("collection changed after failed create")
	}
}

func TestToggleNotFoundReportedCollectionIntact(t *testing.T) {
	t.Parallel()

	srv := &fakeServer{
		tasks:  []models.Task{{ID: 1, Title: "a", Status: models.StatusPending}},
		nextID: 1,
	}
	e := New(srv.gateway(), &fakeSession{}, discardLogger())
	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	before := e.Tasks()

	err := e.Toggle(context.Background(), 999)
	if !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !reflect.DeepEqual(before, e.Tasks()) {
		t.Fatalf("collection changed after failed toggle")
	}
}

func TestDeleteRemovesTaskAfterRefresh(t *testing.T) {
	t.Parallel()

	srv := &fakeServer{
		tasks: []models.Task{
			{ID: 1, Title: "a", Status: models.StatusPending},
			{ID: 2, Title: "b", Status: models.StatusPending},
		},
		nextID: 2,
	}
	e := New(srv.gateway(), &fakeSession{}, discardLogger())
	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if err := e.Delete(context.Background(), 1); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	for _, task := range e.Tasks() {
		if task.ID == 1 {
			t.Fatalf("deleted task still present in collection")
		}
	}
}

func TestUnauthorizedClearsSessionOncePerCall(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		listFunc: func(ctx context.Context) ([]models.Task, error) {
			return nil, api.ErrUnauthorized
		},
		toggleFunc: func(ctx context.Context, id int64) error {
			return api.ErrUnauthorized
		},
	}
	sess := &fakeSession{}
	e := New(gw, sess, discardLogger())

	if err := e.Refresh(context.Background()); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired from refresh, got %v", err)
	}
	if sess.clears != 1 {
		t.Fatalf("expected 1 session clear after refresh, got %d", sess.clears)
	}

	if err := e.Toggle(context.Background(), 1); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired from toggle, got %v", err)
	}
	if sess.clears != 2 {
		t.Fatalf("expected exactly one clear per failing call, got %d total", sess.clears)
	}
}

func TestUnauthorizedKeepsStaleCollection(t *testing.T) {
	t.Parallel()

	calls := 0
	gw := &fakeGateway{
		listFunc: func(ctx context.Context) ([]models.Task, error) {
			calls++
			if calls == 1 {
				return []models.Task{{ID: 1, Title: "a", Status: models.StatusPending}}, nil
			}
			return nil, api.ErrUnauthorized
		},
	}
	e := New(gw, &fakeSession{}, discardLogger())

	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	if err := e.Refresh(context.Background()); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	// Stale but not corrupt: the caller is expected to navigate away.
	if len(e.Tasks()) != 1 {
		t.Fatalf("expected collection preserved after expiry, got %d tasks", len(e.Tasks()))
	}
}

func TestStaleRefreshCompletionDiscarded(t *testing.T) {
	t.Parallel()

	old := []models.Task{{ID: 1, Title: "old", Status: models.StatusPending}}
	fresh := []models.Task{
		{ID: 1, Title: "old", Status: models.StatusPending},
		{ID: 2, Title: "new", Status: models.StatusPending},
	}

	started := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	gw := &fakeGateway{
		listFunc: func(ctx context.Context) ([]models.Task, error) {
			calls++
			if calls == 1 {
				// First dispatched refresh completes last.
				close(started)
				<-release
				return old, nil
			}
			return fresh, nil
		},
	}
	e := New(gw, &fakeSession{}, discardLogger())

	done := make(chan error)
	go func() {
		done <- e.Refresh(context.Background())
	}()
	<-started

	// Second refresh dispatches after the first, completes first.
	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Refresh: %v", err)
	}

	if got := e.Tasks(); !reflect.DeepEqual(got, fresh) {
		t.Fatalf("stale refresh overwrote newer state: %v", got)
	}
}

func TestTasksReturnsCopy(t *testing.T) {
	t.Parallel()

	srv := &fakeServer{
		tasks:  []models.Task{{ID: 1, Title: "a", Status: models.StatusPending}},
		nextID: 1,
	}
	e := New(srv.gateway(), &fakeSession{}, discardLogger())
	if err := e.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	snapshot := e.Tasks()
	snapshot[0].Title = "mutated"

	if e.Tasks()[0].Title != "a" {
		t.Fatalf("snapshot mutation leaked into the engine's collection")
	}
}
