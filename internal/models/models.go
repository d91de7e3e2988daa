package models

import "time"

// TaskStatus is the completion state of a task
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
)

// Task represents a single task as returned by the server
type Task struct {
	ID          int64
	Title       string
	Description string
	DueDate     *time.Time // nil means no deadline
	Status      TaskStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Completed reports whether the task is done
func (t Task) Completed() bool {
	return t.Status == StatusCompleted
}

// TaskDraft holds raw form input for a new task before submission.
// DueDate stays a string until the gateway normalizes it; empty means
// no deadline.
type TaskDraft struct {
	Title       string
	Description string
	DueDate     string
}
