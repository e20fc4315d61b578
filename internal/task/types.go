// Package task defines the task, user, and session data model.
package task

import (
	"errors"
	"time"
)

// Sentinel errors for business-rule rejections. Callers match with errors.Is.
var (
	// ErrNotFound is returned when no task with the requested id exists.
	ErrNotFound = errors.New("task not found")

	// ErrNotEditable is returned when a mutation targets a completed task.
	// Completed tasks are locked; the stored task is left unchanged.
	ErrNotEditable = errors.New("completed tasks cannot be edited")
)

// Status represents a task status label. The labels double as wire and
// storage values, so they are human-readable.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Statuses lists every valid status in display order.
func Statuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusCompleted}
}

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is a unit of work. Completed and Editable are derived from Status;
// Normalize re-establishes the derivation after any mutation.
type Task struct {
	ID          int        `json:"id"`
	UserID      int        `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	DueDate     string     `json:"dueDate"` // ISO date, "YYYY-MM-DD"
	Completed   bool       `json:"completed"`
	Editable    bool       `json:"editable"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Normalize re-derives Completed and Editable from Status. It must be
// called after every mutation so the pair can never drift.
func (t *Task) Normalize() {
	t.Completed = t.Status == StatusCompleted
	t.Editable = !t.Completed
}

// Clone returns a deep copy of the task. The optional timestamps are
// pointers, so a shallow copy would alias them.
func (t Task) Clone() Task {
	c := t
	if t.UpdatedAt != nil {
		u := *t.UpdatedAt
		c.UpdatedAt = &u
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	return c
}

// CloneAll deep-copies a task slice. Store reads hand out clones so callers
// cannot mutate the store's internal collection.
func CloneAll(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

// User is a directory record. Immutable once fetched.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Session binds a user to a locally issued bearer token. The token is a
// non-verifiable local artifact, not a cryptographic credential.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// DateLayout is the ISO date layout used for due dates.
const DateLayout = "2006-01-02"

// ParseDate parses an ISO "YYYY-MM-DD" date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
