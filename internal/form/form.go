// Package form validates task form fields. Rules are stateless and run
// per field (on blur) or all at once (on submit).
package form

import (
	"strings"
	"time"

	"github.com/Shahid138/task-manager/internal/task"
)

// Field names a validated form field.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldDueDate     Field = "dueDate"
	FieldStatus      Field = "status"
)

// Fields lists every validated field in form order.
func Fields() []Field {
	return []Field{FieldTitle, FieldDescription, FieldDueDate, FieldStatus}
}

// FieldError is a failed rule with its user-facing message.
type FieldError struct {
	Field   Field
	Message string
}

func (e *FieldError) Error() string {
	return string(e.Field) + ": " + e.Message
}

// Draft holds the raw form values for a task being created or edited.
type Draft struct {
	Title       string
	Description string
	DueDate     string
	Status      task.Status
}

// Mode distinguishes creating a new task from editing an existing one.
// The past-due-date rule only applies when creating.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

// ValidateField checks one field of the draft. today anchors the due-date
// comparison (date only, time of day ignored). A nil result is a pass.
func ValidateField(d Draft, field Field, mode Mode, today time.Time) *FieldError {
	fail := func(msg string) *FieldError {
		return &FieldError{Field: field, Message: msg}
	}

	switch field {
	case FieldTitle:
		switch {
		case strings.TrimSpace(d.Title) == "":
			return fail("Title is required")
		case len(d.Title) < 3:
			return fail("Title must be at least 3 characters long")
		case len(d.Title) > 100:
			return fail("Title must not exceed 100 characters")
		}

	case FieldDescription:
		switch {
		case strings.TrimSpace(d.Description) == "":
			return fail("Description is required")
		case len(d.Description) < 10:
			return fail("Description must be at least 10 characters long")
		case len(d.Description) > 500:
			return fail("Description must not exceed 500 characters")
		}

	case FieldDueDate:
		if d.DueDate == "" {
			return fail("Due date is required")
		}
		due, err := task.ParseDate(d.DueDate)
		if err != nil {
			return fail("Due date must be a valid date (YYYY-MM-DD)")
		}
		day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		if due.Before(day) && mode == ModeCreate {
			return fail("Due date cannot be in the past")
		}

	case FieldStatus:
		if d.Status == "" {
			return fail("Status is required")
		}
		if !d.Status.Valid() {
			return fail("Status must be one of: Pending, In Progress, Completed")
		}
	}

	return nil
}

// Validate runs every field rule and returns the failures in form order.
func Validate(d Draft, mode Mode, today time.Time) []FieldError {
	var errs []FieldError
	for _, field := range Fields() {
		if err := ValidateField(d, field, mode, today); err != nil {
			errs = append(errs, *err)
		}
	}
	return errs
}

// CanSubmit reports whether the form may be submitted: every field passes
// and, when editing, the target task is still editable.
func CanSubmit(d Draft, mode Mode, editable bool, today time.Time) bool {
	if mode == ModeEdit && !editable {
		return false
	}
	return len(Validate(d, mode, today)) == 0
}
