package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Shahid138/task-manager/internal/form"
	"github.com/Shahid138/task-manager/internal/store"
	"github.com/Shahid138/task-manager/internal/task"
	"github.com/Shahid138/task-manager/internal/view"
)

func (a *app) listCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	search := fs.String("search", "", "Keep tasks whose title or description contains this text")
	status := fs.String("status", view.StatusAll, "Status filter (Pending, 'In Progress', Completed, All)")
	sortBy := fs.String("sort", "dueDate", "Sort key (dueDate, title, status)")
	order := fs.String("order", "asc", "Sort order (asc, desc)")
	refresh := fs.Bool("refresh", false, "Re-fetch the collection from the task feed first")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tasks, err := a.tasks.GetAll(ctx, *refresh)
	if err != nil {
		return err
	}

	projected := view.Project(tasks, view.Params{
		SearchQuery:  *search,
		StatusFilter: *status,
		SortBy:       view.SortKey(*sortBy),
		SortOrder:    view.Order(*order),
	})

	if len(projected) == 0 {
		fmt.Fprintln(a.stdout, "No tasks found")
		return nil
	}

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tDUE")
	for _, t := range projected {
		due := t.DueDate
		if phrase := view.DaysUntilDue(t.DueDate, time.Now()); phrase != "" {
			due = fmt.Sprintf("%s (%s)", t.DueDate, phrase)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, truncate(t.Title, 48), t.Status, due)
	}
	return w.Flush()
}

func (a *app) showCommand(ctx context.Context, args []string) error {
	id, err := idArg(args, "show")
	if err != nil {
		return err
	}

	t, err := a.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Task %d\n", t.ID)
	fmt.Fprintf(a.stdout, "  Title:       %s\n", t.Title)
	fmt.Fprintf(a.stdout, "  Description: %s\n", t.Description)
	fmt.Fprintf(a.stdout, "  Status:      %s\n", t.Status)
	fmt.Fprintf(a.stdout, "  Due:         %s\n", t.DueDate)
	fmt.Fprintf(a.stdout, "  Created:     %s\n", t.CreatedAt.Format(time.RFC3339))
	if t.UpdatedAt != nil {
		fmt.Fprintf(a.stdout, "  Updated:     %s\n", t.UpdatedAt.Format(time.RFC3339))
	}
	if t.CompletedAt != nil {
		fmt.Fprintf(a.stdout, "  Completed:   %s\n", t.CompletedAt.Format(time.RFC3339))
	}
	return nil
}

func (a *app) addCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	title := fs.String("title", "", "Task title")
	desc := fs.String("desc", "", "Task description")
	due := fs.String("due", tomorrow(), "Due date (YYYY-MM-DD)")
	status := fs.String("status", string(task.StatusPending), "Initial status")
	if err := fs.Parse(args); err != nil {
		return err
	}

	draft := form.Draft{
		Title:       *title,
		Description: *desc,
		DueDate:     *due,
		Status:      task.Status(*status),
	}
	if err := validationError(form.Validate(draft, form.ModeCreate, time.Now())); err != nil {
		return err
	}

	t, err := a.tasks.Create(ctx, store.Input{
		Title:       draft.Title,
		Description: draft.Description,
		Status:      draft.Status,
		DueDate:     draft.DueDate,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Created task %d: %s\n", t.ID, t.Title)
	return nil
}

func (a *app) editCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("edit: task id required")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("edit: invalid task id %q", args[0])
	}

	existing, err := a.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !existing.Editable {
		return fmt.Errorf("this task is completed and cannot be edited")
	}

	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	title := fs.String("title", existing.Title, "Task title")
	desc := fs.String("desc", existing.Description, "Task description")
	due := fs.String("due", existing.DueDate, "Due date (YYYY-MM-DD)")
	status := fs.String("status", string(existing.Status), "Status")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	draft := form.Draft{
		Title:       *title,
		Description: *desc,
		DueDate:     *due,
		Status:      task.Status(*status),
	}
	if err := validationError(form.Validate(draft, form.ModeEdit, time.Now())); err != nil {
		return err
	}

	t, err := a.tasks.Update(ctx, id, store.Input{
		Title:       draft.Title,
		Description: draft.Description,
		Status:      draft.Status,
		DueDate:     draft.DueDate,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Updated task %d: %s\n", t.ID, t.Title)
	return nil
}

func (a *app) doneCommand(ctx context.Context, args []string) error {
	id, err := idArg(args, "done")
	if err != nil {
		return err
	}

	t, err := a.tasks.MarkCompleted(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Completed task %d: %s\n", t.ID, t.Title)
	return nil
}

func (a *app) rmCommand(ctx context.Context, args []string) error {
	id, err := idArg(args, "rm")
	if err != nil {
		return err
	}

	if err := a.tasks.Delete(ctx, id); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Deleted task %d\n", id)
	return nil
}

func (a *app) statsCommand(ctx context.Context) error {
	tasks, err := a.tasks.GetAll(ctx, false)
	if err != nil {
		return err
	}

	stats := view.Aggregate(tasks)
	fmt.Fprintf(a.stdout, "Total:       %d\n", stats.Total)
	fmt.Fprintf(a.stdout, "Pending:     %d\n", stats.Pending)
	fmt.Fprintf(a.stdout, "In Progress: %d\n", stats.InProgress)
	fmt.Fprintf(a.stdout, "Completed:   %d\n", stats.Completed)
	return nil
}

func (a *app) refreshCommand(ctx context.Context) error {
	tasks, err := a.tasks.GetAll(ctx, true)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Refreshed %d task(s)\n", len(tasks))
	return nil
}

func idArg(args []string, command string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s: task id required", command)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%s: invalid task id %q", command, args[0])
	}
	return id, nil
}

func validationError(errs []form.FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Message
	}
	return fmt.Errorf("invalid task: %s", strings.Join(msgs, "; "))
}

func tomorrow() string {
	return time.Now().AddDate(0, 0, 1).Format(task.DateLayout)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
