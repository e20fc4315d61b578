// Package view is the list-presentation engine: pure functions that turn a
// task collection and view parameters into a filtered, sorted projection
// plus aggregate counts. It performs no I/O and never mutates its input.
package view

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Shahid138/task-manager/internal/task"
)

// SortKey selects the field the projection is ordered by.
type SortKey string

const (
	SortByDueDate SortKey = "dueDate"
	SortByTitle   SortKey = "title"
	SortByStatus  SortKey = "status"
)

// Order is the sort direction.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// StatusAll is the status filter value that keeps every task.
const StatusAll = "All"

// Params are the view parameters driving a projection.
type Params struct {
	SearchQuery  string
	StatusFilter string // a status label, "All", or "" for no filtering
	SortBy       SortKey
	SortOrder    Order
}

// Stats are aggregate counts over a collection.
type Stats struct {
	Total      int
	Pending    int
	InProgress int
	Completed  int
}

// Project filters and sorts tasks per p and returns a new slice.
//
// Search keeps tasks whose title or description contains the query,
// case-insensitive. The status filter keeps exact label matches unless it
// is empty or "All". Sorting is stable, so ties keep their relative order.
func Project(tasks []task.Task, p Params) []task.Task {
	filtered := make([]task.Task, 0, len(tasks))

	query := strings.ToLower(p.SearchQuery)
	for _, t := range tasks {
		if query != "" &&
			!strings.Contains(strings.ToLower(t.Title), query) &&
			!strings.Contains(strings.ToLower(t.Description), query) {
			continue
		}
		if p.StatusFilter != "" && p.StatusFilter != StatusAll && string(t.Status) != p.StatusFilter {
			continue
		}
		filtered = append(filtered, t)
	}

	less := lessFunc(p.SortBy)
	if less != nil {
		sort.SliceStable(filtered, func(i, j int) bool {
			if p.SortOrder == OrderDesc {
				return less(filtered[j], filtered[i])
			}
			return less(filtered[i], filtered[j])
		})
	}

	return filtered
}

// lessFunc returns the ascending comparison for key, or nil for an unknown
// key (projection then keeps collection order).
func lessFunc(key SortKey) func(a, b task.Task) bool {
	switch key {
	case SortByDueDate:
		// ISO dates sort chronologically as strings.
		return func(a, b task.Task) bool { return a.DueDate < b.DueDate }
	case SortByTitle:
		return func(a, b task.Task) bool {
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	case SortByStatus:
		return func(a, b task.Task) bool { return a.Status < b.Status }
	}
	return nil
}

// Aggregate counts tasks by status.
func Aggregate(tasks []task.Task) Stats {
	stats := Stats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case task.StatusPending:
			stats.Pending++
		case task.StatusInProgress:
			stats.InProgress++
		case task.StatusCompleted:
			stats.Completed++
		}
	}
	return stats
}

// DaysUntilDue phrases the distance between today and an ISO due date.
// Time of day is ignored on both sides. An empty or malformed date yields "".
func DaysUntilDue(dueDate string, today time.Time) string {
	if dueDate == "" {
		return ""
	}
	due, err := task.ParseDate(dueDate)
	if err != nil {
		return ""
	}

	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	diff := int(due.Sub(day).Hours() / 24)

	switch {
	case diff < 0:
		return fmt.Sprintf("Overdue by %d day(s)", -diff)
	case diff == 0:
		return "Due today"
	case diff == 1:
		return "Due tomorrow"
	default:
		return fmt.Sprintf("Due in %d day(s)", diff)
	}
}
