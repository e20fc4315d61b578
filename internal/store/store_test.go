package store

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Shahid138/task-manager/internal/remote"
	"github.com/Shahid138/task-manager/internal/storage"
	"github.com/Shahid138/task-manager/internal/task"
)

type fakeFeed struct {
	seeds []remote.Seed
	err   error
	calls int
	owner int
}

func (f *fakeFeed) Todos(ctx context.Context, userID int) ([]remote.Seed, error) {
	f.calls++
	f.owner = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.seeds, nil
}

type fakeSessions struct {
	user *task.User
}

func (s *fakeSessions) CurrentUser() *task.User {
	return s.user
}

var testClock = func() time.Time {
	return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
}

func defaultSeeds() []remote.Seed {
	return []remote.Seed{
		{UserID: 1, ID: 1, Title: "delectus aut autem", Completed: false},
		{UserID: 1, ID: 2, Title: "quis ut nam facilis", Completed: false},
		{UserID: 1, ID: 3, Title: "fugiat veniam minus", Completed: true},
	}
}

func newTestStore(t *testing.T, feed Feed, sessions Sessions) *Store {
	t.Helper()
	st, err := storage.Open(filepath.Join(t.TempDir(), "storage.json"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	return newStoreOver(st, feed, sessions)
}

func newStoreOver(st *storage.Store, feed Feed, sessions Sessions) *Store {
	if sessions == nil {
		sessions = &fakeSessions{}
	}
	return New(st, feed, sessions, log.New(io.Discard),
		WithClock(testClock),
		WithRand(rand.New(rand.NewSource(1))))
}

func checkInvariants(t *testing.T, tasks ...task.Task) {
	t.Helper()
	for _, tk := range tasks {
		if tk.Completed != (tk.Status == task.StatusCompleted) {
			t.Errorf("task %d: completed=%v does not match status %q", tk.ID, tk.Completed, tk.Status)
		}
		if tk.Editable != !tk.Completed {
			t.Errorf("task %d: editable=%v does not match completed=%v", tk.ID, tk.Editable, tk.Completed)
		}
	}
}

func TestGetAllEnhancesSeeds(t *testing.T) {
	feed := &fakeFeed{seeds: defaultSeeds()}
	s := newTestStore(t, feed, nil)

	tasks, err := s.GetAll(context.Background(), false)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("tasks count: got %d, want 3", len(tasks))
	}
	checkInvariants(t, tasks...)

	// Status alternates by position; a completed seed forces Completed.
	wantStatus := []task.Status{task.StatusPending, task.StatusInProgress, task.StatusCompleted}
	for i, tk := range tasks {
		if tk.Status != wantStatus[i] {
			t.Errorf("task %d status: got %q, want %q", i, tk.Status, wantStatus[i])
		}
	}

	now := testClock()
	for _, tk := range tasks {
		due, err := task.ParseDate(tk.DueDate)
		if err != nil {
			t.Fatalf("task %d due date %q: %v", tk.ID, tk.DueDate, err)
		}
		if due.Before(now.AddDate(0, 0, -1)) || due.After(now.AddDate(0, 0, 31)) {
			t.Errorf("task %d due date %q outside the next 30 days", tk.ID, tk.DueDate)
		}
		if tk.CreatedAt.After(now) || tk.CreatedAt.Before(now.AddDate(0, 0, -7)) {
			t.Errorf("task %d createdAt %v outside the past 7 days", tk.ID, tk.CreatedAt)
		}
		if tk.Description == "" {
			t.Errorf("task %d has no fabricated description", tk.ID)
		}
	}
}

func TestGetAllCachesInMemory(t *testing.T) {
	feed := &fakeFeed{seeds: defaultSeeds()}
	s := newTestStore(t, feed, nil)
	ctx := context.Background()

	if _, err := s.GetAll(ctx, false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetAll(ctx, false); err != nil {
		t.Fatal(err)
	}
	if feed.calls != 1 {
		t.Errorf("feed calls: got %d, want 1", feed.calls)
	}
}

func TestGetAllLoadsFromDurableStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	st, err := storage.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	feed := &fakeFeed{seeds: defaultSeeds()}
	ctx := context.Background()

	if _, err := newStoreOver(st, feed, nil).GetAll(ctx, false); err != nil {
		t.Fatal(err)
	}

	// A second store over the same file must not hit the feed.
	st2, err := storage.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	tasks, err := newStoreOver(st2, feed, nil).GetAll(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if feed.calls != 1 {
		t.Errorf("feed calls: got %d, want 1", feed.calls)
	}
	if len(tasks) != 3 {
		t.Errorf("tasks count after reload: got %d, want 3", len(tasks))
	}
	checkInvariants(t, tasks...)
}

func TestGetAllForceRefresh(t *testing.T) {
	feed := &fakeFeed{seeds: defaultSeeds()}
	s := newTestStore(t, feed, nil)
	ctx := context.Background()

	if _, err := s.GetAll(ctx, false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetAll(ctx, true); err != nil {
		t.Fatal(err)
	}
	if feed.calls != 2 {
		t.Errorf("feed calls: got %d, want 2", feed.calls)
	}
}

func TestGetAllFeedOwner(t *testing.T) {
	t.Run("defaults to owner 1 without a session", func(t *testing.T) {
		feed := &fakeFeed{seeds: defaultSeeds()}
		s := newTestStore(t, feed, &fakeSessions{})
		if _, err := s.GetAll(context.Background(), false); err != nil {
			t.Fatal(err)
		}
		if feed.owner != 1 {
			t.Errorf("feed owner: got %d, want 1", feed.owner)
		}
	})

	t.Run("uses the session user's id", func(t *testing.T) {
		feed := &fakeFeed{seeds: defaultSeeds()}
		s := newTestStore(t, feed, &fakeSessions{user: &task.User{ID: 7}})
		if _, err := s.GetAll(context.Background(), false); err != nil {
			t.Fatal(err)
		}
		if feed.owner != 7 {
			t.Errorf("feed owner: got %d, want 7", feed.owner)
		}
	})
}

func TestGetAllFeedUnreachable(t *testing.T) {
	s := newTestStore(t, &fakeFeed{err: errors.New("connection refused")}, nil)

	_, err := s.GetAll(context.Background(), false)
	if !errors.Is(err, ErrFetch) {
		t.Errorf("got %v, want ErrFetch", err)
	}
}

func TestGetAllReturnsDeepCopy(t *testing.T) {
	s := newTestStore(t, &fakeFeed{seeds: defaultSeeds()}, nil)
	ctx := context.Background()

	first, err := s.GetAll(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	first[0].Title = "mutated by caller"

	again, err := s.GetAll(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if again[0].Title == "mutated by caller" {
		t.Error("caller mutation leaked into the store's collection")
	}
}

func TestGetByID(t *testing.T) {
	s := newTestStore(t, &fakeFeed{seeds: defaultSeeds()}, nil)
	ctx := context.Background()

	tk, err := s.GetByID(ctx, 2)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if tk.Title != "quis ut nam facilis" {
		t.Errorf("title: got %q", tk.Title)
	}

	if _, err := s.GetByID(ctx, 999); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestCreateRoundTrip(t *testing.T) {
	s := newTestStore(t, &fakeFeed{seeds: defaultSeeds()}, &fakeSessions{user: &task.User{ID: 4}})
	ctx := context.Background()

	in := Input{
		Title:       "Write the report",
		Description: "Quarterly report for the team",
		Status:      task.StatusInProgress,
		DueDate:     "2026-09-10",
	}
	created, err := s.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	checkInvariants(t, created)

	got, err := s.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID after Create failed: %v", err)
	}
	if got.Title != in.Title || got.Description != in.Description ||
		got.Status != in.Status || got.DueDate != in.DueDate {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.UserID != 4 {
		t.Errorf("owner: got %d, want 4", got.UserID)
	}
	if !got.CreatedAt.Equal(testClock()) {
		t.Errorf("createdAt: got %v", got.CreatedAt)
	}

	// New tasks are inserted at the front.
	all, err := s.GetAll(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if all[0].ID != created.ID {
		t.Errorf("new task not at the front: first id is %d", all[0].ID)
	}
}

func TestCreateDefaultsToPending(t *testing.T) {
	s := newTestStore(t, &fakeFeed{}, nil)

	created, err := s.Create(context.Background(), Input{Title: "no status"})
	if err != nil {
		t.Fatal(err)
	}
	if created.Status != task.StatusPending {
		t.Errorf("status: got %q, want Pending", created.Status)
	}
	checkInvariants(t, created)
}

func TestCreateCompletedIsLockedImmediately(t *testing.T) {
	s := newTestStore(t, &fakeFeed{}, nil)

	created, err := s.Create(context.Background(), Input{
		Title:  "already done",
		Status: task.StatusCompleted,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !created.Completed || created.Editable {
		t.Errorf("want completed and locked, got completed=%v editable=%v",
			created.Completed, created.Editable)
	}
}

func TestCreateGeneratesUniqueIDs(t *testing.T) {
	s := newTestStore(t, &fakeFeed{seeds: defaultSeeds()}, nil)
	ctx := context.Background()

	seen := map[int]bool{1: true, 2: true, 3: true}
	for i := 0; i < 5; i++ {
		created, err := s.Create(ctx, Input{Title: "another"})
		if err != nil {
			t.Fatal(err)
		}
		if seen[created.ID] {
			t.Fatalf("duplicate id %d", created.ID)
		}
		seen[created.ID] = true
	}
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t, &fakeFeed{seeds: defaultSeeds()}, nil)
	ctx := context.Background()

	updated, err := s.Update(ctx, 1, Input{
		Title:       "renamed",
		Description: "new description",
		Status:      task.StatusCompleted,
		DueDate:     "2026-09-01",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	checkInvariants(t, updated)
	if updated.UpdatedAt == nil || !updated.UpdatedAt.Equal(testClock()) {
		t.Errorf("updatedAt not stamped: %v", updated.UpdatedAt)
	}
	if updated.Editable {
		t.Error("updating to Completed must lock the task")
	}
}

func TestUpdateNotFound(t *testing.T) {
	s := newTestStore(t, &fakeFeed{seeds: defaultSeeds()}, nil)

	_, err := s.Update(context.Background(), 999, Input{Title: "x"})
	if !errors.Is(err, task.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestUpdateCompletedTaskRejected(t *testing.T) {
	s := newTestStore(t, &fakeFeed{seeds: defaultSeeds()}, nil)
	ctx := context.Background()

	// Seed 3 is completed, hence locked.
	before, err := s.GetByID(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Update(ctx, 3, Input{Title: "sneaky edit"})
	if !errors.Is(err, task.ErrNotEditable) {
		t.Fatalf("got %v, want ErrNotEditable", err)
	}

	after, err := s.GetByID(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if after.Title != before.Title || after.UpdatedAt != nil {
		t.Error("rejected update must leave the stored task unchanged")
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t, &fakeFeed{seeds: defaultSeeds()}, nil)
	ctx := context.Background()

	if err := s.Delete(ctx, 2); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.GetByID(ctx, 2); !errors.Is(err, task.ErrNotFound) {
		t.Error("deleted task still present")
	}

	if err := s.Delete(ctx, 2); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestMarkCompleted(t *testing.T) {
	s := newTestStore(t, &fakeFeed{seeds: defaultSeeds()}, nil)
	ctx := context.Background()

	done, err := s.MarkCompleted(ctx, 1)
	if err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	checkInvariants(t, done)
	if done.Status != task.StatusCompleted {
		t.Errorf("status: got %q", done.Status)
	}
	if done.CompletedAt == nil || !done.CompletedAt.Equal(testClock()) {
		t.Errorf("completedAt not stamped: %v", done.CompletedAt)
	}

	// A completed task is locked; completing again is rejected.
	if _, err := s.MarkCompleted(ctx, 1); !errors.Is(err, task.ErrNotEditable) {
		t.Errorf("got %v, want ErrNotEditable", err)
	}

	if _, err := s.MarkCompleted(ctx, 999); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestMutationsPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	st, err := storage.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	feed := &fakeFeed{seeds: defaultSeeds()}
	s := newStoreOver(st, feed, nil)
	ctx := context.Background()

	if _, err := s.MarkCompleted(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, 2); err != nil {
		t.Fatal(err)
	}

	// A fresh store over the same file sees the mutated collection.
	st2, err := storage.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	tasks, err := newStoreOver(st2, feed, nil).GetAll(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("tasks count after reload: got %d, want 2", len(tasks))
	}
	for _, tk := range tasks {
		if tk.ID == 1 && !tk.Completed {
			t.Error("completion was not persisted")
		}
		if tk.ID == 2 {
			t.Error("deletion was not persisted")
		}
	}
}

func TestCorruptSnapshotTriggersRefetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	st, err := storage.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Set(TasksKey, `[{"id":"not a number"}]`); err != nil {
		t.Fatal(err)
	}

	feed := &fakeFeed{seeds: defaultSeeds()}
	tasks, err := newStoreOver(st, feed, nil).GetAll(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if feed.calls != 1 {
		t.Errorf("feed calls: got %d, want 1 (corrupt snapshot should refetch)", feed.calls)
	}
	if len(tasks) != 3 {
		t.Errorf("tasks count: got %d, want 3", len(tasks))
	}
}
