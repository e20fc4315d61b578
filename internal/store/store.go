// Package store owns the authoritative in-memory task collection.
//
// The collection is populated once per process from durable storage or,
// failing that, from the remote task feed, and is mirrored back to durable
// storage after every mutation. Persistence is best-effort: a failed write
// is logged and never surfaced, so a stale cache is an accepted risk.
//
// All entry points serialize on one mutex, so a forced refresh can never
// overlap an in-flight fetch. The last-writer-wins race the browser
// original tolerated does not exist here.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Shahid138/task-manager/internal/remote"
	"github.com/Shahid138/task-manager/internal/storage"
	"github.com/Shahid138/task-manager/internal/task"
)

// TasksKey is the durable-storage key for the collection snapshot.
const TasksKey = "taskapp_tasks"

// ErrFetch is returned when the task feed is unreachable.
var ErrFetch = errors.New("failed to fetch tasks")

// descriptions is the fixed pool used to fabricate descriptions for seeds,
// which carry only a title and a completed flag.
var descriptions = []string{
	"This task requires attention and should be completed as soon as possible.",
	"Please review the requirements and proceed accordingly.",
	"Follow up on this item and ensure all steps are completed.",
	"Important task that needs to be addressed in the current sprint.",
	"Coordinate with team members to complete this task efficiently.",
}

// Feed fetches raw task seeds for an owner; implemented by remote.Client.
type Feed interface {
	Todos(ctx context.Context, userID int) ([]remote.Seed, error)
}

// Sessions resolves the current user; implemented by session.Store.
type Sessions interface {
	CurrentUser() *task.User
}

// Input carries the mutable fields for create and update operations.
// Validation happens upstream in the form package; the store accepts what
// it is given.
type Input struct {
	Title       string
	Description string
	Status      task.Status
	DueDate     string
}

// Store is the task collection owner. Create with New.
type Store struct {
	mu          sync.Mutex
	tasks       []task.Task
	initialized bool

	storage  *storage.Store
	feed     Feed
	sessions Sessions
	logger   *log.Logger

	defaultUserID int
	now           func() time.Time
	rng           *rand.Rand
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithRand overrides the random source used for seed enhancement.
func WithRand(rng *rand.Rand) Option {
	return func(s *Store) {
		s.rng = rng
	}
}

// WithDefaultUserID sets the feed owner id used when no session exists.
func WithDefaultUserID(id int) Option {
	return func(s *Store) {
		if id > 0 {
			s.defaultUserID = id
		}
	}
}

// New creates a task store over durable storage, the task feed, and the
// session store.
func New(st *storage.Store, feed Feed, sessions Sessions, logger *log.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = log.Default()
	}
	s := &Store{
		storage:       st,
		feed:          feed,
		sessions:      sessions,
		logger:        logger,
		defaultUserID: 1,
		now:           time.Now,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAll returns a deep copy of the task collection.
//
// Resolution order: the in-memory cache if initialized, then the last
// durable snapshot, then a fetch from the task feed scoped to the current
// user (or the default owner when logged out). forceRefresh skips the
// first two and always refetches.
func (s *Store) GetAll(ctx context.Context, forceRefresh bool) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx, forceRefresh); err != nil {
		return nil, err
	}
	return task.CloneAll(s.tasks), nil
}

// GetByID returns a copy of the task with the given id.
func (s *Store) GetByID(ctx context.Context, id int) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx, false); err != nil {
		return task.Task{}, err
	}
	for _, t := range s.tasks {
		if t.ID == id {
			return t.Clone(), nil
		}
	}
	return task.Task{}, fmt.Errorf("task %d: %w", id, task.ErrNotFound)
}

// Create builds a new task from in, owned by the current user, and inserts
// it at the front of the collection. The status defaults to Pending. No
// validation happens here; that is the form validator's job upstream.
func (s *Store) Create(ctx context.Context, in Input) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx, false); err != nil {
		return task.Task{}, err
	}

	status := in.Status
	if status == "" {
		status = task.StatusPending
	}

	userID := s.defaultUserID
	if u := s.sessions.CurrentUser(); u != nil {
		userID = u.ID
	}

	t := task.Task{
		ID:          s.nextID(),
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		DueDate:     in.DueDate,
		CreatedAt:   s.now(),
	}
	t.Normalize()

	s.tasks = append([]task.Task{t}, s.tasks...)
	s.persist()

	return t.Clone(), nil
}

// Update overwrites the mutable fields of the task with the given id.
// A completed task is locked: the call fails with task.ErrNotEditable and
// nothing changes.
func (s *Store) Update(ctx context.Context, id int, in Input) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx, false); err != nil {
		return task.Task{}, err
	}

	i := s.indexOf(id)
	if i < 0 {
		return task.Task{}, fmt.Errorf("task %d: %w", id, task.ErrNotFound)
	}
	if !s.tasks[i].Editable {
		return task.Task{}, fmt.Errorf("task %d: %w", id, task.ErrNotEditable)
	}

	now := s.now()
	t := &s.tasks[i]
	t.Title = in.Title
	t.Description = in.Description
	t.Status = in.Status
	t.DueDate = in.DueDate
	t.UpdatedAt = &now
	t.Normalize()

	s.persist()
	return t.Clone(), nil
}

// Delete removes the task with the given id.
func (s *Store) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx, false); err != nil {
		return err
	}

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("task %d: %w", id, task.ErrNotFound)
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	s.persist()
	return nil
}

// MarkCompleted forces the task into the Completed status, stamping
// completedAt and locking it against further edits. An already completed
// task is locked, so completing it twice fails with task.ErrNotEditable.
func (s *Store) MarkCompleted(ctx context.Context, id int) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx, false); err != nil {
		return task.Task{}, err
	}

	i := s.indexOf(id)
	if i < 0 {
		return task.Task{}, fmt.Errorf("task %d: %w", id, task.ErrNotFound)
	}
	if !s.tasks[i].Editable {
		return task.Task{}, fmt.Errorf("task %d: %w", id, task.ErrNotEditable)
	}

	now := s.now()
	t := &s.tasks[i]
	t.Status = task.StatusCompleted
	t.CompletedAt = &now
	t.Normalize()

	s.persist()
	return t.Clone(), nil
}

// ensureLoaded populates the in-memory collection. Caller holds the lock.
func (s *Store) ensureLoaded(ctx context.Context, forceRefresh bool) error {
	if s.initialized && !forceRefresh {
		return nil
	}

	if !forceRefresh {
		if stored := s.loadSnapshot(); len(stored) > 0 {
			s.tasks = stored
			s.initialized = true
			return nil
		}
	}

	userID := s.defaultUserID
	if u := s.sessions.CurrentUser(); u != nil {
		userID = u.ID
	}

	seeds, err := s.feed.Todos(ctx, userID)
	if err != nil {
		s.logger.Error("fetching tasks failed", "userId", userID, "err", err)
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}

	tasks := make([]task.Task, len(seeds))
	for i, seed := range seeds {
		tasks[i] = s.enhance(seed, i)
	}

	s.tasks = tasks
	s.initialized = true
	s.persist()

	s.logger.Info("task collection refreshed", "userId", userID, "count", len(tasks))
	return nil
}

// enhance fabricates the full Task shape from a raw feed seed. Status
// alternates Pending/In Progress by position unless the feed marks the
// seed completed.
func (s *Store) enhance(seed remote.Seed, index int) task.Task {
	status := task.StatusPending
	if index%2 == 1 {
		status = task.StatusInProgress
	}
	if seed.Completed {
		status = task.StatusCompleted
	}

	t := task.Task{
		ID:          seed.ID,
		UserID:      seed.UserID,
		Title:       seed.Title,
		Description: descriptions[s.rng.Intn(len(descriptions))],
		Status:      status,
		DueDate:     s.randomDueDate(),
		CreatedAt:   s.backdatedCreation(),
	}
	t.Normalize()
	return t
}

// randomDueDate picks an ISO date within the next 30 days.
func (s *Store) randomDueDate() string {
	offset := time.Duration(s.rng.Int63n(int64(30 * 24 * time.Hour)))
	return s.now().Add(offset).Format(task.DateLayout)
}

// backdatedCreation picks a creation time within the past 7 days.
func (s *Store) backdatedCreation() time.Time {
	offset := time.Duration(s.rng.Int63n(int64(7 * 24 * time.Hour)))
	return s.now().Add(-offset)
}

func (s *Store) indexOf(id int) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// nextID generates a fresh unique id: one past the highest in use.
func (s *Store) nextID() int {
	max := 0
	for _, t := range s.tasks {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

// persist rewrites the full collection snapshot. Failures are logged, not
// surfaced; callers proceed with the in-memory state. Caller holds the lock.
func (s *Store) persist() {
	data, err := json.Marshal(s.tasks)
	if err != nil {
		s.logger.Warn("encode task snapshot failed", "err", err)
		return
	}
	if err := s.storage.Set(TasksKey, string(data)); err != nil {
		s.logger.Warn("persist task snapshot failed", "err", err)
	}
}

// loadSnapshot reads and validates the last durable snapshot. Invalid
// snapshots are discarded with a warning so the collection is refetched.
func (s *Store) loadSnapshot() []task.Task {
	raw, ok := s.storage.Get(TasksKey)
	if !ok {
		return nil
	}

	result := task.ValidateSnapshot([]byte(raw))
	if !result.Valid {
		for _, err := range result.Errors {
			s.logger.Warn("stored task snapshot invalid", "err", err)
		}
		return nil
	}

	var tasks []task.Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		s.logger.Warn("decode stored task snapshot failed", "err", err)
		return nil
	}
	return tasks
}
