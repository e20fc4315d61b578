package session

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/Shahid138/task-manager/internal/storage"
	"github.com/Shahid138/task-manager/internal/task"
)

type fakeDirectory struct {
	users []task.User
	err   error
}

func (d *fakeDirectory) Users(ctx context.Context) ([]task.User, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.users, nil
}

func newTestStore(t *testing.T, dir Directory) *Store {
	t.Helper()
	st, err := storage.Open(filepath.Join(t.TempDir(), "storage.json"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	return New(st, dir, log.New(io.Discard))
}

func directoryWithBret() *fakeDirectory {
	return &fakeDirectory{users: []task.User{
		{ID: 1, Name: "Leanne Graham", Username: "Bret", Email: "Sincere@april.biz"},
		{ID: 2, Name: "Ervin Howell", Username: "Antonette", Email: "Shanna@melissa.tv"},
	}}
}

func TestLoginSucceedsCaseInsensitive(t *testing.T) {
	tests := []struct {
		name     string
		username string
	}{
		{name: "exact case", username: "Bret"},
		{name: "lower case", username: "bret"},
		{name: "upper case", username: "BRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, directoryWithBret())

			sess, err := s.Login(context.Background(), tt.username, "anything")
			if err != nil {
				t.Fatalf("Login failed: %v", err)
			}
			if sess.User.ID != 1 || sess.User.Username != "Bret" {
				t.Errorf("unexpected user: %+v", sess.User)
			}
			if sess.Token == "" {
				t.Error("session token is empty")
			}
			if !s.IsAuthenticated() {
				t.Error("IsAuthenticated should be true after login")
			}
		})
	}
}

func TestLoginUnknownUser(t *testing.T) {
	s := newTestStore(t, directoryWithBret())

	_, err := s.Login(context.Background(), "Nobody", "pw")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("got %v, want ErrInvalidCredentials", err)
	}
	if s.IsAuthenticated() {
		t.Error("failed login must not authenticate")
	}
}

func TestLoginMissingCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "empty username", username: "", password: "pw"},
		{name: "empty password", username: "Bret", password: ""},
		{name: "both empty", username: "", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, directoryWithBret())
			_, err := s.Login(context.Background(), tt.username, tt.password)
			if !errors.Is(err, ErrMissingCredentials) {
				t.Errorf("got %v, want ErrMissingCredentials", err)
			}
		})
	}
}

func TestLoginDirectoryDown(t *testing.T) {
	s := newTestStore(t, &fakeDirectory{err: errors.New("connection refused")})

	_, err := s.Login(context.Background(), "Bret", "pw")
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("got %v, want ErrServiceUnavailable", err)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	s := newTestStore(t, directoryWithBret())

	if _, err := s.Login(context.Background(), "Bret", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	s.Logout()

	if s.IsAuthenticated() {
		t.Error("IsAuthenticated should be false after logout")
	}
	if s.CurrentUser() != nil {
		t.Error("CurrentUser should be nil after logout")
	}
	if len(s.AuthHeader()) != 0 {
		t.Error("AuthHeader should be empty after logout")
	}
}

func TestCurrentUserAndAuthHeader(t *testing.T) {
	s := newTestStore(t, directoryWithBret())

	if s.CurrentUser() != nil {
		t.Error("CurrentUser should be nil before login")
	}

	sess, err := s.Login(context.Background(), "bret", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	u := s.CurrentUser()
	if u == nil || u.ID != 1 {
		t.Fatalf("unexpected current user: %+v", u)
	}

	header := s.AuthHeader()
	if header["Authorization"] != "Bearer "+sess.Token {
		t.Errorf("auth header: got %q", header["Authorization"])
	}
}

func TestEvents(t *testing.T) {
	s := newTestStore(t, directoryWithBret())

	var events []Event
	s.Subscribe(func(e Event, _ *task.User) {
		events = append(events, e)
	})

	if _, err := s.Login(context.Background(), "Bret", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	s.Logout()

	want := []Event{EventLoginSuccess, EventLogout}
	if len(events) != len(want) {
		t.Fatalf("events: got %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, events[i], want[i])
		}
	}
}

func TestSessionSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	st, err := storage.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s := New(st, directoryWithBret(), log.New(io.Discard))

	if _, err := s.Login(context.Background(), "Bret", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	reopened, err := storage.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s2 := New(reopened, directoryWithBret(), log.New(io.Discard))

	if !s2.IsAuthenticated() {
		t.Error("session should survive a process restart")
	}
	if u := s2.CurrentUser(); u == nil || u.Username != "Bret" {
		t.Errorf("unexpected persisted user: %+v", u)
	}
}
