// Package session holds the current authentication state.
//
// Login is a mock identity check: the external user directory is fetched
// and the username matched case-insensitively. No password verification
// happens; the issued token is a locally signed artifact that anyone with
// the binary could mint. It exists so downstream requests can carry a
// plausible bearer header, nothing more.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Shahid138/task-manager/internal/storage"
	"github.com/Shahid138/task-manager/internal/task"
)

// Storage keys for the persisted session.
const (
	TokenKey = "taskapp_auth_token"
	UserKey  = "taskapp_user_data"
)

// mockSigningKey signs session tokens. It ships in the binary, so the
// token is not a security credential.
var mockSigningKey = []byte("taskapp-mock-secret")

var (
	// ErrMissingCredentials is returned when username or password is empty.
	ErrMissingCredentials = errors.New("username and password are required")

	// ErrInvalidCredentials is returned when no directory user matches.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrServiceUnavailable is returned when the directory cannot be reached.
	ErrServiceUnavailable = errors.New("authentication service unavailable")
)

// Event is a signal emitted on authentication state changes. Consumers
// (the TUI, navigation) subscribe to switch views; the store itself never
// navigates.
type Event string

const (
	EventLoginSuccess Event = "login:success"
	EventLogout       Event = "logout"
)

// Directory lists all users; implemented by remote.Client.
type Directory interface {
	Users(ctx context.Context) ([]task.User, error)
}

// Store gates access to the rest of the application.
type Store struct {
	storage   *storage.Store
	directory Directory
	logger    *log.Logger

	now  func() time.Time
	subs []func(Event, *task.User)
}

// New creates a session store over the given durable storage and user
// directory.
func New(st *storage.Store, dir Directory, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		storage:   st,
		directory: dir,
		logger:    logger,
		now:       time.Now,
	}
}

// Subscribe registers a callback for authentication events. Callbacks run
// synchronously in the order registered.
func (s *Store) Subscribe(fn func(Event, *task.User)) {
	s.subs = append(s.subs, fn)
}

// Login checks the credentials against the user directory and persists a
// session on success. The match is on username only, case-insensitive.
func (s *Store) Login(ctx context.Context, username, password string) (*task.Session, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	users, err := s.directory.Users(ctx)
	if err != nil {
		s.logger.Warn("user directory unreachable", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	for _, u := range users {
		if !strings.EqualFold(u.Username, username) {
			continue
		}

		token, err := s.mintToken(u)
		if err != nil {
			return nil, fmt.Errorf("mint session token: %w", err)
		}

		userData, err := json.Marshal(u)
		if err != nil {
			return nil, fmt.Errorf("encode user record: %w", err)
		}
		if err := s.storage.Set(TokenKey, token); err != nil {
			s.logger.Warn("persist session token failed", "err", err)
		}
		if err := s.storage.Set(UserKey, string(userData)); err != nil {
			s.logger.Warn("persist user record failed", "err", err)
		}

		s.logger.Info("login succeeded", "user", u.Username, "id", u.ID)
		s.emit(EventLoginSuccess, &u)

		return &task.Session{Token: token, User: u}, nil
	}

	return nil, ErrInvalidCredentials
}

// Logout clears the persisted session. Always succeeds.
func (s *Store) Logout() {
	if err := s.storage.Remove(TokenKey); err != nil {
		s.logger.Warn("clear session token failed", "err", err)
	}
	if err := s.storage.Remove(UserKey); err != nil {
		s.logger.Warn("clear user record failed", "err", err)
	}
	s.logger.Info("logged out")
	s.emit(EventLogout, nil)
}

// IsAuthenticated reports whether a session token is present.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// Token returns the persisted session token, or "".
func (s *Store) Token() string {
	token, _ := s.storage.Get(TokenKey)
	return token
}

// CurrentUser returns the persisted user record, or nil when logged out
// or when the record cannot be decoded.
func (s *Store) CurrentUser() *task.User {
	data, ok := s.storage.Get(UserKey)
	if !ok {
		return nil
	}
	var u task.User
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		s.logger.Warn("decode persisted user record failed", "err", err)
		return nil
	}
	return &u
}

// AuthHeader returns the authorization header for the current session, or
// an empty map when unauthenticated.
func (s *Store) AuthHeader() map[string]string {
	token := s.Token()
	if token == "" {
		return map[string]string{}
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

type tokenClaims struct {
	UserID   int    `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (s *Store) mintToken(u task.User) (string, error) {
	claims := tokenClaims{
		UserID:   u.ID,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(mockSigningKey)
}

func (s *Store) emit(event Event, user *task.User) {
	for _, fn := range s.subs {
		fn(event, user)
	}
}
