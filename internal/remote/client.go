// Package remote talks to the user directory and task feed collaborators.
//
// Both are JSONPlaceholder-shaped read-only endpoints: GET /users returns
// the full directory, GET /todos?userId=N returns raw task seeds for one
// owner. Requests carry no timeout and are never retried; a network
// failure rejects the pending operation exactly once.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Shahid138/task-manager/internal/task"
)

// DefaultBaseURL is the public JSONPlaceholder instance.
const DefaultBaseURL = "https://jsonplaceholder.typicode.com"

// Seed is a raw task-feed entry. It lacks most Task fields; the task store
// fabricates the rest when it enhances a seed into a full Task.
type Seed struct {
	UserID    int    `json:"userId"`
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Client fetches users and task seeds over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
	header  func() map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithAuthHeader supplies extra headers for each request, typically the
// session's authorization header. The function is consulted per request
// so login and logout take effect immediately.
func WithAuthHeader(fn func() map[string]string) Option {
	return func(c *Client) {
		c.header = fn
	}
}

// NewClient creates a client for the given base URL. An empty baseURL
// falls back to DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Users fetches the full user directory.
func (c *Client) Users(ctx context.Context) ([]task.User, error) {
	var users []task.User
	if err := c.get(ctx, "/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Todos fetches raw task seeds for the given owner id.
func (c *Client) Todos(ctx context.Context, userID int) ([]Seed, error) {
	var seeds []Seed
	path := "/todos?userId=" + strconv.Itoa(userID)
	if err := c.get(ctx, path, &seeds); err != nil {
		return nil, err
	}
	return seeds, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("build request url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.header != nil {
		for k, v := range c.header() {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
