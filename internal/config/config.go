// Package config handles configuration loading and defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// AppName is the application directory and config file base name.
const AppName = "taskman"

// Default values.
const (
	DefaultAPIBaseURL  = "https://jsonplaceholder.typicode.com"
	DefaultUserID      = 1
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultStorageFile = "storage.json"
)

// Config holds the full configuration for taskman.
type Config struct {
	// APIBaseURL is the base URL of the user directory and task feed.
	APIBaseURL string `toml:"api_base_url"`

	// DataDir holds durable local storage (session, task snapshot).
	DataDir string `toml:"data_dir"`

	// DefaultUserID scopes the task feed when no session exists.
	DefaultUserID int `toml:"default_user_id"`

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`
}

// setDefaults fills cfg with default values.
func setDefaults(cfg *Config) {
	cfg.APIBaseURL = DefaultAPIBaseURL
	cfg.DataDir = defaultDataDir()
	cfg.DefaultUserID = DefaultUserID
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = DefaultLogFormat
}

// StoragePath returns the durable storage file path.
func (c *Config) StoragePath() string {
	return filepath.Join(c.DataDir, DefaultStorageFile)
}

// defaultDataDir returns XDG_CONFIG_HOME/taskman or $HOME/.config/taskman.
func defaultDataDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fall back to a project-local directory.
		return "." + AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// expandPath expands a leading ~/ and environment variables in paths.
func expandPath(p string) string {
	if p == "" {
		return p
	}
	expanded := os.ExpandEnv(p)
	if expanded == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return expanded
		}
		return home
	}
	if strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return expanded
		}
		return filepath.Join(home, expanded[2:])
	}
	return expanded
}
