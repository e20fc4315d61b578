package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file (~/.config/taskman/taskman.toml)
// 3. Project config file (taskman.toml or .taskman.toml in current directory)
// 4. Environment variables (TASKMAN_*)
// 5. CLI flags
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}

	setDefaults(cfg)

	if userConfigFile := findUserConfigFile(); userConfigFile != "" {
		if err := loadConfigFile(cfg, userConfigFile); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", userConfigFile, err)
		}
	}

	if projectConfigFile := findProjectConfigFile(); projectConfigFile != "" {
		if err := loadConfigFile(cfg, projectConfigFile); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", projectConfigFile, err)
		}
	}

	loadFromEnv(cfg)

	if err := parseFlags(cfg, fs, args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	cfg.DataDir = expandPath(cfg.DataDir)
	return cfg, nil
}

// findUserConfigFile locates the per-user config file, if any.
func findUserConfigFile() string {
	path := filepath.Join(defaultDataDir(), AppName+".toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// findProjectConfigFile locates a config file in the current directory.
func findProjectConfigFile() string {
	for _, name := range []string{AppName + ".toml", "." + AppName + ".toml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func loadConfigFile(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return err
	}
	return nil
}

// loadFromEnv overrides config from environment variables.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("TASKMAN_API_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("TASKMAN_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TASKMAN_USER_ID"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			cfg.DefaultUserID = i
		}
	}
	if v := os.Getenv("TASKMAN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TASKMAN_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("TASKMAN_LOG_TIMESTAMPS"); v != "" {
		cfg.LogTimestamps = boolFromString(v)
	}
}

// parseFlags registers global flags on fs, parses args, and applies only
// the flags that were explicitly set.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string) error {
	apiURL := fs.String("api-url", cfg.APIBaseURL, "Base URL of the user directory and task feed")
	dataDir := fs.String("data-dir", cfg.DataDir, "Directory for durable local storage")
	userID := fs.Int("user", cfg.DefaultUserID, "Feed owner id used when logged out")
	logLevel := fs.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", cfg.LogFormat, "Log format (text, json)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "api-url":
			cfg.APIBaseURL = *apiURL
		case "data-dir":
			cfg.DataDir = *dataDir
		case "user":
			cfg.DefaultUserID = *userID
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		}
	})
	return nil
}

func boolFromString(v string) bool {
	switch v {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	}
	return false
}
