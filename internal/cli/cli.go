// Package cli implements the command-line interface for taskman.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/Shahid138/task-manager/internal/config"
	"github.com/Shahid138/task-manager/internal/logging"
	"github.com/Shahid138/task-manager/internal/remote"
	"github.com/Shahid138/task-manager/internal/session"
	"github.com/Shahid138/task-manager/internal/storage"
	"github.com/Shahid138/task-manager/internal/store"
)

// Version is set via ldflags at build time.
var Version = "dev"

// app bundles the wired components every command works against.
type app struct {
	cfg      *config.Config
	logger   *log.Logger
	sessions *session.Store
	tasks    *store.Store
	stdout   io.Writer
}

// Run executes the taskman CLI.
func Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("taskman", flag.ContinueOnError)
	fs.Usage = func() {
		printUsage(fs, os.Stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	cfg, err := config.Load(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *help {
		printUsage(fs, os.Stdout)
		return nil
	}
	if *showVersion {
		fmt.Printf("taskman %s\n", Version)
		return nil
	}

	subcommand := "list"
	rest := fs.Args()
	if len(rest) > 0 {
		subcommand = rest[0]
		rest = rest[1:]
	}

	a, err := newApp(cfg, os.Stdout)
	if err != nil {
		return err
	}

	switch subcommand {
	case "login":
		return a.loginCommand(ctx, rest)
	case "logout":
		return a.logoutCommand()
	case "whoami":
		return a.whoamiCommand()
	case "list":
		return a.listCommand(ctx, rest)
	case "show":
		return a.showCommand(ctx, rest)
	case "add":
		return a.addCommand(ctx, rest)
	case "edit":
		return a.editCommand(ctx, rest)
	case "done":
		return a.doneCommand(ctx, rest)
	case "rm":
		return a.rmCommand(ctx, rest)
	case "stats":
		return a.statsCommand(ctx)
	case "refresh":
		return a.refreshCommand(ctx)
	case "tui":
		return a.tuiCommand(ctx)
	case "version":
		fmt.Printf("taskman %s\n", Version)
		return nil
	case "help":
		printUsage(fs, os.Stdout)
		return nil
	default:
		printUsage(fs, os.Stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// newApp wires storage, the remote client, and the two stores.
func newApp(cfg *config.Config, stdout io.Writer) (*app, error) {
	logger := logging.New(os.Stderr, logging.Options{
		Level:           cfg.LogLevel,
		Format:          cfg.LogFormat,
		ReportTimestamp: cfg.LogTimestamps,
		Prefix:          config.AppName,
	})

	st, err := storage.Open(cfg.StoragePath())
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	// The remote client and the session store reference each other: the
	// client asks the session for the auth header, the session uses the
	// client as its user directory. The closure breaks the cycle.
	var sessions *session.Store
	client := remote.NewClient(cfg.APIBaseURL, remote.WithAuthHeader(func() map[string]string {
		if sessions == nil {
			return nil
		}
		return sessions.AuthHeader()
	}))
	sessions = session.New(st, client, logger)

	tasks := store.New(st, client, sessions, logger,
		store.WithDefaultUserID(cfg.DefaultUserID))

	return &app{
		cfg:      cfg,
		logger:   logger,
		sessions: sessions,
		tasks:    tasks,
		stdout:   stdout,
	}, nil
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `taskman - personal task manager

Usage:
  taskman [flags] <command> [command flags]

Commands:
  login     Log in against the user directory
  logout    Clear the current session
  whoami    Show the logged-in user
  list      List tasks (default command)
  show      Show one task in full
  add       Create a task
  edit      Edit a task
  done      Mark a task as completed
  rm        Delete a task
  stats     Show task counts by status
  refresh   Re-fetch the collection from the task feed
  tui       Open the interactive terminal interface
  version   Show version
  help      Show this help

Flags:
`)
	fs.SetOutput(w)
	fs.PrintDefaults()
}
