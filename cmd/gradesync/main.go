// Command gradesync computes per-student averages from the grading API and
// writes them back as grades for one course at a time.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/target/gradesync/config"
	"github.com/target/gradesync/internal/bootstrap"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Stdin  io.Reader
	Stdout io.Writer
}

// errUsage marks a command line error; main exits with exitUsage.
var errUsage = errors.New("usage error")

func main() {
	os.Exit(run(os.Args[1:])) //nolint:forbidigo // CLI exit status
}

func run(args []string) int {
	if len(args) < 1 {
		printUsage(os.Stderr)
		return exitUsage
	}
	name := args[0]
	cmd, ok := commands()[name]
	if !ok {
		writef(os.Stderr, "unknown command %q\n\n", name)
		printUsage(os.Stderr)
		return exitUsage
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		writef(os.Stderr, "load config: %v\n", err)
		return exitFailure
	}
	logger := bootstrap.InitLogger(os.Stderr, cfg.LogLevel, cfg.IsDev)

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}
	if runErr := cmd.run(cmdCtx, args[1:]); runErr != nil {
		if errors.Is(runErr, errUsage) || errors.Is(runErr, flag.ErrHelp) {
			return exitUsage
		}
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", name, "error", runErr)
		return exitFailure
	}
	return exitOK
}

func commands() map[string]command {
	return map[string]command{
		"run": {
			name:        "run",
			description: "Synchronize a course, resuming an interrupted run when one exists",
			run:         runSync,
		},
		"status": {
			name:        "status",
			description: "Show the persisted run state, lease holder and last success of a course",
			run:         runStatus,
		},
		"cancel": {
			name:        "cancel",
			description: "Clear the persisted run state of a course",
			run:         runCancel,
		},
		"history": {
			name:        "history",
			description: "List recent runs of a course (requires Postgres)",
			run:         runHistory,
		},
		"migrate": {
			name:        "migrate",
			description: "Apply the run history database migrations",
			run:         runMigrations,
		},
	}
}

func printUsage(w io.Writer) {
	writef(w, "Usage: gradesync <command> [flags]\n\nAvailable commands:\n")
	names := make([]string, 0, len(commands()))
	for name := range commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		writef(w, "  %-10s %s\n", name, commands()[name].description)
	}
}

func writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
