package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/target/gradesync/internal/adapters/prompt"
	"github.com/target/gradesync/internal/adapters/status"
	"github.com/target/gradesync/internal/bootstrap"
	"github.com/target/gradesync/internal/core"
	"github.com/target/gradesync/internal/domain/model"
	"github.com/target/gradesync/internal/service"
)

const defaultMigrationTimeout = 5 * time.Minute

type runOptions struct {
	CourseID string
	Target   model.Target
	ZeroOut  bool
	Yes      bool
	Quiet    bool
	JSON     bool
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func parseRunFlags(args []string, out io.Writer) (runOptions, error) {
	var opts runOptions
	fs := newFlagSet("run", out)
	fs.StringVar(&opts.CourseID, "course", "", "course id (required)")
	fs.StringVar(&opts.Target.MetricID, "target", "", "outcome id receiving the average (required)")
	fs.StringVar(&opts.Target.AssignmentID, "assignment", "", "assignment id graded through the rubric (required)")
	fs.StringVar(&opts.Target.CriterionID, "criterion", "", "rubric criterion id of the target outcome (required)")
	fs.BoolVar(&opts.ZeroOut, "zero-out", false, "write 0 for every student (test mode only)")
	fs.BoolVar(&opts.Yes, "yes", false, "do not ask to confirm the target setup")
	fs.BoolVar(&opts.Quiet, "quiet", false, "log progress instead of printing it")
	fs.BoolVar(&opts.JSON, "json", false, "print the final report as JSON")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.CourseID = strings.TrimSpace(opts.CourseID)
	if opts.CourseID == "" {
		return opts, fmt.Errorf("%w: --course is required", errUsage)
	}
	if err := opts.Target.Validate(); err != nil {
		return opts, fmt.Errorf("%w: %v", errUsage, err)
	}
	return opts, nil
}

func parseCourseFlag(name string, args []string, out io.Writer, extra func(*flag.FlagSet)) (string, error) {
	var courseID string
	fs := newFlagSet(name, out)
	fs.StringVar(&courseID, "course", "", "course id (required)")
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return "", fmt.Errorf("%w: --course is required", errUsage)
	}
	return courseID, nil
}

func runSync(cmdCtx *commandContext, args []string) error {
	opts, err := parseRunFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	// An interrupted run keeps its persisted state; the next run resumes it.
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		reporter core.StatusReporter = status.NewLog(cmdCtx.Logger)
		term     *status.Terminal
	)
	if !opts.Quiet {
		term = status.NewTerminal(status.TerminalOptions{Out: cmdCtx.Stdout, Logger: cmdCtx.Logger})
		defer term.Close()
		reporter = status.Multi{term, reporter}
	}

	eng, err := bootstrap.NewEngine(ctx, bootstrap.EngineOptions{
		Config:       cmdCtx.Config,
		Logger:       cmdCtx.Logger,
		Reporter:     reporter,
		Prerequisite: &prompt.Confirm{In: cmdCtx.Stdin, Out: cmdCtx.Stdout, AssumeYes: opts.Yes},
	})
	if err != nil {
		return err
	}
	defer closeEngine(cmdCtx, eng)

	report, runErr := eng.Orchestrator.Run(ctx, service.RunRequest{
		CourseID: opts.CourseID,
		Target:   opts.Target,
		ZeroOut:  opts.ZeroOut,
	})
	if report != nil {
		// Flush queued progress lines before the summary.
		if term != nil {
			term.Close()
		}
		if opts.JSON {
			if err = writeJSON(cmdCtx.Stdout, report); err != nil {
				return err
			}
		} else {
			printReport(cmdCtx.Stdout, report)
		}
	}
	return runErr
}

func runStatus(cmdCtx *commandContext, args []string) error {
	var asJSON bool
	courseID, err := parseCourseFlag("status", args, os.Stderr, func(fs *flag.FlagSet) {
		fs.BoolVar(&asJSON, "json", false, "print as JSON")
	})
	if err != nil {
		return err
	}
	eng, err := bootstrap.NewEngine(cmdCtx.Ctx, bootstrap.EngineOptions{Config: cmdCtx.Config, Logger: cmdCtx.Logger})
	if err != nil {
		return err
	}
	defer closeEngine(cmdCtx, eng)

	st, err := eng.Orchestrator.Status(cmdCtx.Ctx, courseID)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmdCtx.Stdout, st)
	}
	printStatus(cmdCtx.Stdout, st, time.Now())
	return nil
}

func runCancel(cmdCtx *commandContext, args []string) error {
	courseID, err := parseCourseFlag("cancel", args, os.Stderr, nil)
	if err != nil {
		return err
	}
	eng, err := bootstrap.NewEngine(cmdCtx.Ctx, bootstrap.EngineOptions{Config: cmdCtx.Config, Logger: cmdCtx.Logger})
	if err != nil {
		return err
	}
	defer closeEngine(cmdCtx, eng)

	if err = eng.Orchestrator.Cancel(cmdCtx.Ctx, courseID); err != nil {
		return err
	}
	writef(cmdCtx.Stdout, "Run state for course %s cleared\n", courseID)
	return nil
}

func runHistory(cmdCtx *commandContext, args []string) error {
	limit := 20
	courseID, err := parseCourseFlag("history", args, os.Stderr, func(fs *flag.FlagSet) {
		fs.IntVar(&limit, "limit", limit, "maximum number of runs")
	})
	if err != nil {
		return err
	}
	eng, err := bootstrap.NewEngine(cmdCtx.Ctx, bootstrap.EngineOptions{Config: cmdCtx.Config, Logger: cmdCtx.Logger})
	if err != nil {
		return err
	}
	defer closeEngine(cmdCtx, eng)

	records, err := eng.Orchestrator.History(cmdCtx.Ctx, courseID, limit)
	if err != nil {
		return err
	}
	return printHistory(cmdCtx.Stdout, records)
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	timeout := defaultMigrationTimeout
	fs := newFlagSet("migrate", os.Stderr)
	fs.DurationVar(&timeout, "timeout", timeout, "migration timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(ctx, cmdCtx.Config.Postgres, cmdCtx.Logger)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()
	return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
}

func closeEngine(cmdCtx *commandContext, eng *bootstrap.Engine) {
	if err := eng.Close(); err != nil {
		cmdCtx.Logger.Warn("engine close failed", "error", err)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
