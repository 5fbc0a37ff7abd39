package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/gradesync/internal/core"
	"github.com/target/gradesync/internal/domain/model"
	apperrors "github.com/target/gradesync/internal/errors"
	"github.com/target/gradesync/internal/observability/metrics"
	"github.com/target/gradesync/internal/observability/statsd"
)

// overridePropagation is the enqueue side of the override worker pool.
type overridePropagation interface {
	Propagate(courseID, userID string, average float64) bool
}

// bulkJobAPI is the slice of the grading API the bulk path needs.
type bulkJobAPI interface {
	core.BulkWriter
	core.JobReader
}

// PollConfig bounds job polling.
type PollConfig struct {
	Interval time.Duration
	// Timeout is measured from the run's start time, not from the first poll.
	Timeout time.Duration
}

// BulkJobPorts are the collaborators of BulkJobService.
type BulkJobPorts struct {
	API        bulkJobAPI          // Required: bulk submit and job status
	Propagator overridePropagation // Optional: override fan-out per delta
	Reporter   core.StatusReporter // Optional: progress sink
	Clock      core.TimeProvider   // Optional: defaults to wall clock
}

// BulkJobServiceOptions groups dependencies for BulkJobService.
type BulkJobServiceOptions struct {
	Ports   BulkJobPorts
	Config  PollConfig
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// BulkJobService submits batch writes and polls the resulting job to a terminal state.
type BulkJobService struct {
	ports   BulkJobPorts
	config  PollConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewBulkJobService constructs a BulkJobService.
func NewBulkJobService(opts BulkJobServiceOptions) (*BulkJobService, error) {
	if opts.Ports.API == nil {
		return nil, errors.New("bulk job API is required")
	}
	ports := opts.Ports
	if ports.Clock == nil {
		ports.Clock = wallClock{}
	}
	cfg := opts.Config
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &BulkJobService{
		ports:   ports,
		config:  cfg,
		logger:  logger.With("component", "bulk_job_service"),
		metrics: opts.Metrics,
	}, nil
}

// Submit sends every delta as one batch and returns the remote job id.
// Overrides are enqueued for each delta once the job is accepted. Any
// submission error is fatal to the run.
func (s *BulkJobService) Submit(
	ctx context.Context,
	courseID string,
	target model.Target,
	deltas []model.ScoreDelta,
) (string, error) {
	writes := make([]model.ScoreWrite, 0, len(deltas))
	for _, d := range deltas {
		writes = append(writes, model.ScoreWrite{
			CourseID: courseID,
			Target:   target,
			UserID:   d.UserID,
			Score:    d.Average,
		})
	}

	handle, err := s.ports.API.SubmitBulk(ctx, courseID, writes)
	if err != nil {
		metrics.EmitAttempt(s.metrics, "bulk_submit", metrics.ResultError, err)
		return "", apperrors.Wrap(err, apperrors.ErrCodeFatalSubmission, "bulk submission failed")
	}
	if handle == nil || handle.ID == "" {
		metrics.EmitAttempt(s.metrics, "bulk_submit", metrics.ResultError, nil)
		return "", &apperrors.AppError{
			Code:    apperrors.ErrCodeFatalSubmission,
			Message: "bulk submission failed: remote returned no job id",
		}
	}
	metrics.EmitAttempt(s.metrics, "bulk_submit", metrics.ResultSuccess, nil)
	s.logger.InfoContext(ctx, "bulk job submitted",
		"course_id", courseID,
		"job_id", handle.ID,
		"records", len(writes),
	)

	if s.ports.Propagator != nil {
		for _, d := range deltas {
			s.ports.Propagator.Propagate(courseID, d.UserID, d.Average)
		}
	}
	return handle.ID, nil
}

// Poll observes jobID until it completes, fails or the budget measured from
// startTime runs out. Read errors are logged and polled through.
func (s *BulkJobService) Poll(
	ctx context.Context,
	courseID, jobID string,
	startTime time.Time,
) (*model.JobHandle, error) {
	for {
		elapsed := s.ports.Clock.Now().Sub(startTime)
		if elapsed >= s.config.Timeout {
			return nil, apperrors.Timeoutf(
				"bulk job %s did not finish within %s; it may still complete, and a fresh run is safe because writes are idempotent",
				jobID, s.config.Timeout)
		}

		handle, err := s.ports.API.GetJob(ctx, jobID)
		if err == nil && handle == nil {
			err = errors.New("remote returned an empty job handle")
		}
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.EmitAttempt(s.metrics, "job_poll", metrics.ResultError, err)
			s.logger.WarnContext(ctx, "poll bulk job failed",
				"course_id", courseID,
				"job_id", jobID,
				"elapsed", elapsed,
				"error", err,
			)
		case handle.State == model.JobStateCompleted:
			metrics.EmitAttempt(s.metrics, "job_poll", metrics.ResultSuccess, nil)
			s.logger.InfoContext(ctx, "bulk job completed",
				"course_id", courseID,
				"job_id", jobID,
				"elapsed", elapsed,
				"completed_at", s.ports.Clock.Now(),
			)
			s.report(ctx, courseID, fmt.Sprintf("Bulk job completed after %s", formatElapsed(elapsed)), elapsed, handle)
			return handle, nil
		case handle.State == model.JobStateFailed:
			metrics.EmitAttempt(s.metrics, "job_poll", metrics.ResultSuccess, nil)
			return handle, apperrors.JobFailed(jobID, handle.Message)
		default:
			metrics.EmitAttempt(s.metrics, "job_poll", metrics.ResultSuccess, nil)
			s.report(ctx, courseID,
				fmt.Sprintf("Bulk job %s (%s elapsed)", handle.State, formatElapsed(elapsed)),
				elapsed, handle)
		}

		if err := sleepCtx(ctx, s.config.Interval); err != nil {
			return nil, err
		}
	}
}

func (s *BulkJobService) report(
	ctx context.Context,
	courseID, message string,
	elapsed time.Duration,
	handle *model.JobHandle,
) {
	if s.ports.Reporter == nil {
		return
	}
	st := model.Status{
		CourseID: courseID,
		Phase:    model.PhasePolling,
		Message:  message,
		Elapsed:  elapsed,
	}
	if handle != nil && handle.Completion > 0 {
		st.Done = int(handle.Completion)
		st.Total = 100
	}
	s.ports.Reporter.Report(ctx, st)
}

// wallClock is the default TimeProvider for services.
type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// sleepCtx waits for d or until ctx ends.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func formatElapsed(d time.Duration) string {
	return d.Truncate(time.Second).String()
}
