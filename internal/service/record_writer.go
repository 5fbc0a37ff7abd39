package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/gradesync/internal/core"
	"github.com/target/gradesync/internal/domain/model"
	"github.com/target/gradesync/internal/observability/metrics"
	"github.com/target/gradesync/internal/observability/statsd"
)

// RecordWriterServiceOptions groups dependencies for RecordWriterService.
type RecordWriterServiceOptions struct {
	Writer      core.RecordWriter // Required: single-record write port
	MaxAttempts int               // Attempts per pass; values below 1 mean 3
	Logger      *slog.Logger      // Optional: structured logger
	Metrics     statsd.Sink       // Optional: metrics sink
}

// RecordWriterService applies the per-record retry policy.
type RecordWriterService struct {
	writer      core.RecordWriter
	maxAttempts int
	logger      *slog.Logger
	metrics     statsd.Sink
}

// NewRecordWriterService constructs a RecordWriterService.
func NewRecordWriterService(opts RecordWriterServiceOptions) (*RecordWriterService, error) {
	if opts.Writer == nil {
		return nil, errors.New("RecordWriter is required")
	}
	attempts := opts.MaxAttempts
	if attempts < 1 {
		attempts = 3
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordWriterService{
		writer:      opts.Writer,
		maxAttempts: attempts,
		logger:      logger.With("component", "record_writer"),
		metrics:     opts.Metrics,
	}, nil
}

// WriteWithRetry performs up to MaxAttempts writes, stopping at the first success.
// A failed attempt never prevents the next one. It returns the attempts used and
// the last error, which is nil on success. Only context cancellation ends the
// loop early.
func (s *RecordWriterService) WriteWithRetry(ctx context.Context, w model.ScoreWrite) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}
		lastErr = s.writer.WriteScore(ctx, w)
		if lastErr == nil {
			metrics.EmitAttempt(s.metrics, "record_write", metrics.ResultSuccess, nil)
			return attempt, nil
		}
		metrics.EmitAttempt(s.metrics, "record_write", metrics.ResultError, lastErr)
		s.logger.WarnContext(ctx, "record write failed",
			"course_id", w.CourseID,
			"user_id", w.UserID,
			"attempt", attempt,
			"max_attempts", s.maxAttempts,
			"error", lastErr,
		)
	}
	return s.maxAttempts, lastErr
}

// WriteHooks receives callbacks while WriteAll runs. Nil hooks are skipped.
type WriteHooks struct {
	// OnSuccess fires after each record lands, in write order.
	OnSuccess func(delta model.ScoreDelta)
	// OnProgress fires after every record of every pass.
	OnProgress func(done, total int)
}

// PerRecordResult summarises a per-record write run.
type PerRecordResult struct {
	Written  []model.ScoreDelta
	Retries  []model.RetryRecord
	Failures []model.FailureRecord
}

// WriteAll writes every delta strictly in sequence. Records that exhaust their
// attempts are deferred and retried once more with the same policy after the
// first pass; whatever still fails becomes a FailureRecord. Retries lists every
// record that needed more than one attempt, including the ones that never landed.
func (s *RecordWriterService) WriteAll(
	ctx context.Context,
	courseID string,
	target model.Target,
	deltas []model.ScoreDelta,
	hooks WriteHooks,
) (*PerRecordResult, error) {
	res := &PerRecordResult{}
	attempts := make(map[string]int, len(deltas))
	total := len(deltas)
	done := 0

	write := func(d model.ScoreDelta) error {
		n, err := s.WriteWithRetry(ctx, model.ScoreWrite{
			CourseID: courseID,
			Target:   target,
			UserID:   d.UserID,
			Score:    d.Average,
		})
		attempts[d.UserID] += n
		if err == nil {
			res.Written = append(res.Written, d)
			if attempts[d.UserID] > 1 {
				res.Retries = append(res.Retries, model.RetryRecord{UserID: d.UserID, Attempts: attempts[d.UserID]})
			}
			if hooks.OnSuccess != nil {
				hooks.OnSuccess(d)
			}
		}
		return err
	}
	progress := func() {
		done++
		if hooks.OnProgress != nil {
			hooks.OnProgress(done, total)
		}
	}

	var deferred []model.ScoreDelta
	for _, d := range deltas {
		if err := write(d); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			deferred = append(deferred, d)
		}
		progress()
	}

	if len(deferred) > 0 {
		s.logger.InfoContext(ctx, "retrying deferred records", "course_id", courseID, "count", len(deferred))
		total += len(deferred)
	}
	for _, d := range deferred {
		if err := write(d); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.Retries = append(res.Retries, model.RetryRecord{UserID: d.UserID, Attempts: attempts[d.UserID]})
			res.Failures = append(res.Failures, model.FailureRecord{
				UserID:  d.UserID,
				Average: d.Average,
				Error:   fmt.Sprintf("after %d attempts: %v", attempts[d.UserID], err),
			})
		}
		progress()
	}
	return res, nil
}
