package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/gradesync/internal/core"
	"github.com/target/gradesync/internal/domain/gradesync"
	"github.com/target/gradesync/internal/domain/model"
	"github.com/target/gradesync/internal/observability/metrics"
	"github.com/target/gradesync/internal/observability/statsd"
)

// ReasonNotVisible marks a student whose rollup has no value for the target yet.
const ReasonNotVisible = "not yet visible"

// VerifyConfig bounds the verification loop. It is bounded by attempts, not wall clock.
type VerifyConfig struct {
	Interval    time.Duration
	MaxAttempts int
	Tolerance   float64
}

// Mismatch is one student whose remote value does not match the expected delta.
// Actual is nil when the remote has no value.
type Mismatch struct {
	UserID   string   `json:"user_id"`
	Expected float64  `json:"expected"`
	Actual   *float64 `json:"actual,omitempty"`
	Reason   string   `json:"reason"`
}

// VerifyResult summarises a verification loop. Mismatches reflect the last
// comparison that completed.
type VerifyResult struct {
	Matched    bool
	Attempts   int
	Mismatches []Mismatch
	LastError  string
}

// VerifierOptions groups dependencies for Verifier.
type VerifierOptions struct {
	Reader   core.RollupReader   // Required: rollup read path
	Reporter core.StatusReporter // Optional: progress sink
	Config   VerifyConfig
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// Verifier re-reads rollups until they reflect the expected deltas.
type Verifier struct {
	reader   core.RollupReader
	reporter core.StatusReporter
	config   VerifyConfig
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewVerifier constructs a Verifier.
func NewVerifier(opts VerifierOptions) (*Verifier, error) {
	if opts.Reader == nil {
		return nil, errors.New("RollupReader is required")
	}
	cfg := opts.Config
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 50
	}
	if cfg.Tolerance < 0 {
		cfg.Tolerance = gradesync.DefaultVerifyTolerance
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		reader:   opts.Reader,
		reporter: opts.Reporter,
		config:   cfg,
		logger:   logger.With("component", "verifier"),
		metrics:  opts.Metrics,
	}, nil
}

// Verify compares the target metric of every expected student against the
// remote rollups, retrying on mismatch. Running out of attempts is reported in
// the result, not as an error; only context cancellation returns an error.
// A failed read consumes an attempt.
func (v *Verifier) Verify(
	ctx context.Context,
	courseID, targetID string,
	expected []model.ScoreDelta,
) (*VerifyResult, error) {
	res := &VerifyResult{}
	if len(expected) == 0 {
		res.Matched = true
		return res, nil
	}

	for res.Attempts < v.config.MaxAttempts {
		if res.Attempts > 0 {
			if err := sleepCtx(ctx, v.config.Interval); err != nil {
				return res, err
			}
		}
		res.Attempts++

		rollups, err := v.reader.ListRollups(ctx, model.RollupQuery{
			CourseID:  courseID,
			MetricIDs: []string{targetID},
		})
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			metrics.EmitAttempt(v.metrics, "verify", metrics.ResultError, err)
			res.LastError = err.Error()
			v.logger.WarnContext(ctx, "verification read failed",
				"course_id", courseID,
				"attempt", res.Attempts,
				"error", err,
			)
			continue
		}
		metrics.EmitAttempt(v.metrics, "verify", metrics.ResultSuccess, nil)

		res.Mismatches = v.compare(rollups, targetID, expected)
		if len(res.Mismatches) == 0 {
			res.Matched = true
			return res, nil
		}
		v.report(ctx, courseID, fmt.Sprintf("Verifying: %d of %d not confirmed (attempt %d/%d)",
			len(res.Mismatches), len(expected), res.Attempts, v.config.MaxAttempts),
			len(expected)-len(res.Mismatches), len(expected))
	}

	v.logger.WarnContext(ctx, "verification exhausted",
		"course_id", courseID,
		"target_id", targetID,
		"attempts", res.Attempts,
		"mismatches", len(res.Mismatches),
	)
	return res, nil
}

func (v *Verifier) compare(rollups []model.Rollup, targetID string, expected []model.ScoreDelta) []Mismatch {
	remote := make(map[string]float64, len(rollups))
	for _, r := range rollups {
		if score, ok := r.ScoreFor(targetID); ok {
			remote[r.UserID] = score
		}
	}

	var out []Mismatch
	for _, d := range expected {
		actual, ok := remote[d.UserID]
		switch {
		case !ok:
			out = append(out, Mismatch{UserID: d.UserID, Expected: d.Average, Reason: ReasonNotVisible})
		case !gradesync.WithinTolerance(actual, d.Average, v.config.Tolerance):
			out = append(out, Mismatch{
				UserID:   d.UserID,
				Expected: d.Average,
				Actual:   &actual,
				Reason:   fmt.Sprintf("remote %.4f differs from expected %.2f", actual, d.Average),
			})
		}
	}
	return out
}

func (v *Verifier) report(ctx context.Context, courseID, message string, done, total int) {
	if v.reporter == nil {
		return
	}
	v.reporter.Report(ctx, model.Status{
		CourseID: courseID,
		Phase:    model.PhaseVerifying,
		Message:  message,
		Done:     done,
		Total:    total,
	})
}
