// Package failurenotifier fans run failure notifications out to every
// configured sink (Slack, PagerDuty).
package failurenotifier

import (
	"context"
	"log/slog"
	"sync"

	"github.com/target/gradesync/internal/domain/model"
	"github.com/target/gradesync/internal/observability/notify"
)

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the failure notifier service.
type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration
	// SkipUnconfirmed drops unconfirmed runs; only hard failures are sent.
	SkipUnconfirmed bool
}

// Service dispatches run failure events to all registered sinks.
type Service struct {
	logger          *slog.Logger
	sinks           []SinkRegistration
	skipUnconfirmed bool
}

// NewService constructs a failure notifier.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		if entry.Name == "" {
			entry.Name = "sink"
		}
		sinks = append(sinks, entry)
	}

	return &Service{
		logger:          logger.With("component", "failure_notifier"),
		sinks:           sinks,
		skipUnconfirmed: opts.SkipUnconfirmed,
	}
}

// NotifyRunFailure sends the payload to every sink and waits for them.
// Zero-out test runs never page anyone. Delivery errors are logged only.
func (s *Service) NotifyRunFailure(ctx context.Context, payload notify.RunFailurePayload) {
	if s == nil || len(s.sinks) == 0 {
		return
	}
	if payload.ZeroOut {
		s.logger.DebugContext(ctx, "skipping notification for zero-out test run",
			"course_id", payload.CourseID,
			"run_id", payload.RunID,
		)
		return
	}
	outcome := model.RunOutcome(payload.Outcome)
	if s.skipUnconfirmed && outcome == model.OutcomeUnconfirmed {
		return
	}
	if payload.Severity == "" {
		payload.Severity = severityFor(outcome)
	}

	var wg sync.WaitGroup
	for _, entry := range s.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := entry.Sink.SendRunFailure(ctx, payload); err != nil {
				s.logger.ErrorContext(ctx, "failure notifier delivery error",
					"sink", entry.Name,
					"course_id", payload.CourseID,
					"run_id", payload.RunID,
					"error", err,
				)
			}
		}()
	}
	wg.Wait()
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return s != nil && len(s.sinks) > 0
}

// severityFor downgrades unconfirmed runs: the writes were issued and most
// likely land once the read path catches up.
func severityFor(outcome model.RunOutcome) string {
	if outcome == model.OutcomeUnconfirmed {
		return notify.SeverityWarning
	}
	return notify.SeverityCritical
}
