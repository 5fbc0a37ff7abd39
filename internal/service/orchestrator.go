package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/target/gradesync/config"
	"github.com/target/gradesync/internal/core"
	"github.com/target/gradesync/internal/domain/gradesync"
	"github.com/target/gradesync/internal/domain/model"
	apperrors "github.com/target/gradesync/internal/errors"
	obserrors "github.com/target/gradesync/internal/observability/errors"
	"github.com/target/gradesync/internal/observability/metrics"
	"github.com/target/gradesync/internal/observability/notify"
	"github.com/target/gradesync/internal/observability/statsd"
)

// finishTimeout bounds the bookkeeping done after a run ends, which runs even
// when the caller's context is already cancelled.
const finishTimeout = 30 * time.Second

var (
	errCancelRequested = errors.New("run cancelled by request")
	errLeaseLost       = errors.New("run lease lost to another owner")
)

// propagationQueue is the orchestrator's view of the override worker pool.
type propagationQueue interface {
	overridePropagation
	Drain(ctx context.Context) error
}

// runFailureNotifier receives failed and unconfirmed runs.
type runFailureNotifier interface {
	NotifyRunFailure(ctx context.Context, payload notify.RunFailurePayload)
}

// OrchestratorPorts are the collaborators of the update workflow.
type OrchestratorPorts struct {
	API          core.GradingAPI           // Required: remote grading API
	Store        core.RunStore             // Required: persisted run state
	Lease        core.RunLease             // Required: per-course run lease
	Propagator   propagationQueue          // Optional: override worker pool
	Reporter     core.StatusReporter       // Optional: progress sink
	History      core.RunHistoryRepository // Optional: terminal run records
	LastSuccess  core.LastSuccessStore     // Optional: last successful run beside the run state
	Exporter     core.SummaryExporter      // Optional: retry/failure summary export
	Prerequisite core.Prerequisite         // Optional: one-time remote setup
	Notifier     runFailureNotifier        // Optional: failure fan-out
	Clock        core.TimeProvider         // Optional: defaults to wall clock
}

// OrchestratorConfig tunes the workflow.
type OrchestratorConfig struct {
	Sync       config.SyncConfig
	Exclusions gradesync.Exclusions
}

// OrchestratorOptions groups dependencies for Orchestrator.
type OrchestratorOptions struct {
	Ports   OrchestratorPorts
	Config  OrchestratorConfig
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// RunRequest starts or resumes the synchronization of one course.
type RunRequest struct {
	CourseID string
	Target   model.Target
	// ZeroOut writes 0 for every student. Rejected unless test mode is configured.
	ZeroOut bool
}

// RunReport is the single terminal result of a run.
type RunReport struct {
	RunID        string
	CourseID     string
	TargetID     string
	Outcome      model.RunOutcome
	Strategy     model.Strategy
	Resumed      bool
	Updated      int
	Retries      []model.RetryRecord
	Failures     []model.FailureRecord
	Elapsed      time.Duration
	Verification *VerifyResult
	ExportURL    string
	Message      string
}

// RunStatus describes what is currently known about a course.
type RunStatus struct {
	CourseID    string
	State       *model.RunState
	LeaseHolder string
	LastSuccess *model.RunRecord
}

// Orchestrator composes the writers, poller and verifier into one resumable workflow.
type Orchestrator struct {
	ports      OrchestratorPorts
	sync       config.SyncConfig
	exclusions gradesync.Exclusions
	logger     *slog.Logger
	metrics    statsd.Sink

	writer   *RecordWriterService
	bulk     *BulkJobService
	verifier *Verifier

	mu     sync.Mutex
	active map[string]context.CancelCauseFunc
}

// NewOrchestrator constructs an Orchestrator and its record writer, bulk job
// service and verifier.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	ports := opts.Ports
	switch {
	case ports.API == nil:
		return nil, errors.New("GradingAPI is required")
	case ports.Store == nil:
		return nil, errors.New("RunStore is required")
	case ports.Lease == nil:
		return nil, errors.New("RunLease is required")
	}
	if ports.Clock == nil {
		ports.Clock = wallClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config.Sync
	cfg.Sanitize()

	writer, err := NewRecordWriterService(RecordWriterServiceOptions{
		Writer:      ports.API,
		MaxAttempts: cfg.MaxAttempts,
		Logger:      logger,
		Metrics:     opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create record writer: %w", err)
	}

	var propagator overridePropagation
	if ports.Propagator != nil {
		propagator = ports.Propagator
	}
	bulk, err := NewBulkJobService(BulkJobServiceOptions{
		Ports: BulkJobPorts{
			API:        ports.API,
			Propagator: propagator,
			Reporter:   ports.Reporter,
			Clock:      ports.Clock,
		},
		Config:  PollConfig{Interval: cfg.PollInterval, Timeout: cfg.PollTimeout},
		Logger:  logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create bulk job service: %w", err)
	}

	verifier, err := NewVerifier(VerifierOptions{
		Reader:   ports.API,
		Reporter: ports.Reporter,
		Config: VerifyConfig{
			Interval:    cfg.VerifyInterval,
			MaxAttempts: cfg.VerifyMaxAttempts,
			Tolerance:   cfg.VerifyTolerance,
		},
		Logger:  logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create verifier: %w", err)
	}

	return &Orchestrator{
		ports:      ports,
		sync:       cfg,
		exclusions: opts.Config.Exclusions,
		logger:     logger.With("component", "orchestrator"),
		metrics:    opts.Metrics,
		writer:     writer,
		bulk:       bulk,
		verifier:   verifier,
		active:     make(map[string]context.CancelCauseFunc),
	}, nil
}

// Run drives one course through the workflow, resuming persisted progress when
// a previous run was interrupted. It returns a report for every run that got
// past the lease; the error is non-nil for failed and cancelled runs.
// An unconfirmed verification is an outcome, not an error.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*RunReport, error) {
	req.CourseID = strings.TrimSpace(req.CourseID)
	if req.CourseID == "" {
		return nil, apperrors.ValidationField("course_id", "course id is required")
	}
	if err := req.Target.Validate(); err != nil {
		return nil, apperrors.ValidationField("target", err.Error())
	}
	if req.ZeroOut && !o.sync.ZeroOutTestMode {
		return nil, apperrors.ValidationField("zero_out", "zero-out requires SYNC_ZERO_OUT_TEST_MODE")
	}

	runID := uuid.NewString()
	acquired, err := o.ports.Lease.Acquire(ctx, req.CourseID, runID, o.sync.LeaseTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire run lease: %w", err)
	}
	if !acquired {
		holder, _ := o.ports.Lease.Holder(ctx, req.CourseID)
		return nil, apperrors.Conflictf("a run for course %s is already in progress (owner %s)", req.CourseID, holder)
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	o.mu.Lock()
	o.active[req.CourseID] = cancel
	o.mu.Unlock()

	keeperDone := make(chan struct{})
	go func() {
		defer close(keeperDone)
		o.keepLease(runCtx, req.CourseID, runID, cancel)
	}()

	r := &run{
		id:        runID,
		req:       req,
		phase:     model.PhaseIdle,
		startedAt: o.ports.Clock.Now(),
		report:    &RunReport{RunID: runID, CourseID: req.CourseID, TargetID: req.Target.MetricID},
	}
	o.logger.InfoContext(ctx, "run started",
		"run_id", runID,
		"course_id", req.CourseID,
		"target_id", req.Target.MetricID,
		"zero_out", req.ZeroOut,
	)

	runErr := o.execute(runCtx, r)
	cause := context.Cause(runCtx)

	cancel(nil)
	<-keeperDone
	o.mu.Lock()
	delete(o.active, req.CourseID)
	o.mu.Unlock()

	return o.finish(ctx, r, runErr, cause)
}

// Cancel aborts the course's run. A run active in this process is cancelled
// and clears its own state. Otherwise persisted state is cleared, unless a live
// lease shows another process is still running it.
func (o *Orchestrator) Cancel(ctx context.Context, courseID string) error {
	o.mu.Lock()
	cancel, ok := o.active[courseID]
	o.mu.Unlock()
	if ok {
		cancel(errCancelRequested)
		return nil
	}

	holder, err := o.ports.Lease.Holder(ctx, courseID)
	if err != nil {
		return fmt.Errorf("read run lease: %w", err)
	}
	if holder != "" {
		return apperrors.Conflictf("course %s is being synchronized by another process (owner %s)", courseID, holder)
	}
	if err = o.ports.Store.Clear(ctx, courseID); err != nil {
		return fmt.Errorf("clear run state: %w", err)
	}
	o.logger.InfoContext(ctx, "persisted run state cleared", "course_id", courseID)
	return nil
}

// Status returns the persisted state, lease holder and last successful run of a course.
func (o *Orchestrator) Status(ctx context.Context, courseID string) (*RunStatus, error) {
	state, err := o.ports.Store.Get(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("get run state: %w", err)
	}
	holder, err := o.ports.Lease.Holder(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("read run lease: %w", err)
	}
	st := &RunStatus{CourseID: courseID, State: state, LeaseHolder: holder}
	if o.ports.History != nil {
		last, herr := o.ports.History.LastSuccessful(ctx, courseID)
		switch {
		case herr == nil:
			st.LastSuccess = last
		case !apperrors.IsNotFound(herr):
			return nil, fmt.Errorf("get last successful run: %w", herr)
		}
	}
	if st.LastSuccess == nil && o.ports.LastSuccess != nil {
		last, lerr := o.ports.LastSuccess.LastSuccess(ctx, courseID)
		if lerr != nil {
			return nil, fmt.Errorf("get last successful run: %w", lerr)
		}
		st.LastSuccess = last
	}
	return st, nil
}

// History lists recent terminal runs of a course, newest first.
func (o *Orchestrator) History(ctx context.Context, courseID string, limit int) ([]*model.RunRecord, error) {
	if o.ports.History == nil {
		return nil, apperrors.Internal("run history is not configured")
	}
	records, err := o.ports.History.List(ctx, courseID, limit)
	if err != nil {
		return nil, fmt.Errorf("list run history: %w", err)
	}
	return records, nil
}

// keepLease renews the lease every third of its TTL. A renewal the store
// refuses means another owner took over, so the run is cancelled.
func (o *Orchestrator) keepLease(ctx context.Context, courseID, owner string, cancel context.CancelCauseFunc) {
	interval := o.sync.LeaseTTL / 3
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ok, err := o.ports.Lease.Renew(ctx, courseID, owner, o.sync.LeaseTTL)
			if err != nil {
				if ctx.Err() == nil {
					o.logger.WarnContext(ctx, "renew run lease", "course_id", courseID, "error", err)
				}
				continue
			}
			if !ok {
				o.logger.ErrorContext(ctx, "run lease lost", "course_id", courseID, "owner", owner)
				cancel(errLeaseLost)
				return
			}
		}
	}
}

// terminalPlan decides how an ended run is recorded.
type terminalPlan struct {
	outcome    model.RunOutcome
	event      gradesync.Event
	clearState bool
	drain      bool
	err        error
}

func (o *Orchestrator) planTerminal(ctx context.Context, r *run, runErr, cause error) terminalPlan {
	switch {
	case runErr == nil:
		outcome := model.OutcomeCompleted
		if r.report.Verification != nil && !r.report.Verification.Matched {
			outcome = model.OutcomeUnconfirmed
		}
		return terminalPlan{outcome: outcome, clearState: true, drain: true}
	case errors.Is(cause, errCancelRequested):
		return terminalPlan{
			outcome:    model.OutcomeCancelled,
			event:      gradesync.EventCancel,
			clearState: true,
			err:        apperrors.Canceled("run cancelled by request"),
		}
	case errors.Is(cause, errLeaseLost):
		// The new owner now holds the persisted state.
		return terminalPlan{
			outcome: model.OutcomeFailed,
			event:   gradesync.EventFail,
			err:     apperrors.Wrap(errLeaseLost, apperrors.ErrCodeConflict, "run abandoned"),
		}
	case ctx.Err() != nil:
		// Interrupted by the caller: keep the state so the next start resumes.
		return terminalPlan{
			outcome: model.OutcomeCancelled,
			event:   gradesync.EventCancel,
			err:     apperrors.Wrap(ctx.Err(), apperrors.ErrCodeCanceled, "run interrupted; the next run resumes it"),
		}
	case apperrors.IsCanceled(runErr):
		return terminalPlan{
			outcome:    model.OutcomeCancelled,
			event:      gradesync.EventCancel,
			clearState: true,
			err:        runErr,
		}
	default:
		return terminalPlan{
			outcome:    model.OutcomeFailed,
			event:      gradesync.EventFail,
			clearState: true,
			drain:      true,
			err:        runErr,
		}
	}
}

func (o *Orchestrator) finish(parent context.Context, r *run, runErr, cause error) (*RunReport, error) {
	plan := o.planTerminal(parent, r, runErr, cause)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), finishTimeout)
	defer cancel()

	if plan.event != "" {
		if to, err := gradesync.Transition(r.phase, plan.event); err == nil {
			r.phase = to
		}
	} else {
		r.phase = model.PhaseCompleted
	}
	metrics.EmitPhase(o.metrics, string(r.phase))

	now := o.ports.Clock.Now()
	rep := r.report
	rep.Outcome = plan.outcome
	rep.Elapsed = now.Sub(r.startTime())
	rep.Message = o.terminalMessage(rep, plan.err)

	if plan.drain && o.ports.Propagator != nil {
		drainCtx, drainCancel := context.WithTimeout(ctx, o.sync.PropagatorDrainTimeout)
		if err := o.ports.Propagator.Drain(drainCtx); err != nil {
			o.logger.WarnContext(ctx, "override propagation still in flight at run end",
				"course_id", rep.CourseID,
				"error", err,
			)
		}
		drainCancel()
	}

	if plan.clearState {
		if err := o.ports.Store.Clear(ctx, rep.CourseID); err != nil {
			o.logger.ErrorContext(ctx, "clear run state", "course_id", rep.CourseID, "error", err)
		}
	}
	if _, err := o.ports.Lease.Release(ctx, rep.CourseID, r.id); err != nil {
		o.logger.WarnContext(ctx, "release run lease", "course_id", rep.CourseID, "error", err)
	}

	rec := runRecord(r, now)
	o.recordHistory(ctx, rec)
	if rec.Outcome.Succeeded() {
		o.saveLastSuccess(ctx, rec)
	}
	o.notifyFailure(ctx, r, plan, now)
	metrics.EmitRunOutcome(o.metrics, metrics.RunMetric{
		Strategy: string(rep.Strategy),
		Outcome:  string(rep.Outcome),
		Updated:  rep.Updated,
		Failed:   len(rep.Failures),
		Duration: rep.Elapsed,
		Err:      plan.err,
	})
	o.reportProgress(ctx, r, rep.Message, 0, 0)

	logArgs := []any{
		"run_id", rep.RunID,
		"course_id", rep.CourseID,
		"outcome", rep.Outcome,
		"strategy", rep.Strategy,
		"updated", rep.Updated,
		"failed", len(rep.Failures),
		"elapsed", rep.Elapsed,
	}
	if plan.err != nil {
		o.logger.ErrorContext(ctx, "run ended", append(logArgs, "error", plan.err)...)
	} else {
		o.logger.InfoContext(ctx, "run ended", logArgs...)
	}
	return rep, plan.err
}

func (o *Orchestrator) terminalMessage(rep *RunReport, err error) string {
	elapsed := formatElapsed(rep.Elapsed)
	switch rep.Outcome {
	case model.OutcomeCompleted:
		if rep.Updated == 0 && len(rep.Failures) == 0 {
			return "No changes"
		}
		msg := fmt.Sprintf("Updated %d records in %s", rep.Updated, elapsed)
		if n := len(rep.Failures); n > 0 {
			msg += fmt.Sprintf("; %d failed", n)
		}
		return msg
	case model.OutcomeUnconfirmed:
		pending := 0
		if rep.Verification != nil {
			pending = len(rep.Verification.Mismatches)
		}
		return fmt.Sprintf("Updated %d records in %s; %d not yet confirmed by the remote read path",
			rep.Updated, elapsed, pending)
	case model.OutcomeCancelled:
		return fmt.Sprintf("Cancelled: %v", err)
	default:
		return err.Error()
	}
}

func runRecord(r *run, finishedAt time.Time) *model.RunRecord {
	rep := r.report
	return &model.RunRecord{
		ID:         rep.RunID,
		CourseID:   rep.CourseID,
		TargetID:   rep.TargetID,
		Strategy:   rep.Strategy,
		Outcome:    rep.Outcome,
		Updated:    rep.Updated,
		Failed:     len(rep.Failures),
		Retried:    len(rep.Retries),
		Message:    rep.Message,
		StartedAt:  r.startTime(),
		FinishedAt: finishedAt,
	}
}

func (o *Orchestrator) recordHistory(ctx context.Context, rec *model.RunRecord) {
	if o.ports.History == nil {
		return
	}
	if err := o.ports.History.RecordRun(ctx, rec); err != nil {
		o.logger.ErrorContext(ctx, "record run history", "course_id", rec.CourseID, "error", err)
	}
}

func (o *Orchestrator) saveLastSuccess(ctx context.Context, rec *model.RunRecord) {
	if o.ports.LastSuccess == nil {
		return
	}
	if err := o.ports.LastSuccess.SaveLastSuccess(ctx, rec.CourseID, rec); err != nil {
		o.logger.ErrorContext(ctx, "save last successful run", "course_id", rec.CourseID, "error", err)
	}
}

func (o *Orchestrator) notifyFailure(ctx context.Context, r *run, plan terminalPlan, occurredAt time.Time) {
	if o.ports.Notifier == nil {
		return
	}
	if plan.outcome != model.OutcomeFailed && plan.outcome != model.OutcomeUnconfirmed {
		return
	}
	rep := r.report
	errorClass := obserrors.Classify(plan.err)
	if plan.outcome == model.OutcomeUnconfirmed {
		errorClass = string(apperrors.ErrCodeUnconfirmed)
	}
	payload := notify.RunFailurePayload{
		CourseID:   rep.CourseID,
		RunID:      rep.RunID,
		Strategy:   string(rep.Strategy),
		Outcome:    string(rep.Outcome),
		ZeroOut:    r.req.ZeroOut,
		Error:      rep.Message,
		ErrorClass: errorClass,
		OccurredAt: occurredAt,
		Metadata: map[string]string{
			"target_id": rep.TargetID,
			"updated":   fmt.Sprint(rep.Updated),
			"failed":    fmt.Sprint(len(rep.Failures)),
		},
	}
	if rep.ExportURL != "" {
		payload.Metadata["export_url"] = rep.ExportURL
	}
	o.ports.Notifier.NotifyRunFailure(ctx, payload)
}
