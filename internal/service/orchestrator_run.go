package service

import (
	"context"
	"fmt"
	"time"

	"github.com/target/gradesync/internal/domain/gradesync"
	"github.com/target/gradesync/internal/domain/model"
	apperrors "github.com/target/gradesync/internal/errors"
	"github.com/target/gradesync/internal/observability/metrics"
)

// run is the in-memory progress of one Run call.
type run struct {
	id        string
	req       RunRequest
	phase     model.RunPhase
	startedAt time.Time
	// persistedStart is the start time of a resumed run.
	persistedStart time.Time
	targetID       string
	expected       []model.ScoreDelta
	report         *RunReport
}

// startTime is when the run began, across restarts.
func (r *run) startTime() time.Time {
	if !r.persistedStart.IsZero() {
		return r.persistedStart
	}
	return r.startedAt
}

func (o *Orchestrator) execute(ctx context.Context, r *run) error {
	state, err := o.ports.Store.Get(ctx, r.req.CourseID)
	if err != nil {
		return fmt.Errorf("get run state: %w", err)
	}
	resume := gradesync.ResumeEvent(state)

	startPatch := model.RunStatePatch{LeaseOwner: &r.id}
	if resume == gradesync.EventFresh {
		startPatch = freshRunPatch(r)
	}
	if err = o.advance(ctx, r, gradesync.EventStart, startPatch, "Checking for an interrupted run"); err != nil {
		return err
	}

	switch resume {
	case gradesync.EventResumePolling:
		o.adoptPersisted(ctx, r, state)
		if err = o.advance(ctx, r, resume, model.RunStatePatch{}, "Resuming bulk job "+state.JobID); err != nil {
			return err
		}
		return o.pollAndVerify(ctx, r, state.JobID)
	case gradesync.EventResumeVerifying:
		o.adoptPersisted(ctx, r, state)
		if err = o.advance(ctx, r, resume, model.RunStatePatch{}, "Resuming verification"); err != nil {
			return err
		}
		return o.verify(ctx, r)
	}

	if o.ports.Prerequisite != nil {
		if err = o.ports.Prerequisite.Ensure(ctx, r.req.CourseID, r.req.Target); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return apperrors.Wrap(err, apperrors.ErrCodeCanceled, "required setup was declined")
		}
	}
	if err = o.advance(ctx, r, gradesync.EventFresh, model.RunStatePatch{}, "Computing averages"); err != nil {
		return err
	}
	return o.compute(ctx, r)
}

// freshRunPatch resets every field of the scope's state for a new run.
func freshRunPatch(r *run) model.RunStatePatch {
	inProgress := true
	pending := false
	empty := ""
	var strategy model.Strategy
	var deltas []model.ScoreDelta
	return model.RunStatePatch{
		InProgress:          &inProgress,
		StartTime:           &r.startedAt,
		JobID:               &empty,
		TargetID:            &empty,
		ExpectedDeltas:      &deltas,
		VerificationPending: &pending,
		Strategy:            &strategy,
		LeaseOwner:          &r.id,
	}
}

// adoptPersisted continues the persisted run rather than the requested one.
func (o *Orchestrator) adoptPersisted(ctx context.Context, r *run, state *model.RunState) {
	if state.TargetID != "" && state.TargetID != r.req.Target.MetricID {
		o.logger.WarnContext(ctx, "resuming run for a different target than requested",
			"course_id", r.req.CourseID,
			"persisted_target_id", state.TargetID,
			"requested_target_id", r.req.Target.MetricID,
		)
	}
	r.persistedStart = state.StartTime
	r.targetID = state.TargetID
	r.expected = state.ExpectedDeltas
	r.report.Resumed = true
	r.report.TargetID = state.TargetID
	r.report.Strategy = state.Strategy
	if state.Strategy == model.StrategyBulk {
		r.report.Updated = len(state.ExpectedDeltas)
	}
}

func (o *Orchestrator) compute(ctx context.Context, r *run) error {
	rollups, err := o.ports.API.ListRollups(ctx, model.RollupQuery{CourseID: r.req.CourseID})
	if err != nil {
		return fmt.Errorf("fetch rollups: %w", err)
	}
	deltas := gradesync.ComputeDeltas(rollups, gradesync.ComputeOptions{
		TargetID:   r.req.Target.MetricID,
		Exclusions: o.exclusions,
		ZeroOut:    r.req.ZeroOut,
	})
	r.targetID = r.req.Target.MetricID
	r.expected = deltas

	if len(deltas) == 0 {
		return o.transition(ctx, r, gradesync.EventNoChanges, model.RunStatePatch{})
	}

	strategy := gradesync.ChooseStrategy(len(deltas), o.sync.BulkThreshold)
	r.report.Strategy = strategy
	o.logger.InfoContext(ctx, "averages computed",
		"course_id", r.req.CourseID,
		"students", len(rollups),
		"deltas", len(deltas),
		"strategy", strategy,
	)

	// Expected deltas go to disk before the first write so a crash mid-write
	// can still resume into verification.
	pending := true
	prePersist := model.RunStatePatch{
		TargetID:            &r.targetID,
		ExpectedDeltas:      &deltas,
		VerificationPending: &pending,
		Strategy:            &strategy,
	}
	if strategy == model.StrategyPerRecord {
		msg := fmt.Sprintf("Writing %d records", len(deltas))
		if err = o.advance(ctx, r, gradesync.EventChosePerRecord, prePersist, msg); err != nil {
			return err
		}
		return o.writePerRecord(ctx, r, deltas)
	}

	msg := fmt.Sprintf("Submitting bulk job for %d records", len(deltas))
	if err = o.advance(ctx, r, gradesync.EventChoseBulk, prePersist, msg); err != nil {
		return err
	}
	return o.submitBulk(ctx, r, deltas)
}

func (o *Orchestrator) writePerRecord(ctx context.Context, r *run, deltas []model.ScoreDelta) error {
	courseID := r.req.CourseID
	res, err := o.writer.WriteAll(ctx, courseID, r.req.Target, deltas, WriteHooks{
		OnSuccess: func(d model.ScoreDelta) {
			if o.ports.Propagator != nil {
				o.ports.Propagator.Propagate(courseID, d.UserID, d.Average)
			}
		},
		OnProgress: func(done, total int) {
			o.reportProgress(ctx, r, fmt.Sprintf("Processed %d of %d records", done, total), done, total)
		},
	})
	if res != nil {
		r.report.Updated = len(res.Written)
		r.report.Retries = res.Retries
		r.report.Failures = res.Failures
	}
	if err != nil {
		return fmt.Errorf("write records: %w", err)
	}

	o.exportSummary(ctx, r)

	// Only records that landed can be confirmed.
	written := res.Written
	if written == nil {
		written = []model.ScoreDelta{}
	}
	r.expected = written
	inProgress := false
	patch := model.RunStatePatch{InProgress: &inProgress, ExpectedDeltas: &written}
	msg := fmt.Sprintf("Verifying %d records", len(written))
	if err = o.advance(ctx, r, gradesync.EventWritesDone, patch, msg); err != nil {
		return err
	}
	return o.verify(ctx, r)
}

func (o *Orchestrator) submitBulk(ctx context.Context, r *run, deltas []model.ScoreDelta) error {
	jobID, err := o.bulk.Submit(ctx, r.req.CourseID, r.req.Target, deltas)
	if err != nil {
		return err
	}
	r.report.Updated = len(deltas)
	if err = o.advance(ctx, r, gradesync.EventSubmitted, model.RunStatePatch{JobID: &jobID}, "Bulk job "+jobID+" submitted"); err != nil {
		return err
	}
	return o.pollAndVerify(ctx, r, jobID)
}

func (o *Orchestrator) pollAndVerify(ctx context.Context, r *run, jobID string) error {
	if _, err := o.bulk.Poll(ctx, r.req.CourseID, jobID, r.startTime()); err != nil {
		return err
	}
	empty := ""
	inProgress := false
	patch := model.RunStatePatch{JobID: &empty, InProgress: &inProgress}
	msg := fmt.Sprintf("Verifying %d records", len(r.expected))
	if err := o.advance(ctx, r, gradesync.EventJobCompleted, patch, msg); err != nil {
		return err
	}
	return o.verify(ctx, r)
}

func (o *Orchestrator) verify(ctx context.Context, r *run) error {
	res, err := o.verifier.Verify(ctx, r.req.CourseID, r.targetID, r.expected)
	r.report.Verification = res
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	return o.transition(ctx, r, gradesync.EventVerified, model.RunStatePatch{})
}

func (o *Orchestrator) exportSummary(ctx context.Context, r *run) {
	summary := model.RunSummary{
		CourseID: r.req.CourseID,
		Retries:  r.report.Retries,
		Failures: r.report.Failures,
	}
	if summary.Empty() || o.ports.Exporter == nil {
		return
	}
	url, err := o.ports.Exporter.Export(ctx, summary)
	if err != nil {
		o.logger.WarnContext(ctx, "export run summary", "course_id", r.req.CourseID, "error", err)
		return
	}
	r.report.ExportURL = url
}

// advance applies event, persists the new phase with patch and reports msg.
func (o *Orchestrator) advance(
	ctx context.Context,
	r *run,
	event gradesync.Event,
	patch model.RunStatePatch,
	msg string,
) error {
	if err := o.transition(ctx, r, event, patch); err != nil {
		return err
	}
	o.reportProgress(ctx, r, msg, 0, 0)
	return nil
}

// transition moves the run along the workflow table. Non-terminal phases are
// persisted together with patch.
func (o *Orchestrator) transition(
	ctx context.Context,
	r *run,
	event gradesync.Event,
	patch model.RunStatePatch,
) error {
	to, err := gradesync.Transition(r.phase, event)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "workflow error")
	}
	if !to.Terminal() {
		patch.Phase = &to
		if _, err = o.ports.Store.Set(ctx, r.req.CourseID, patch); err != nil {
			return fmt.Errorf("persist phase %s: %w", to, err)
		}
	}
	o.logger.DebugContext(ctx, "phase transition",
		"course_id", r.req.CourseID,
		"from", r.phase,
		"event", event,
		"to", to,
	)
	r.phase = to
	metrics.EmitPhase(o.metrics, string(to))
	return nil
}

func (o *Orchestrator) reportProgress(ctx context.Context, r *run, msg string, done, total int) {
	if o.ports.Reporter == nil {
		return
	}
	o.ports.Reporter.Report(ctx, model.Status{
		CourseID: r.req.CourseID,
		Phase:    r.phase,
		Message:  msg,
		Elapsed:  o.ports.Clock.Now().Sub(r.startTime()),
		Done:     done,
		Total:    total,
	})
}
