// Package core defines the ports between the grade synchronization services and
// the adapters that talk to remote systems and storage.
package core

import (
	"context"
	"time"

	"github.com/target/gradesync/internal/domain/model"
)

// This file contains the port definitions (hexagonal architecture).
// Services depend on these interfaces, never on concrete adapters.

// RollupReader reads aggregate score snapshots from the remote grading API.
type RollupReader interface {
	ListRollups(ctx context.Context, query model.RollupQuery) ([]model.Rollup, error)
}

// RecordWriter performs one idempotent single-record score write plus its annotation.
// A non-success response is returned as an error carrying the remote body.
type RecordWriter interface {
	WriteScore(ctx context.Context, write model.ScoreWrite) error
}

// BulkWriter submits a batch of score writes as one asynchronous remote job.
type BulkWriter interface {
	SubmitBulk(ctx context.Context, courseID string, writes []model.ScoreWrite) (*model.JobHandle, error)
}

// JobReader observes a remote bulk job.
type JobReader interface {
	GetJob(ctx context.Context, jobID string) (*model.JobHandle, error)
}

// EnrollmentLister pages through the enrollments of a course.
// An empty page token requests the first page.
type EnrollmentLister interface {
	ListEnrollments(ctx context.Context, courseID, pageToken string) (*model.EnrollmentPage, error)
}

// GradingAPI is the full remote grading surface consumed by the engine.
type GradingAPI interface {
	RollupReader
	RecordWriter
	BulkWriter
	JobReader
	EnrollmentLister
}

// OverrideWriter sets the rescaled secondary score on an enrollment.
type OverrideWriter interface {
	SetOverrideScore(ctx context.Context, enrollmentID string, score float64) error
}

// RunStore persists one RunState per scope key and survives process restarts.
type RunStore interface {
	// Get returns the stored state, or nil when the scope has none.
	Get(ctx context.Context, scope string) (*model.RunState, error)
	// Set applies patch to the stored state (creating it when absent) and returns the result.
	Set(ctx context.Context, scope string, patch model.RunStatePatch) (*model.RunState, error)
	// Clear removes every field of the scope's state.
	Clear(ctx context.Context, scope string) error
}

// LastSuccessStore keeps the most recent successful run of each scope next to
// its RunState, so status can show it without a history database.
type LastSuccessStore interface {
	SaveLastSuccess(ctx context.Context, scope string, rec *model.RunRecord) error
	// LastSuccess returns nil when the scope never completed a run.
	LastSuccess(ctx context.Context, scope string) (*model.RunRecord, error)
}

// RunLease guards a scope against concurrent runs with an owner token and expiry.
type RunLease interface {
	// Acquire returns true when owner now holds the lease. A live lease held by
	// a different owner yields false.
	Acquire(ctx context.Context, scope, owner string, ttl time.Duration) (bool, error)
	// Renew extends the lease if owner still holds it.
	Renew(ctx context.Context, scope, owner string, ttl time.Duration) (bool, error)
	// Release drops the lease if owner still holds it.
	Release(ctx context.Context, scope, owner string) (bool, error)
	// Holder returns the current owner, or "" when the scope is free.
	Holder(ctx context.Context, scope string) (string, error)
}

// StatusReporter receives human-readable progress updates. Implementations must not block.
type StatusReporter interface {
	Report(ctx context.Context, status model.Status)
}

// RunHistoryRepository stores terminal run records.
type RunHistoryRepository interface {
	RecordRun(ctx context.Context, rec *model.RunRecord) error
	LastSuccessful(ctx context.Context, courseID string) (*model.RunRecord, error)
	List(ctx context.Context, courseID string, limit int) ([]*model.RunRecord, error)
}

// PropagationFailureRepository is the failure log for override writes that exhausted their retries.
type PropagationFailureRepository interface {
	Record(ctx context.Context, failure *model.PropagationFailure) error
	ListByCourse(ctx context.Context, courseID string, limit int) ([]*model.PropagationFailure, error)
}

// SummaryExporter renders a non-empty run summary and returns where it can be downloaded.
type SummaryExporter interface {
	Export(ctx context.Context, summary model.RunSummary) (string, error)
}

// Prerequisite performs one-time remote setup for a target. Returning an error
// declines the run.
type Prerequisite interface {
	Ensure(ctx context.Context, courseID string, target model.Target) error
}

// TimeProvider abstracts the clock so elapsed-time logic can be tested.
type TimeProvider interface {
	Now() time.Time
}
