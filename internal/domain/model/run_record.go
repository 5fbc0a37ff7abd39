package model

import "time"

// RunOutcome is the terminal result of one run.
type RunOutcome string

const (
	// OutcomeCompleted means every write landed and was confirmed (or nothing needed changing).
	OutcomeCompleted RunOutcome = "completed"
	// OutcomeUnconfirmed means writes were issued but the read path never caught up
	// within the verification budget.
	OutcomeUnconfirmed RunOutcome = "unconfirmed"
	// OutcomeFailed means the run aborted on an unrecoverable error.
	OutcomeFailed RunOutcome = "failed"
	// OutcomeCancelled means the run was abandoned by the caller or a declined prerequisite.
	OutcomeCancelled RunOutcome = "cancelled"
)

// Succeeded reports whether the run should update the last-successful-run marker.
func (o RunOutcome) Succeeded() bool {
	return o == OutcomeCompleted || o == OutcomeUnconfirmed
}

// RunRecord is the durable history entry written when a run terminates.
type RunRecord struct {
	ID         string     `json:"id"          db:"id"`
	CourseID   string     `json:"course_id"   db:"course_id"`
	TargetID   string     `json:"target_id"   db:"target_id"`
	Strategy   Strategy   `json:"strategy"    db:"strategy"`
	Outcome    RunOutcome `json:"outcome"     db:"outcome"`
	Updated    int        `json:"updated"     db:"updated_count"`
	Failed     int        `json:"failed"      db:"failed_count"`
	Retried    int        `json:"retried"     db:"retried_count"`
	Message    string     `json:"message"     db:"message"`
	StartedAt  time.Time  `json:"started_at"  db:"started_at"`
	FinishedAt time.Time  `json:"finished_at" db:"finished_at"`
}

// Duration is the wall-clock span of the run.
func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// PropagationFailure is a secondary override write that exhausted its retries.
type PropagationFailure struct {
	CourseID   string    `json:"course_id"   db:"course_id"`
	UserID     string    `json:"user_id"     db:"user_id"`
	Scaled     float64   `json:"scaled"      db:"scaled_score"`
	Attempts   int       `json:"attempts"    db:"attempts"`
	Error      string    `json:"error"       db:"error"`
	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
}

// Status is a human-readable progress update pushed to the status reporter.
type Status struct {
	CourseID string
	Phase    RunPhase
	Message  string
	Elapsed  time.Duration
	Done     int
	Total    int
}
