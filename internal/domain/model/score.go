// Package model defines the data types shared by the grade synchronization engine.
package model

import (
	"errors"
	"strings"
)

// ScoreDelta is a computed (student, new value) pair pending write.
// Average is already rounded to two decimal places.
type ScoreDelta struct {
	UserID  string  `json:"user_id"`
	Average float64 `json:"average"`
}

// RollupScore is a single scored metric inside a student's rollup.
// Score is nil when the remote system reports no numeric value.
type RollupScore struct {
	MetricID string   `json:"metric_id"`
	Title    string   `json:"title,omitempty"`
	Score    *float64 `json:"score,omitempty"`
}

// Rollup is a remote snapshot of one student's scores across tracked metrics.
type Rollup struct {
	UserID string        `json:"user_id"`
	Scores []RollupScore `json:"scores"`
}

// ScoreFor returns the student's numeric score for metricID, if present.
func (r Rollup) ScoreFor(metricID string) (float64, bool) {
	for _, s := range r.Scores {
		if s.MetricID == metricID && s.Score != nil {
			return *s.Score, true
		}
	}
	return 0, false
}

// RollupQuery selects which rollups to fetch for a course.
// An empty MetricIDs list returns every tracked metric.
type RollupQuery struct {
	CourseID  string
	MetricIDs []string
}

// Target identifies the aggregate metric being synchronized and where its
// per-student value is written. MetricID is the value persisted in RunState.
type Target struct {
	MetricID     string `json:"metric_id"`
	AssignmentID string `json:"assignment_id"`
	CriterionID  string `json:"criterion_id"`
}

// Validate checks that the target carries every identifier the write paths need.
func (t Target) Validate() error {
	switch {
	case strings.TrimSpace(t.MetricID) == "":
		return errors.New("target metric id is required")
	case strings.TrimSpace(t.AssignmentID) == "":
		return errors.New("target assignment id is required")
	case strings.TrimSpace(t.CriterionID) == "":
		return errors.New("target criterion id is required")
	}
	return nil
}

// ScoreWrite is one "set this student's score for the target" instruction.
type ScoreWrite struct {
	CourseID string
	Target   Target
	UserID   string
	Score    float64
	Comment  string
}

// RetryRecord notes a record that needed more than one write attempt.
type RetryRecord struct {
	UserID   string `json:"user_id"`
	Attempts int    `json:"attempts"`
}

// FailureRecord is a record that still failed after every retry pass.
type FailureRecord struct {
	UserID  string  `json:"user_id"`
	Average float64 `json:"average"`
	Error   string  `json:"error"`
}

// RunSummary is the per-record outcome of a run, exported when non-empty.
type RunSummary struct {
	CourseID string
	Retries  []RetryRecord
	Failures []FailureRecord
}

// Empty reports whether there is nothing worth exporting.
func (s RunSummary) Empty() bool {
	return len(s.Retries) == 0 && len(s.Failures) == 0
}

// Enrollment maps a student to the enrollment that owns their override score.
type Enrollment struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

// EnrollmentPage is one page of a paginated enrollment listing.
// NextPage is empty on the last page.
type EnrollmentPage struct {
	Enrollments []Enrollment
	NextPage    string
}
