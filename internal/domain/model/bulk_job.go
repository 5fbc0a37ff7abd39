package model

import (
	"fmt"
	"strings"
)

// JobState is the remote state of an asynchronous bulk job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobState string

const (
	// JobStateQueued indicates the remote system accepted the job but has not started it.
	JobStateQueued JobState = "queued"
	// JobStateRunning indicates the remote system is applying the batch.
	JobStateRunning JobState = "running"
	// JobStateCompleted indicates the batch finished successfully.
	JobStateCompleted JobState = "completed"
	// JobStateFailed indicates the batch reached a failed terminal state.
	JobStateFailed JobState = "failed"
)

// UnmarshalText normalises remote workflow states.
func (s *JobState) UnmarshalText(text []byte) error {
	v := JobState(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid job state: %q", v)
	}
	*s = v
	return nil
}

// Valid returns true if the JobState is known.
func (s JobState) Valid() bool {
	return s == JobStateQueued || s == JobStateRunning || s == JobStateCompleted || s == JobStateFailed
}

// Terminal reports whether no further transitions are expected.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// JobHandle is the engine's view of a remote bulk job, observed via polling.
type JobHandle struct {
	ID         string   `json:"id"`
	State      JobState `json:"state"`
	Completion float64  `json:"completion,omitempty"`
	Message    string   `json:"message,omitempty"`
}
