package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// RunStateVersion is the schema version written by this build.
const RunStateVersion = 1

// RunPhase is the explicit state of the update workflow.
type RunPhase string

const (
	PhaseIdle             RunPhase = "idle"
	PhaseResuming         RunPhase = "resuming"
	PhaseComputing        RunPhase = "computing_averages"
	PhaseWritingPerRecord RunPhase = "writing_per_record"
	PhaseSubmittingBulk   RunPhase = "submitting_bulk"
	PhasePolling          RunPhase = "polling"
	PhaseVerifying        RunPhase = "verifying"
	PhaseCompleted        RunPhase = "completed"
	PhaseCancelled        RunPhase = "cancelled"
	PhaseFailed           RunPhase = "failed"
)

// Valid returns true if the phase is known.
func (p RunPhase) Valid() bool {
	switch p {
	case PhaseIdle, PhaseResuming, PhaseComputing, PhaseWritingPerRecord, PhaseSubmittingBulk,
		PhasePolling, PhaseVerifying, PhaseCompleted, PhaseCancelled, PhaseFailed:
		return true
	}
	return false
}

// Terminal reports whether the workflow has ended. Terminal phases are never persisted.
func (p RunPhase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseCancelled || p == PhaseFailed
}

// Strategy is the write path chosen for a run.
type Strategy string

const (
	// StrategyPerRecord writes every delta with an individual synchronous call.
	StrategyPerRecord Strategy = "per_record"
	// StrategyBulk submits all deltas as one asynchronous remote job.
	StrategyBulk Strategy = "bulk"
)

// RunState is the persisted record for one run scope (a course).
// It is stored as a single versioned document so partial writes cannot leave
// independently-keyed fields out of sync.
type RunState struct {
	Version             int          `json:"version"`
	Phase               RunPhase     `json:"phase"`
	InProgress          bool         `json:"in_progress"`
	StartTime           time.Time    `json:"start_time"`
	JobID               string       `json:"job_id,omitempty"`
	TargetID            string       `json:"target_id,omitempty"`
	ExpectedDeltas      []ScoreDelta `json:"expected_deltas"`
	VerificationPending bool         `json:"verification_pending"`
	Strategy            Strategy     `json:"strategy,omitempty"`
	LeaseOwner          string       `json:"lease_owner,omitempty"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// Validation errors for RunState invariants.
var (
	ErrVerificationWithoutDeltas = errors.New("verification pending requires expected deltas and target id")
	ErrJobWithoutBulk            = errors.New("job id is only valid on the bulk path")
	ErrTerminalPhasePersisted    = errors.New("terminal phases are never persisted")
)

// Validate enforces the RunState invariants.
func (s *RunState) Validate() error {
	if s == nil {
		return errors.New("run state is nil")
	}
	if s.Version != RunStateVersion {
		return fmt.Errorf("unsupported run state version %d", s.Version)
	}
	if !s.Phase.Valid() {
		return fmt.Errorf("invalid run phase %q", s.Phase)
	}
	if s.Phase.Terminal() {
		return ErrTerminalPhasePersisted
	}
	if s.VerificationPending && (s.ExpectedDeltas == nil || s.TargetID == "") {
		return ErrVerificationWithoutDeltas
	}
	if s.JobID != "" && s.Strategy != StrategyBulk {
		return ErrJobWithoutBulk
	}
	return nil
}

// Resumable reports whether a restart should pick this run back up.
func (s *RunState) Resumable() bool {
	return s != nil && (s.InProgress || s.VerificationPending)
}

// RunStatePatch describes a partial update. Nil fields are left untouched;
// pointers to zero values clear the field.
type RunStatePatch struct {
	Phase               *RunPhase
	InProgress          *bool
	StartTime           *time.Time
	JobID               *string
	TargetID            *string
	ExpectedDeltas      *[]ScoreDelta
	VerificationPending *bool
	Strategy            *Strategy
	LeaseOwner          *string
}

// Apply merges the patch into state and stamps UpdatedAt.
func (p RunStatePatch) Apply(state *RunState, now time.Time) {
	state.Version = RunStateVersion
	if state.Phase == "" {
		state.Phase = PhaseIdle
	}
	if p.Phase != nil {
		state.Phase = *p.Phase
	}
	if p.InProgress != nil {
		state.InProgress = *p.InProgress
	}
	if p.StartTime != nil {
		state.StartTime = *p.StartTime
	}
	if p.JobID != nil {
		state.JobID = *p.JobID
	}
	if p.TargetID != nil {
		state.TargetID = *p.TargetID
	}
	if p.ExpectedDeltas != nil {
		state.ExpectedDeltas = *p.ExpectedDeltas
	}
	if p.VerificationPending != nil {
		state.VerificationPending = *p.VerificationPending
	}
	if p.Strategy != nil {
		state.Strategy = *p.Strategy
	}
	if p.LeaseOwner != nil {
		state.LeaseOwner = *p.LeaseOwner
	}
	state.UpdatedAt = now
}

const runStateSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "phase", "in_progress", "start_time", "expected_deltas", "verification_pending", "updated_at"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "phase": {"type": "string", "minLength": 1},
    "in_progress": {"type": "boolean"},
    "start_time": {"type": "string"},
    "job_id": {"type": "string"},
    "target_id": {"type": "string"},
    "expected_deltas": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["user_id", "average"],
        "properties": {
          "user_id": {"type": "string", "minLength": 1},
          "average": {"type": "number"}
        }
      }
    },
    "verification_pending": {"type": "boolean"},
    "strategy": {"type": "string", "enum": ["per_record", "bulk", ""]},
    "lease_owner": {"type": "string"},
    "updated_at": {"type": "string"}
  }
}`

var (
	runStateSchemaOnce     sync.Once
	runStateSchemaCompiled *jsonschema.Schema
	errRunStateSchema      error
)

func compiledRunStateSchema() (*jsonschema.Schema, error) {
	runStateSchemaOnce.Do(func() {
		runStateSchemaCompiled, errRunStateSchema = jsonschema.CompileString("run_state.json", runStateSchema)
	})
	return runStateSchemaCompiled, errRunStateSchema
}

// EncodeRunState validates and serialises a RunState for storage.
func EncodeRunState(state *RunState) ([]byte, error) {
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run state: %w", err)
	}
	b, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal run state: %w", err)
	}
	return b, nil
}

// DecodeRunState schema-checks stored bytes and decodes them into a RunState.
func DecodeRunState(data []byte) (*RunState, error) {
	schema, err := compiledRunStateSchema()
	if err != nil {
		return nil, fmt.Errorf("compile run state schema: %w", err)
	}

	var doc any
	if err = json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal run state document: %w", err)
	}
	if err = schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("run state does not match schema: %w", err)
	}

	var state RunState
	if err = json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal run state: %w", err)
	}
	if err = state.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run state: %w", err)
	}
	return &state, nil
}
