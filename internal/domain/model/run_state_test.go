package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/gradesync/internal/domain/model"
)

func ptr[T any](v T) *T { return &v }

func TestRunStatePatch_Apply(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var state model.RunState

	model.RunStatePatch{
		InProgress: ptr(true),
		StartTime:  ptr(now),
		Strategy:   ptr(model.StrategyBulk),
		JobID:      ptr("42"),
	}.Apply(&state, now)

	assert.Equal(t, model.RunStateVersion, state.Version)
	assert.Equal(t, model.PhaseIdle, state.Phase)
	assert.True(t, state.InProgress)
	assert.Equal(t, "42", state.JobID)
	assert.Equal(t, now, state.UpdatedAt)

	later := now.Add(time.Minute)
	model.RunStatePatch{JobID: ptr(""), InProgress: ptr(false)}.Apply(&state, later)
	assert.Empty(t, state.JobID)
	assert.False(t, state.InProgress)
	assert.Equal(t, model.StrategyBulk, state.Strategy, "untouched fields survive")
	assert.Equal(t, later, state.UpdatedAt)
}

func TestRunState_Validate(t *testing.T) {
	valid := func() model.RunState {
		return model.RunState{
			Version:  model.RunStateVersion,
			Phase:    model.PhasePolling,
			Strategy: model.StrategyBulk,
			JobID:    "9",
		}
	}

	s := valid()
	require.NoError(t, s.Validate())

	s = valid()
	s.Phase = model.PhaseCompleted
	require.ErrorIs(t, s.Validate(), model.ErrTerminalPhasePersisted)

	s = valid()
	s.Strategy = model.StrategyPerRecord
	require.ErrorIs(t, s.Validate(), model.ErrJobWithoutBulk)

	s = valid()
	s.VerificationPending = true
	require.ErrorIs(t, s.Validate(), model.ErrVerificationWithoutDeltas)

	s.TargetID = "t"
	s.ExpectedDeltas = []model.ScoreDelta{}
	require.NoError(t, s.Validate(), "empty but present deltas are acceptable")

	s = valid()
	s.Version = 7
	require.Error(t, s.Validate())
}

func TestEncodeDecodeRunState(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	in := &model.RunState{
		Version:             model.RunStateVersion,
		Phase:               model.PhaseVerifying,
		StartTime:           start,
		TargetID:            "55",
		ExpectedDeltas:      []model.ScoreDelta{{UserID: "u1", Average: 3.5}},
		VerificationPending: true,
		Strategy:            model.StrategyPerRecord,
		UpdatedAt:           start,
	}

	raw, err := model.EncodeRunState(in)
	require.NoError(t, err)

	out, err := model.DecodeRunState(raw)
	require.NoError(t, err)
	assert.Equal(t, in.ExpectedDeltas, out.ExpectedDeltas)
	assert.True(t, out.StartTime.Equal(start))
	assert.True(t, out.Resumable())
}

func TestDecodeRunState_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `{`},
		{name: "missing fields", raw: `{"version":1,"phase":"polling"}`},
		{
			name: "delta missing user",
			raw: `{"version":1,"phase":"verifying","in_progress":false,"start_time":"2025-03-01T00:00:00Z",` +
				`"expected_deltas":[{"average":1}],"verification_pending":true,"target_id":"t","updated_at":"2025-03-01T00:00:00Z"}`,
		},
		{
			name: "job on per-record path",
			raw: `{"version":1,"phase":"polling","in_progress":true,"start_time":"2025-03-01T00:00:00Z","job_id":"1",` +
				`"strategy":"per_record","expected_deltas":null,"verification_pending":false,"updated_at":"2025-03-01T00:00:00Z"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := model.DecodeRunState([]byte(tt.raw))
			require.Error(t, err)
		})
	}
}

func TestJobState(t *testing.T) {
	var s model.JobState
	require.NoError(t, s.UnmarshalText([]byte("Completed")))
	assert.Equal(t, model.JobStateCompleted, s)
	assert.True(t, s.Terminal())

	require.Error(t, s.UnmarshalText([]byte("exploded")))
}

func TestRunOutcome_Succeeded(t *testing.T) {
	assert.True(t, model.OutcomeCompleted.Succeeded())
	assert.True(t, model.OutcomeUnconfirmed.Succeeded())
	assert.False(t, model.OutcomeFailed.Succeeded())
	assert.False(t, model.OutcomeCancelled.Succeeded())
}
