package gradesync_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/gradesync/internal/domain/gradesync"
	"github.com/target/gradesync/internal/domain/model"
)

func score(v float64) *float64 { return &v }

func rollup(user string, scores ...model.RollupScore) model.Rollup {
	return model.Rollup{UserID: user, Scores: scores}
}

func metric(id, title string, v *float64) model.RollupScore {
	return model.RollupScore{MetricID: id, Title: title, Score: v}
}

func TestComputeDeltas_ExcludedKeywordScenario(t *testing.T) {
	rollups := []model.Rollup{
		rollup("u1",
			metric("10", "Reading", score(3)),
			metric("11", "Writing", score(4)),
			metric("12", "Homework Completion", score(1)),
		),
		rollup("u2",
			metric("10", "Reading", score(2)),
			metric("12", "Homework Completion", score(4)),
		),
		rollup("u3",
			metric("12", "Homework Completion", score(4)),
		),
	}

	deltas := gradesync.ComputeDeltas(rollups, gradesync.ComputeOptions{
		TargetID:   "99",
		Exclusions: gradesync.Exclusions{Keywords: []string{"homework completion"}},
	})

	require.Len(t, deltas, 2)
	assert.Equal(t, model.ScoreDelta{UserID: "u1", Average: 3.5}, deltas[0])
	assert.Equal(t, model.ScoreDelta{UserID: "u2", Average: 2}, deltas[1])
}

func TestComputeDeltas_Filters(t *testing.T) {
	tests := []struct {
		name     string
		rollup   model.Rollup
		opts     gradesync.ComputeOptions
		expected []model.ScoreDelta
	}{
		{
			name: "target metric never counts toward its own average",
			rollup: rollup("u1",
				metric("t", "Current Score", score(1)),
				metric("a", "Algebra", score(3)),
			),
			opts:     gradesync.ComputeOptions{TargetID: "t"},
			expected: []model.ScoreDelta{{UserID: "u1", Average: 3}},
		},
		{
			name: "non-numeric scores are ignored",
			rollup: rollup("u1",
				metric("a", "Algebra", nil),
				metric("b", "Biology", score(2)),
			),
			opts:     gradesync.ComputeOptions{TargetID: "t"},
			expected: []model.ScoreDelta{{UserID: "u1", Average: 2}},
		},
		{
			name: "excluded metric ids are ignored",
			rollup: rollup("u1",
				metric("a", "Algebra", score(4)),
				metric("b", "Biology", score(2)),
			),
			opts: gradesync.ComputeOptions{
				TargetID:   "t",
				Exclusions: gradesync.Exclusions{MetricIDs: []string{"a"}},
			},
			expected: []model.ScoreDelta{{UserID: "u1", Average: 2}},
		},
		{
			name: "keyword match is case-insensitive substring",
			rollup: rollup("u1",
				metric("a", "Weekly HOMEWORK completion (Q1)", score(4)),
				metric("b", "Biology", score(2)),
			),
			opts: gradesync.ComputeOptions{
				TargetID:   "t",
				Exclusions: gradesync.Exclusions{Keywords: []string{"Homework Completion"}},
			},
			expected: []model.ScoreDelta{{UserID: "u1", Average: 2}},
		},
		{
			name: "average rounds to two decimals",
			rollup: rollup("u1",
				metric("a", "A", score(3)),
				metric("b", "B", score(3)),
				metric("c", "C", score(4)),
			),
			opts:     gradesync.ComputeOptions{TargetID: "t"},
			expected: []model.ScoreDelta{{UserID: "u1", Average: 3.33}},
		},
		{
			name: "no-op when current target value already equals the average",
			rollup: rollup("u1",
				metric("t", "Current", score(3.333)),
				metric("a", "A", score(3)),
				metric("b", "B", score(3)),
				metric("c", "C", score(4)),
			),
			opts:     gradesync.ComputeOptions{TargetID: "t"},
			expected: []model.ScoreDelta{},
		},
		{
			name: "zero-out bypasses filters",
			rollup: rollup("u1",
				metric("a", "Homework Completion", nil),
			),
			opts: gradesync.ComputeOptions{
				TargetID:   "t",
				ZeroOut:    true,
				Exclusions: gradesync.Exclusions{Keywords: []string{"homework"}},
			},
			expected: []model.ScoreDelta{{UserID: "u1", Average: 0}},
		},
		{
			name: "zero-out still suppresses students already at zero",
			rollup: rollup("u1",
				metric("t", "Current", score(0)),
				metric("a", "A", score(2)),
			),
			opts:     gradesync.ComputeOptions{TargetID: "t", ZeroOut: true},
			expected: []model.ScoreDelta{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gradesync.ComputeDeltas([]model.Rollup{tt.rollup}, tt.opts)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestComputeDeltas_IdempotentAndUnique(t *testing.T) {
	rollups := []model.Rollup{
		rollup("u1", metric("a", "A", score(1)), metric("b", "B", score(2))),
		rollup("u2", metric("a", "A", score(4))),
		rollup("u1", metric("a", "A", score(4))),
	}
	opts := gradesync.ComputeOptions{TargetID: "t"}

	first := gradesync.ComputeDeltas(rollups, opts)
	second := gradesync.ComputeDeltas(rollups, opts)

	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, "u1", first[0].UserID)
	assert.InDelta(t, 1.5, first[0].Average, 1e-9)
}

func TestRound2(t *testing.T) {
	assert.InDelta(t, 2.68, gradesync.Round2(2.675000001), 1e-9)
	assert.InDelta(t, 3.5, gradesync.Round2(3.5), 1e-9)
	assert.InDelta(t, -1.24, gradesync.Round2(-1.235001), 1e-9)
}
