package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/gradesync/internal/domain/model"
	apperrors "github.com/target/gradesync/internal/errors"
	"github.com/target/gradesync/internal/testutil"
)

func TestRunHistoryRepo_RecordAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewRunHistoryRepo(db)
	base := testutil.TestTime()

	_, err := repo.LastSuccessful(ctx, "course-1")
	require.True(t, apperrors.IsNotFound(err), "got %v", err)

	runs := []*model.RunRecord{
		{CourseID: "course-1", TargetID: "m1", Strategy: model.StrategyPerRecord,
			Outcome: model.OutcomeCompleted, Updated: 3, StartedAt: base, FinishedAt: base.Add(time.Minute)},
		{CourseID: "course-1", TargetID: "m1", Strategy: model.StrategyBulk,
			Outcome: model.OutcomeFailed, Message: "Bulk update failed", StartedAt: base, FinishedAt: base.Add(2 * time.Minute)},
		{CourseID: "course-2", TargetID: "m2", Strategy: model.StrategyBulk,
			Outcome: model.OutcomeUnconfirmed, Updated: 700, StartedAt: base, FinishedAt: base.Add(3 * time.Minute)},
	}
	for _, r := range runs {
		require.NoError(t, repo.RecordRun(ctx, r))
		assert.NotEmpty(t, r.ID)
	}

	last, err := repo.LastSuccessful(ctx, "course-1")
	require.NoError(t, err)
	assert.Equal(t, runs[0].ID, last.ID)
	assert.Equal(t, 3, last.Updated)

	last, err = repo.LastSuccessful(ctx, "course-2")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeUnconfirmed, last.Outcome)

	list, err := repo.List(ctx, "course-1", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, model.OutcomeFailed, list[0].Outcome, "newest first")
	assert.Equal(t, "Bulk update failed", list[0].Message)
}

func TestRunHistoryRepo_RecordValidation(t *testing.T) {
	repo := NewRunHistoryRepo(nil)
	err := repo.RecordRun(context.Background(), nil)
	assert.True(t, apperrors.IsValidation(err))

	err = repo.RecordRun(context.Background(), &model.RunRecord{})
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "course_id", apperrors.GetField(err))
}

func TestRunHistoryRepo_DuplicateIDConflicts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewRunHistoryRepo(db)

	rec := &model.RunRecord{CourseID: "c", Strategy: model.StrategyPerRecord, Outcome: model.OutcomeCompleted}
	require.NoError(t, repo.RecordRun(ctx, rec))
	dup := *rec
	err := repo.RecordRun(ctx, &dup)
	assert.True(t, apperrors.IsConflict(err), "got %v", err)
}

func TestPropagationFailureRepo_RecordAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := NewPropagationFailureRepo(db)
	repo.timeProvider = NewFixedTimeProvider(testutil.TestTime())

	require.NoError(t, repo.Record(ctx, &model.PropagationFailure{
		CourseID: "c", UserID: "u1", Scaled: 87.5, Attempts: 3, Error: "502 bad gateway",
	}))
	require.NoError(t, repo.Record(ctx, &model.PropagationFailure{
		CourseID: "c", UserID: "u2", Scaled: 50, OccurredAt: testutil.TestTime().Add(time.Hour),
	}))

	list, err := repo.ListByCourse(ctx, "c", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "u2", list[0].UserID)
	assert.Equal(t, 1, list[0].Attempts, "attempts default to one")
	assert.InDelta(t, 87.5, list[1].Scaled, 1e-9)
	assert.True(t, list[1].OccurredAt.Equal(testutil.TestTime()))

	err = repo.Record(ctx, &model.PropagationFailure{CourseID: "c"})
	assert.True(t, apperrors.IsValidation(err))
}
