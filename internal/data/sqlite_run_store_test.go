package data

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/gradesync/internal/domain/model"
	"github.com/target/gradesync/internal/testutil"
)

func openTestSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func ptr[T any](v T) *T { return &v }

func TestSQLiteRunStore_SetGetClear(t *testing.T) {
	ctx := context.Background()
	clock := NewFixedTimeProvider(testutil.TestTime())
	store := NewSQLiteRunStore(openTestSQLite(t), clock)

	got, err := store.Get(ctx, "course-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	start := testutil.TestTime()
	state, err := store.Set(ctx, "course-1", model.RunStatePatch{
		Phase:      ptr(model.PhaseComputing),
		InProgress: ptr(true),
		StartTime:  &start,
	})
	require.NoError(t, err)
	assert.Equal(t, model.PhaseComputing, state.Phase)

	clock.AddTime(time.Second)
	deltas := []model.ScoreDelta{{UserID: "u1", Average: 3.5}}
	state, err = store.Set(ctx, "course-1", model.RunStatePatch{
		Phase:               ptr(model.PhaseVerifying),
		TargetID:            ptr("m-9"),
		ExpectedDeltas:      &deltas,
		VerificationPending: ptr(true),
	})
	require.NoError(t, err)
	assert.True(t, state.InProgress, "untouched fields survive a patch")

	got, err = store.Get(ctx, "course-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, deltas, got.ExpectedDeltas)
	assert.Equal(t, "m-9", got.TargetID)
	assert.True(t, got.StartTime.Equal(start))
	assert.True(t, got.UpdatedAt.Equal(start.Add(time.Second)))

	require.NoError(t, store.Clear(ctx, "course-1"))
	got, err = store.Get(ctx, "course-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteRunStore_RejectsInvalidPatch(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteRunStore(openTestSQLite(t), nil)

	_, err := store.Set(ctx, "course-1", model.RunStatePatch{VerificationPending: ptr(true)})
	require.ErrorIs(t, err, model.ErrVerificationWithoutDeltas)

	got, err := store.Get(ctx, "course-1")
	require.NoError(t, err)
	assert.Nil(t, got, "a rejected patch must not be persisted")

	_, err = store.Set(ctx, "", model.RunStatePatch{})
	require.ErrorIs(t, err, ErrScopeRequired)
}

func TestSQLiteRunStore_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)
	_, err := db.ExecContext(ctx,
		`INSERT INTO run_state (scope, document, updated_at) VALUES ('c', '{"phase":1}', '')`)
	require.NoError(t, err)

	_, err = NewSQLiteRunStore(db, nil).Get(ctx, "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode run state")
}

func TestSQLiteRunLease_OwnerSemantics(t *testing.T) {
	ctx := context.Background()
	clock := NewFixedTimeProvider(testutil.TestTime())
	lease := NewSQLiteRunLease(openTestSQLite(t), clock)

	ok, err := lease.Acquire(ctx, "course-1", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lease.Acquire(ctx, "course-1", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "live lease held by another owner")

	ok, err = lease.Acquire(ctx, "course-1", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "same owner re-acquires")

	ok, err = lease.Renew(ctx, "course-1", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	holder, err := lease.Holder(ctx, "course-1")
	require.NoError(t, err)
	assert.Equal(t, "a", holder)

	ok, err = lease.Release(ctx, "course-1", "b")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = lease.Release(ctx, "course-1", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	holder, err = lease.Holder(ctx, "course-1")
	require.NoError(t, err)
	assert.Empty(t, holder)
}

func TestSQLiteRunLease_ExpiredLeaseIsTaken(t *testing.T) {
	ctx := context.Background()
	clock := NewFixedTimeProvider(testutil.TestTime())
	lease := NewSQLiteRunLease(openTestSQLite(t), clock)

	ok, err := lease.Acquire(ctx, "course-1", "a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	clock.AddTime(2 * time.Minute)

	ok, err = lease.Renew(ctx, "course-1", "a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "expired lease cannot be renewed")

	ok, err = lease.Acquire(ctx, "course-1", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	holder, err := lease.Holder(ctx, "course-1")
	require.NoError(t, err)
	assert.Equal(t, "b", holder)
}

func TestSQLiteRunStore_LastSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteRunStore(openTestSQLite(t), nil)

	got, err := store.LastSuccess(ctx, "course-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	start := testutil.TestTime()
	first := &model.RunRecord{ID: "run-1", CourseID: "course-1", Outcome: model.OutcomeCompleted,
		StartedAt: start, FinishedAt: start.Add(time.Minute)}
	second := &model.RunRecord{ID: "run-2", CourseID: "course-1", Outcome: model.OutcomeUnconfirmed,
		Strategy: model.StrategyBulk, Updated: 600, StartedAt: start, FinishedAt: start.Add(5 * time.Minute)}
	require.NoError(t, store.SaveLastSuccess(ctx, "course-1", first))
	require.NoError(t, store.SaveLastSuccess(ctx, "course-1", second))
	require.NoError(t, store.Clear(ctx, "course-1"))

	got, err = store.LastSuccess(ctx, "course-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "run-2", got.ID, "the newest success replaces the previous one")
	assert.Equal(t, 600, got.Updated)
	assert.Equal(t, 5*time.Minute, got.Duration())

	require.ErrorIs(t, store.SaveLastSuccess(ctx, "", first), ErrScopeRequired)
}
