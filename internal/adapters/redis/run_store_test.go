package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/gradesync/internal/domain/model"
	"github.com/target/gradesync/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

func TestRunStore_SetGetClear(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	clock := testutil.NewTestTimeProvider(testutil.TestTime())
	store := NewRunStore(RunStoreOptions{Client: client, Prefix: "test:", TimeProvider: clock})
	ctx := context.Background()

	got, err := store.Get(ctx, "course-1")
	require.NoError(t, err)
	assert.Nil(t, got, "absent scope reads as nil")

	start := testutil.TestTime()
	state, err := store.Set(ctx, "course-1", model.RunStatePatch{
		Phase:      ptr(model.PhaseSubmittingBulk),
		InProgress: ptr(true),
		StartTime:  ptr(start),
		Strategy:   ptr(model.StrategyBulk),
	})
	require.NoError(t, err)
	assert.Equal(t, model.RunStateVersion, state.Version)

	clock.AddTime(time.Minute)
	_, err = store.Set(ctx, "course-1", model.RunStatePatch{
		Phase: ptr(model.PhasePolling),
		JobID: ptr("4242"),
	})
	require.NoError(t, err)

	got, err = store.Get(ctx, "course-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "4242", got.JobID)
	assert.True(t, got.InProgress, "earlier fields survive later patches")
	assert.True(t, got.StartTime.Equal(start))
	assert.True(t, got.UpdatedAt.Equal(start.Add(time.Minute)))

	require.NoError(t, store.Clear(ctx, "course-1"))
	got, err = store.Get(ctx, "course-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRunStore_RejectsInvalidPatch(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewRunStore(RunStoreOptions{Client: client})
	ctx := context.Background()

	_, err := store.Set(ctx, "course-2", model.RunStatePatch{
		VerificationPending: ptr(true),
	})
	require.Error(t, err)

	got, err := store.Get(ctx, "course-2")
	require.NoError(t, err)
	assert.Nil(t, got, "invalid state must not be written")
}

func TestRunStore_CorruptDocument(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewRunStore(RunStoreOptions{Client: client, Prefix: "test:"})
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "test:run:course-3", `{"version":1}`, 0).Err())
	_, err := store.Get(ctx, "course-3")
	require.Error(t, err)
}

func TestRunLease_OwnerSemantics(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	lease := NewRunLease(client, "test:")
	ctx := context.Background()

	ok, err := lease.Acquire(ctx, "course-1", "owner-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lease.Acquire(ctx, "course-1", "owner-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "a live lease of another owner refuses collision")

	ok, err = lease.Acquire(ctx, "course-1", "owner-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "the holder may re-acquire")

	holder, err := lease.Holder(ctx, "course-1")
	require.NoError(t, err)
	assert.Equal(t, "owner-a", holder)

	ok, err = lease.Release(ctx, "course-1", "owner-b")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = lease.Release(ctx, "course-1", "owner-a")
	require.NoError(t, err)
	assert.True(t, ok)

	holder, err = lease.Holder(ctx, "course-1")
	require.NoError(t, err)
	assert.Empty(t, holder)
}

func TestRunLease_ExpiredLeaseCanBeTaken(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	lease := NewRunLease(client, "test:")
	ctx := context.Background()

	ok, err := lease.Acquire(ctx, "course-9", "owner-a", 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		ok, err = lease.Acquire(ctx, "course-9", "owner-b", time.Minute)
		return err == nil && ok
	}, 2*time.Second, 25*time.Millisecond)

	renewed, err := lease.Renew(ctx, "course-9", "owner-a", time.Minute)
	require.NoError(t, err)
	assert.False(t, renewed, "the previous owner lost the lease")
}

func TestRunStore_LastSuccessSurvivesClear(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewRunStore(RunStoreOptions{Client: client, Prefix: "test:"})
	ctx := context.Background()

	got, err := store.LastSuccess(ctx, "course-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	start := testutil.TestTime()
	rec := &model.RunRecord{
		ID:         "run-1",
		CourseID:   "course-1",
		Strategy:   model.StrategyPerRecord,
		Outcome:    model.OutcomeCompleted,
		Updated:    2,
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
	}
	require.NoError(t, store.SaveLastSuccess(ctx, "course-1", rec))
	require.NoError(t, store.Clear(ctx, "course-1"))

	got, err = store.LastSuccess(ctx, "course-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, 2, got.Updated)
	assert.Equal(t, 90*time.Second, got.Duration())
}
