package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/gradesync/internal/domain/model"
	apperrors "github.com/target/gradesync/internal/errors"
	"github.com/target/gradesync/internal/mocks"
)

func expectEnrollmentPages(api *mocks.MockGradingAPI, courseID string) {
	first := api.EXPECT().ListEnrollments(gomock.Any(), courseID, "").Return(&model.EnrollmentPage{
		Enrollments: []model.Enrollment{{ID: "e1", UserID: "u1"}, {ID: "e2", UserID: "u2"}},
		NextPage:    "page-2",
	}, nil)
	api.EXPECT().ListEnrollments(gomock.Any(), courseID, "page-2").Return(&model.EnrollmentPage{
		Enrollments: []model.Enrollment{{ID: "e3", UserID: "u3"}, {ID: "e9", UserID: "u1"}},
	}, nil).After(first)
}

func TestEnrollmentResolver_LoadsAllPagesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockGradingAPI(ctrl)
	expectEnrollmentPages(api, "c1")

	r, err := NewEnrollmentResolver(EnrollmentResolverOptions{Lister: api})
	require.NoError(t, err)
	ctx := context.Background()

	id, err := r.Resolve(ctx, "c1", "u3")
	require.NoError(t, err)
	assert.Equal(t, "e3", id)

	// First enrollment wins for duplicate users; served from cache.
	id, err = r.Resolve(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "e1", id)

	_, err = r.Resolve(ctx, "c1", "nobody")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestEnrollmentResolver_ConcurrentMissesShareOneFetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockGradingAPI(ctrl)
	expectEnrollmentPages(api, "c1")

	r, err := NewEnrollmentResolver(EnrollmentResolverOptions{Lister: api})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, user := range []string{"u1", "u2", "u3", "u1", "u2", "u3"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, rerr := r.Resolve(context.Background(), "c1", user)
			assert.NoError(t, rerr)
		}()
	}
	wg.Wait()
}

func TestEnrollmentResolver_ForgetRefetches(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockGradingAPI(ctrl)
	api.EXPECT().ListEnrollments(gomock.Any(), "c1", "").Return(&model.EnrollmentPage{
		Enrollments: []model.Enrollment{{ID: "e1", UserID: "u1"}},
	}, nil).Times(2)

	r, err := NewEnrollmentResolver(EnrollmentResolverOptions{Lister: api})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = r.Resolve(ctx, "c1", "u1")
	require.NoError(t, err)
	r.Forget("c1")
	id, err := r.Resolve(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "e1", id)
}

func TestEnrollmentResolver_EvictionTriggersReload(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockGradingAPI(ctrl)
	api.EXPECT().ListEnrollments(gomock.Any(), "c1", "").Return(&model.EnrollmentPage{
		Enrollments: []model.Enrollment{{ID: "e1", UserID: "u1"}, {ID: "e2", UserID: "u2"}},
	}, nil).Times(2)
	api.EXPECT().ListEnrollments(gomock.Any(), "c2", "").Return(&model.EnrollmentPage{
		Enrollments: []model.Enrollment{{ID: "e7", UserID: "u7"}},
	}, nil)

	r, err := NewEnrollmentResolver(EnrollmentResolverOptions{Lister: api, Size: 2})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = r.Resolve(ctx, "c1", "u1")
	require.NoError(t, err)
	// A cache hit on u2 leaves u1 as the least recently used entry.
	_, err = r.Resolve(ctx, "c1", "u2")
	require.NoError(t, err)
	// Loading c2 evicts u1, so c1 is no longer complete.
	_, err = r.Resolve(ctx, "c2", "u7")
	require.NoError(t, err)

	id, err := r.Resolve(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "e1", id)
}

func TestEnrollmentResolver_ListError(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockGradingAPI(ctrl)
	api.EXPECT().ListEnrollments(gomock.Any(), "c1", "").Return(nil, errors.New("unavailable"))

	r, err := NewEnrollmentResolver(EnrollmentResolverOptions{Lister: api})
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), "c1", "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")
	assert.False(t, apperrors.IsNotFound(err))
}
