package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/target/gradesync/internal/core"
	apperrors "github.com/target/gradesync/internal/errors"
)

// maxEnrollmentPages bounds one course listing in case the remote keeps
// returning a next link.
const maxEnrollmentPages = 10_000

type enrollmentKey struct {
	courseID string
	userID   string
}

// EnrollmentResolverOptions groups dependencies for EnrollmentResolver.
type EnrollmentResolverOptions struct {
	Lister core.EnrollmentLister // Required: paginated enrollment source
	Size   int                   // LRU capacity; values below 1 mean 4096
	Logger *slog.Logger          // Optional: structured logger
}

// EnrollmentResolver memoises user id to enrollment id lookups. The first miss
// for a course pulls every page of that course's enrollments; concurrent misses
// share one fetch.
type EnrollmentResolver struct {
	lister core.EnrollmentLister
	cache  *lru.Cache[enrollmentKey, string]
	group  singleflight.Group
	size   int
	logger *slog.Logger

	mu     sync.Mutex
	loaded map[string]bool
}

// NewEnrollmentResolver constructs an EnrollmentResolver.
func NewEnrollmentResolver(opts EnrollmentResolverOptions) (*EnrollmentResolver, error) {
	if opts.Lister == nil {
		return nil, errors.New("EnrollmentLister is required")
	}
	size := opts.Size
	if size < 1 {
		size = 4096
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &EnrollmentResolver{
		lister: opts.Lister,
		size:   size,
		logger: logger.With("component", "enrollment_resolver"),
		loaded: make(map[string]bool),
	}
	// An evicted entry makes its course incomplete, so the next miss refetches.
	cache, err := lru.NewWithEvict(size, func(key enrollmentKey, _ string) {
		r.mu.Lock()
		delete(r.loaded, key.courseID)
		r.mu.Unlock()
	})
	if err != nil {
		return nil, fmt.Errorf("create enrollment cache: %w", err)
	}
	r.cache = cache
	return r, nil
}

// Resolve returns the enrollment id owning userID's override score in courseID.
// A user absent from a fully loaded course yields a not_found error.
func (r *EnrollmentResolver) Resolve(ctx context.Context, courseID, userID string) (string, error) {
	key := enrollmentKey{courseID: courseID, userID: userID}
	if id, ok := r.cache.Get(key); ok {
		return id, nil
	}

	if r.isLoaded(courseID) {
		return "", apperrors.NotFoundf("no enrollment for user %s in course %s", userID, courseID)
	}

	v, err, _ := r.group.Do(courseID, func() (any, error) {
		// Another caller may have finished loading since the check above.
		if r.isLoaded(courseID) {
			return map[string]string(nil), nil
		}
		return r.load(ctx, courseID)
	})
	if err != nil {
		return "", err
	}
	if byUser := v.(map[string]string); byUser != nil {
		if id, ok := byUser[userID]; ok {
			return id, nil
		}
	} else if id, ok := r.cache.Get(key); ok {
		return id, nil
	}
	return "", apperrors.NotFoundf("no enrollment for user %s in course %s", userID, courseID)
}

func (r *EnrollmentResolver) isLoaded(courseID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded[courseID]
}

// Forget drops every cached enrollment of courseID so the next lookup refetches.
func (r *EnrollmentResolver) Forget(courseID string) {
	for _, key := range r.cache.Keys() {
		if key.courseID == courseID {
			r.cache.Remove(key)
		}
	}
	r.mu.Lock()
	delete(r.loaded, courseID)
	r.mu.Unlock()
}

func (r *EnrollmentResolver) load(ctx context.Context, courseID string) (map[string]string, error) {
	byUser := make(map[string]string)
	token := ""
	for range maxEnrollmentPages {
		page, err := r.lister.ListEnrollments(ctx, courseID, token)
		if err != nil {
			return nil, fmt.Errorf("list enrollments for course %s: %w", courseID, err)
		}
		for _, e := range page.Enrollments {
			if e.UserID == "" || e.ID == "" {
				continue
			}
			if _, seen := byUser[e.UserID]; !seen {
				byUser[e.UserID] = e.ID
			}
		}
		if page.NextPage == "" {
			break
		}
		token = page.NextPage
	}

	for userID, id := range byUser {
		r.cache.Add(enrollmentKey{courseID: courseID, userID: userID}, id)
	}
	// A course larger than the cache can never be held completely.
	if len(byUser) <= r.size {
		r.mu.Lock()
		r.loaded[courseID] = true
		r.mu.Unlock()
	}

	r.logger.DebugContext(ctx, "loaded course enrollments", "course_id", courseID, "count", len(byUser))
	return byUser, nil
}
