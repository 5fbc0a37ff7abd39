package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/target/gradesync/internal/domain/model"
)

func ptr[T any](v T) *T { return &v }

// memRunStore is an in-memory core.RunStore that round-trips through the
// stored document encoding and remembers every persisted state.
type memRunStore struct {
	mu      sync.Mutex
	docs    map[string][]byte
	history []model.RunState
	clears  int
	last    map[string]model.RunRecord
}

func newMemRunStore() *memRunStore {
	return &memRunStore{docs: make(map[string][]byte), last: make(map[string]model.RunRecord)}
}

func (s *memRunStore) SaveLastSuccess(_ context.Context, scope string, rec *model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[scope] = *rec
	return nil
}

func (s *memRunStore) LastSuccess(_ context.Context, scope string) (*model.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.last[scope]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *memRunStore) Get(_ context.Context, scope string) (*model.RunState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[scope]
	if !ok {
		return nil, nil
	}
	return model.DecodeRunState(doc)
}

func (s *memRunStore) Set(_ context.Context, scope string, patch model.RunStatePatch) (*model.RunState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := &model.RunState{}
	if doc, ok := s.docs[scope]; ok {
		current, err := model.DecodeRunState(doc)
		if err != nil {
			return nil, err
		}
		state = current
	}
	patch.Apply(state, time.Now())
	doc, err := model.EncodeRunState(state)
	if err != nil {
		return nil, err
	}
	s.docs[scope] = doc
	s.history = append(s.history, *state)
	return state, nil
}

func (s *memRunStore) Clear(_ context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, scope)
	s.clears++
	return nil
}

func (s *memRunStore) seed(scope string, state *model.RunState) {
	doc, err := model.EncodeRunState(state)
	if err != nil {
		panic(fmt.Sprintf("seed run state: %v", err))
	}
	s.mu.Lock()
	s.docs[scope] = doc
	s.mu.Unlock()
}

func (s *memRunStore) persisted() []model.RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RunState(nil), s.history...)
}

// memRunLease is an in-memory core.RunLease without expiry.
type memRunLease struct {
	mu     sync.Mutex
	owners map[string]string
}

func newMemRunLease() *memRunLease {
	return &memRunLease{owners: make(map[string]string)}
}

func (l *memRunLease) Acquire(_ context.Context, scope, owner string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.owners[scope]; ok && cur != owner {
		return false, nil
	}
	l.owners[scope] = owner
	return true, nil
}

func (l *memRunLease) Renew(_ context.Context, scope, owner string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owners[scope] == owner, nil
}

func (l *memRunLease) Release(_ context.Context, scope, owner string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owners[scope] != owner {
		return false, nil
	}
	delete(l.owners, scope)
	return true, nil
}

func (l *memRunLease) Holder(_ context.Context, scope string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owners[scope], nil
}

// statusLog records every status update.
type statusLog struct {
	mu       sync.Mutex
	statuses []model.Status
}

func (s *statusLog) Report(_ context.Context, st model.Status) {
	s.mu.Lock()
	s.statuses = append(s.statuses, st)
	s.mu.Unlock()
}

func (s *statusLog) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.statuses))
	for _, st := range s.statuses {
		out = append(out, st.Message)
	}
	return out
}

// propagationLog records enqueued overrides without running them.
type propagationLog struct {
	mu    sync.Mutex
	users []string
}

func (p *propagationLog) Propagate(_, userID string, _ float64) bool {
	p.mu.Lock()
	p.users = append(p.users, userID)
	p.mu.Unlock()
	return true
}

func (p *propagationLog) Drain(context.Context) error { return nil }

func (p *propagationLog) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.users)
}
