// Package redis provides the Redis-backed run store and run lease.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/gradesync/internal/core"
	"github.com/target/gradesync/internal/domain/model"
)

const (
	defaultPrefix = "gradesync:"
	// maxWatchRetries bounds optimistic retries when another writer touches the key mid-update.
	maxWatchRetries = 5
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// RunStoreOptions configures RunStore.
type RunStoreOptions struct {
	Client       redis.UniversalClient
	Prefix       string
	TimeProvider core.TimeProvider
}

// RunStore keeps one versioned RunState JSON document per scope.
// Updates are read-modify-write under WATCH so concurrent patches never
// interleave field by field.
type RunStore struct {
	client redis.UniversalClient
	prefix string
	clock  core.TimeProvider
}

// NewRunStore creates a Redis-backed run store.
func NewRunStore(opts RunStoreOptions) *RunStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	clock := opts.TimeProvider
	if clock == nil {
		clock = systemClock{}
	}
	return &RunStore{client: opts.Client, prefix: prefix, clock: clock}
}

func (s *RunStore) key(scope string) string {
	return s.prefix + "run:" + scope
}

// Get returns the stored RunState or nil when the scope has none.
func (s *RunStore) Get(ctx context.Context, scope string) (*model.RunState, error) {
	if scope == "" {
		return nil, errors.New("scope cannot be empty")
	}
	raw, err := s.client.Get(ctx, s.key(scope)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	state, err := model.DecodeRunState(raw)
	if err != nil {
		return nil, fmt.Errorf("decode run state for %s: %w", scope, err)
	}
	return state, nil
}

// Set applies patch to the stored state atomically and returns the result.
func (s *RunStore) Set(ctx context.Context, scope string, patch model.RunStatePatch) (*model.RunState, error) {
	if scope == "" {
		return nil, errors.New("scope cannot be empty")
	}
	key := s.key(scope)

	var result *model.RunState
	txf := func(tx *redis.Tx) error {
		state := &model.RunState{}
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("redis get: %w", err)
		default:
			if state, err = model.DecodeRunState(raw); err != nil {
				return fmt.Errorf("decode run state for %s: %w", scope, err)
			}
		}

		patch.Apply(state, s.clock.Now())
		data, err := model.EncodeRunState(state)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			result = state
		}
		return err
	}

	for range maxWatchRetries {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("run state for %s changed concurrently %d times", scope, maxWatchRetries)
}

// Clear removes the scope's state entirely.
func (s *RunStore) Clear(ctx context.Context, scope string) error {
	if scope == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(scope)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RunStore) lastKey(scope string) string {
	return s.prefix + "last:" + scope
}

// SaveLastSuccess overwrites the scope's last successful run. The key has no
// TTL and survives Clear.
func (s *RunStore) SaveLastSuccess(ctx context.Context, scope string, rec *model.RunRecord) error {
	if scope == "" {
		return errors.New("scope cannot be empty")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode last success: %w", err)
	}
	if err = s.client.Set(ctx, s.lastKey(scope), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// LastSuccess returns the scope's last successful run, or nil when there is none.
func (s *RunStore) LastSuccess(ctx context.Context, scope string) (*model.RunRecord, error) {
	if scope == "" {
		return nil, errors.New("scope cannot be empty")
	}
	raw, err := s.client.Get(ctx, s.lastKey(scope)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var rec model.RunRecord
	if err = json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode last success for %s: %w", scope, err)
	}
	return &rec, nil
}
