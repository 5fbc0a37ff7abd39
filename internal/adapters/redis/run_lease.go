package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// renewScript extends the lease only if the caller still owns it.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// releaseScript deletes the lease only if the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLease is an owner-token lease with expiry guarding one run per scope.
type RunLease struct {
	client redis.UniversalClient
	prefix string
}

// NewRunLease creates a Redis-backed run lease. An empty prefix uses the default.
func NewRunLease(client redis.UniversalClient, prefix string) *RunLease {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RunLease{client: client, prefix: prefix}
}

func (l *RunLease) key(scope string) string {
	return l.prefix + "lease:" + scope
}

// Acquire takes the lease with SET NX PX. Re-acquiring a lease the owner
// already holds refreshes its expiry.
func (l *RunLease) Acquire(ctx context.Context, scope, owner string, ttl time.Duration) (bool, error) {
	if scope == "" || owner == "" {
		return false, errors.New("scope and owner are required")
	}
	if ttl < time.Millisecond {
		ttl = time.Second
	}

	_, err := l.client.SetArgs(ctx, l.key(scope), owner, redis.SetArgs{Mode: "NX", TTL: ttl}).Result()
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("redis SET NX: %w", err)
	}
	// Key exists: only the same owner may continue.
	return l.Renew(ctx, scope, owner, ttl)
}

// Renew extends the lease if owner still holds it.
func (l *RunLease) Renew(ctx context.Context, scope, owner string, ttl time.Duration) (bool, error) {
	res, err := renewScript.Run(ctx, l.client, []string{l.key(scope)}, owner, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("renew lease: %w", err)
	}
	return res == 1, nil
}

// Release drops the lease if owner still holds it.
func (l *RunLease) Release(ctx context.Context, scope, owner string) (bool, error) {
	res, err := releaseScript.Run(ctx, l.client, []string{l.key(scope)}, owner).Int64()
	if err != nil {
		return false, fmt.Errorf("release lease: %w", err)
	}
	return res == 1, nil
}

// Holder returns the current owner, or "" when the lease is free.
func (l *RunLease) Holder(ctx context.Context, scope string) (string, error) {
	owner, err := l.client.Get(ctx, l.key(scope)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return owner, nil
}
