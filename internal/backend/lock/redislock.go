// Package lock provides a cross-process mutex on top of Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultRetryInterval = 100 * time.Millisecond

// ErrNotAcquired is returned when the lock is still held by someone else once the
// context is done.
var ErrNotAcquired = errors.New("lock not acquired")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// ReleaseFunc gives a held lock back.
type ReleaseFunc func(ctx context.Context) error

// RedisLocker implements SET NX PX locking on a single key. The lock expires after
// the TTL so a crashed holder cannot block others forever.
type RedisLocker struct {
	client        redis.UniversalClient
	key           string
	ttl           time.Duration
	retryInterval time.Duration
}

func NewRedisLocker(client redis.UniversalClient, key string, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client:        client,
		key:           key,
		ttl:           ttl,
		retryInterval: DefaultRetryInterval,
	}
}

// Acquire blocks until the lock is taken or ctx is done.
func (l *RedisLocker) Acquire(ctx context.Context) (ReleaseFunc, error) {
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
		}
		if ok {
			slog.Debug("RedisLocker: acquired", "key", l.key)
			return l.releaser(token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, l.key, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) releaser(token string) ReleaseFunc {
	return func(ctx context.Context) error {
		deleted, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int()
		if err != nil {
			return fmt.Errorf("failed to release lock %s: %w", l.key, err)
		}
		if deleted == 0 {
			slog.Warn("RedisLocker: lock expired before release", "key", l.key)
		}
		return nil
	}
}
