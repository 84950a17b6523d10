package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLocker(client, "qrsheet:sync", ttl)
	l.retryInterval = 5 * time.Millisecond
	return l, mr
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	l, mr := newTestLocker(t, time.Minute)
	ctx := context.Background()

	release, err := l.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if !mr.Exists("qrsheet:sync") {
		t.Fatalf("expected lock key to exist")
	}
	if ttl := mr.TTL("qrsheet:sync"); ttl != time.Minute {
		t.Errorf("lock TTL = %v, want %v", ttl, time.Minute)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release error: %v", err)
	}
	if mr.Exists("qrsheet:sync") {
		t.Fatalf("expected lock key to be deleted")
	}
}

func TestRedisLocker_HeldLockTimesOut(t *testing.T) {
	l, _ := newTestLocker(t, time.Minute)

	release, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	defer func() { _ = release(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("expected ErrNotAcquired, got %v", err)
	}
}

func TestRedisLocker_WaitsForRelease(t *testing.T) {
	l, _ := newTestLocker(t, time.Minute)

	release, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = release(context.Background())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	second, err := l.Acquire(ctx)
	if err != nil {
		t.Fatalf("second Acquire error: %v", err)
	}
	_ = second(ctx)
}

func TestRedisLocker_ExpiredReleaseKeepsNewHolder(t *testing.T) {
	l, mr := newTestLocker(t, time.Second)
	ctx := context.Background()

	stale, err := l.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	mr.FastForward(2 * time.Second)

	if _, err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire after expiry error: %v", err)
	}
	current, _ := mr.Get("qrsheet:sync")

	if err := stale(ctx); err != nil {
		t.Fatalf("stale release error: %v", err)
	}
	if got, _ := mr.Get("qrsheet:sync"); got != current {
		t.Fatalf("stale release removed the new holder's lock")
	}
}

func TestRedisLocker_ConnectionError(t *testing.T) {
	l, mr := newTestLocker(t, time.Minute)
	mr.Close()

	if _, err := l.Acquire(context.Background()); err == nil || errors.Is(err, ErrNotAcquired) {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestRedisLocker_TokenIsUniquePerAcquire(t *testing.T) {
	l, mr := newTestLocker(t, time.Minute)
	ctx := context.Background()

	var tokens []string
	for i := 0; i < 2; i++ {
		release, err := l.Acquire(ctx)
		if err != nil {
			t.Fatalf("Acquire error: %v", err)
		}
		token, err := mr.Get("qrsheet:sync")
		if err != nil {
			t.Fatalf("lock key missing: %v", err)
		}
		if _, err := uuid.Parse(token); err != nil {
			t.Errorf("token %q is not a UUID: %v", token, err)
		}
		tokens = append(tokens, token)
		if err := release(ctx); err != nil {
			t.Fatalf("release error: %v", err)
		}
	}
	if tokens[0] == tokens[1] {
		t.Errorf("expected a fresh token per acquire, got %q twice", tokens[0])
	}
}
