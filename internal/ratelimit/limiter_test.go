package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, limit int64) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewLimiter(rdb, limit, time.Minute), mr
}

func TestLimiterAllow(t *testing.T) {
	rl, _ := newTestLimiter(t, 2)
	now := time.Date(2026, 2, 13, 10, 0, 30, 0, time.UTC)

	for i, want := range []bool{true, true, false} {
		d, err := rl.Allow(context.Background(), "10.0.0.1", now)
		if err != nil {
			t.Fatalf("allow#%d: %v", i+1, err)
		}
		if d.Allowed != want || d.Used != int64(i+1) {
			t.Fatalf("allow#%d: got allowed=%v used=%d, want allowed=%v used=%d", i+1, d.Allowed, d.Used, want, i+1)
		}
	}

	other, err := rl.Allow(context.Background(), "10.0.0.2", now)
	if err != nil {
		t.Fatalf("allow other client: %v", err)
	}
	if !other.Allowed || other.Remaining() != 1 {
		t.Fatalf("clients must not share a window, got %+v", other)
	}
}

func TestLimiterAllow_NewWindow(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	now := time.Date(2026, 2, 13, 10, 0, 59, 0, time.UTC)

	d, err := rl.Allow(context.Background(), "c", now)
	if err != nil || !d.Allowed {
		t.Fatalf("first call: allowed=%v err=%v", d.Allowed, err)
	}
	if want := time.Date(2026, 2, 13, 10, 1, 0, 0, time.UTC); !d.ResetAt.Equal(want) {
		t.Fatalf("ResetAt = %v, want %v", d.ResetAt, want)
	}

	d, err = rl.Allow(context.Background(), "c", now.Add(2*time.Second))
	if err != nil || !d.Allowed || d.Used != 1 {
		t.Fatalf("next window: got %+v err=%v", d, err)
	}
}

func TestLimiterAllow_SetsExpiry(t *testing.T) {
	rl, mr := newTestLimiter(t, 5)
	now := time.Date(2026, 2, 13, 10, 0, 45, 0, time.UTC)

	if _, err := rl.Allow(context.Background(), "c", now); err != nil {
		t.Fatalf("allow: %v", err)
	}

	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("keys = %v, want exactly one", keys)
	}
	if ttl := mr.TTL(keys[0]); ttl != 15*time.Second {
		t.Fatalf("TTL = %v, want 15s", ttl)
	}
}

func TestLimiterAllow_RedisDown(t *testing.T) {
	rl, mr := newTestLimiter(t, 5)
	mr.Close()

	if _, err := rl.Allow(context.Background(), "c", time.Now()); err == nil {
		t.Fatal("expected error when redis is unreachable")
	}
}
