package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryLimiterLocksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter()
	l.now = func() time.Time { return now }

	for i := 1; i < maxLoginAttempts; i++ {
		remaining, err := l.RecordFailure(ctx, "203.0.113.1")
		if err != nil {
			t.Fatalf("RecordFailure returned error: %v", err)
		}
		if remaining != maxLoginAttempts-i {
			t.Fatalf("attempt %d: remaining = %d", i, remaining)
		}
	}
	if wait, _ := l.Check(ctx, "203.0.113.1"); wait != 0 {
		t.Fatalf("should not be locked yet, wait=%s", wait)
	}

	remaining, _ := l.RecordFailure(ctx, "203.0.113.1")
	if remaining != 0 {
		t.Fatalf("expected 0 remaining, got %d", remaining)
	}
	wait, _ := l.Check(ctx, "203.0.113.1")
	if wait != lockDuration {
		t.Fatalf("wait = %s, want %s", wait, lockDuration)
	}
	if wait, _ := l.Check(ctx, "198.51.100.7"); wait != 0 {
		t.Fatalf("other keys must not be locked, wait=%s", wait)
	}

	now = now.Add(lockDuration)
	if wait, _ := l.Check(ctx, "203.0.113.1"); wait != 0 {
		t.Fatalf("lock should expire, wait=%s", wait)
	}
}

func TestMemoryLimiterWindowResets(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter()
	l.now = func() time.Time { return now }

	for i := 0; i < maxLoginAttempts-1; i++ {
		l.RecordFailure(ctx, "ip")
	}
	now = now.Add(loginWindow + time.Second)

	remaining, _ := l.RecordFailure(ctx, "ip")
	if remaining != maxLoginAttempts-1 {
		t.Fatalf("window should restart, remaining=%d", remaining)
	}
}

func TestMemoryLimiterReset(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter()
	for i := 0; i < maxLoginAttempts; i++ {
		l.RecordFailure(ctx, "ip")
	}
	if err := l.Reset(ctx, "ip"); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	if wait, _ := l.Check(ctx, "ip"); wait != 0 {
		t.Fatalf("expected lock to be cleared, wait=%s", wait)
	}
}

func TestMemoryLimiterFreshAttemptsAfterLockExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter()
	l.now = func() time.Time { return now }

	for i := 0; i < maxLoginAttempts; i++ {
		l.RecordFailure(ctx, "ip")
	}
	now = now.Add(lockDuration + time.Minute)
	if wait, _ := l.Check(ctx, "ip"); wait != 0 {
		t.Fatalf("lock should have expired, wait=%s", wait)
	}

	remaining, _ := l.RecordFailure(ctx, "ip")
	if remaining != maxLoginAttempts-1 {
		t.Fatalf("expected fresh attempts after lock expiry, remaining=%d", remaining)
	}
	if wait, _ := l.Check(ctx, "ip"); wait != 0 {
		t.Fatalf("one failure after expiry must not lock again, wait=%s", wait)
	}
}

func TestMemoryLimiterDropsStaleEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter()
	l.now = func() time.Time { return now }

	l.RecordFailure(ctx, "203.0.113.1")
	for i := 0; i < maxLoginAttempts; i++ {
		l.RecordFailure(ctx, "203.0.113.2")
	}
	if len(l.attempts) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(l.attempts))
	}

	now = now.Add(loginWindow + time.Second)
	l.RecordFailure(ctx, "198.51.100.7")

	if _, ok := l.attempts["203.0.113.1"]; ok {
		t.Fatal("expired window should be removed")
	}
	if _, ok := l.attempts["203.0.113.2"]; ok {
		t.Fatal("expired lock should be removed")
	}
	if len(l.attempts) != 1 {
		t.Fatalf("expected only the new entry, got %d", len(l.attempts))
	}

	now = now.Add(loginWindow + time.Second)
	if wait, _ := l.Check(ctx, "198.51.100.7"); wait != 0 {
		t.Fatalf("unexpected wait: %s", wait)
	}
	if len(l.attempts) != 0 {
		t.Fatalf("Check should drop the stale entry, got %d entries", len(l.attempts))
	}
}

func newTestRedisLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewRedisLimiter(rdb)
	t.Cleanup(func() { l.Close() })
	return l, mr
}

func TestRedisLimiterLocksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestRedisLimiter(t)

	for i := 1; i <= maxLoginAttempts; i++ {
		remaining, err := l.RecordFailure(ctx, "203.0.113.1")
		if err != nil {
			t.Fatalf("RecordFailure returned error: %v", err)
		}
		if remaining != maxLoginAttempts-i {
			t.Fatalf("attempt %d: remaining = %d", i, remaining)
		}
	}

	wait, err := l.Check(ctx, "203.0.113.1")
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if wait <= 0 || wait > lockDuration {
		t.Fatalf("unexpected wait: %s", wait)
	}
	if wait, _ := l.Check(ctx, "198.51.100.7"); wait != 0 {
		t.Fatalf("other keys must not be locked, wait=%s", wait)
	}

	if err := l.Reset(ctx, "203.0.113.1"); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	if wait, _ := l.Check(ctx, "203.0.113.1"); wait != 0 {
		t.Fatalf("expected no lock after reset, wait=%s", wait)
	}
}

func TestRedisLimiterFreshAttemptsAfterLockExpiry(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestRedisLimiter(t)

	for i := 0; i < maxLoginAttempts; i++ {
		if _, err := l.RecordFailure(ctx, "ip"); err != nil {
			t.Fatalf("RecordFailure returned error: %v", err)
		}
	}
	mr.FastForward(lockDuration + time.Minute)
	if wait, _ := l.Check(ctx, "ip"); wait != 0 {
		t.Fatalf("lock should have expired, wait=%s", wait)
	}

	remaining, err := l.RecordFailure(ctx, "ip")
	if err != nil {
		t.Fatalf("RecordFailure returned error: %v", err)
	}
	if remaining != maxLoginAttempts-1 {
		t.Fatalf("expected fresh attempts after lock expiry, remaining=%d", remaining)
	}
	if wait, _ := l.Check(ctx, "ip"); wait != 0 {
		t.Fatalf("one failure after expiry must not lock again, wait=%s", wait)
	}
}

func TestRedisLimiterWindowExpires(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestRedisLimiter(t)

	for i := 0; i < maxLoginAttempts-1; i++ {
		l.RecordFailure(ctx, "ip")
	}
	if ttl := mr.TTL(failKeyPrefix + "ip"); ttl != loginWindow {
		t.Fatalf("failure counter ttl = %s, want %s", ttl, loginWindow)
	}
	mr.FastForward(loginWindow + time.Second)

	remaining, _ := l.RecordFailure(ctx, "ip")
	if remaining != maxLoginAttempts-1 {
		t.Fatalf("window should restart, remaining=%d", remaining)
	}
}
