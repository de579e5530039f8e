package auth

import (
	"context"
	"sync"
	"time"
)

var (
	loginWindow      = 15 * time.Minute
	lockDuration     = 10 * time.Minute
	maxLoginAttempts = 5
)

// Limiter はログイン失敗回数をキー（クライアントIP）ごとに数え、上限を超えたキーをロックします。
type Limiter interface {
	// Check はロック中であれば残り時間を返します。ロックされていなければ 0 です。
	Check(ctx context.Context, key string) (time.Duration, error)
	// RecordFailure は失敗を記録し、ロックまでの残り試行回数を返します。
	RecordFailure(ctx context.Context, key string) (int, error)
	// Reset は失敗回数とロックを解除します。
	Reset(ctx context.Context, key string) error
}

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// stale はロックが解け、集計ウィンドウも過ぎているかを返します。
func (s *attemptState) stale(now time.Time) bool {
	return !now.Before(s.lockedUntil) && now.Sub(s.firstAttempt) > loginWindow
}

// MemoryLimiter はプロセス内のマップで試行回数を管理する Limiter です。
type MemoryLimiter struct {
	lock      sync.Mutex
	attempts  map[string]*attemptState
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryLimiter は MemoryLimiter を作成します。
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		attempts: make(map[string]*attemptState),
		now:      time.Now,
	}
}

// Check implements Limiter.
func (l *MemoryLimiter) Check(_ context.Context, key string) (time.Duration, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	state, ok := l.attempts[key]
	if !ok {
		return 0, nil
	}
	now := l.now()
	if state.stale(now) {
		delete(l.attempts, key)
		return 0, nil
	}
	if !now.Before(state.lockedUntil) {
		return 0, nil
	}
	return state.lockedUntil.Sub(now), nil
}

// RecordFailure implements Limiter.
func (l *MemoryLimiter) RecordFailure(_ context.Context, key string) (int, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	now := l.now()
	l.sweep(now)

	state, ok := l.attempts[key]
	if ok && now.Before(state.lockedUntil) {
		return 0, nil
	}
	if !ok || now.Sub(state.firstAttempt) > loginWindow {
		state = &attemptState{firstAttempt: now}
		l.attempts[key] = state
	}

	state.count++
	if state.count >= maxLoginAttempts {
		// ロック解除後は失敗回数を数え直す
		l.attempts[key] = &attemptState{lockedUntil: now.Add(lockDuration)}
		return 0, nil
	}
	return maxLoginAttempts - state.count, nil
}

// sweep は集計ウィンドウごとに一度、不要になったエントリを削除します。
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < loginWindow {
		return
	}
	l.lastSweep = now
	for key, state := range l.attempts {
		if state.stale(now) {
			delete(l.attempts, key)
		}
	}
}

// Reset implements Limiter.
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	delete(l.attempts, key)
	return nil
}
