package limiter

import (
	"context"
	"sync"
	"time"
)

type attemptKey struct {
	uid    int
	seedID int64
}

type attempts struct {
	fails        int
	firstFailAt  time.Time
	blockedUntil time.Time
}

// Memory is an in-process limiter with the same semantics as PG.
type Memory struct {
	window   time.Duration
	maxFails int
	blockFor time.Duration
	now      func() time.Time

	mu    sync.Mutex
	state map[attemptKey]*attempts
}

var _ Limiter = (*Memory)(nil)

// NewMemory constructs an in-process limiter.
func NewMemory(window time.Duration, maxFails int, blockFor time.Duration) *Memory {
	return &Memory{
		window:   window,
		maxFails: maxFails,
		blockFor: blockFor,
		now:      time.Now,
		state:    make(map[attemptKey]*attempts),
	}
}

// Allow implements Limiter.
func (l *Memory) Allow(_ context.Context, uid int, seedID int64) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.state[attemptKey{uid, seedID}]
	if !ok {
		return true, 0, nil
	}
	if now := l.now(); a.blockedUntil.After(now) {
		return false, a.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success implements Limiter.
func (l *Memory) Success(_ context.Context, uid int, seedID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.state, attemptKey{uid, seedID})
	return nil
}

// Failure implements Limiter.
func (l *Memory) Failure(_ context.Context, uid int, seedID int64) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	k := attemptKey{uid, seedID}
	a, ok := l.state[k]
	if !ok || now.Sub(a.firstFailAt) > l.window {
		a = &attempts{firstFailAt: now}
		l.state[k] = a
	}
	a.fails++
	if a.fails >= l.maxFails {
		a.blockedUntil = now.Add(l.blockFor)
		a.fails = 0
		a.firstFailAt = now
		return true, l.blockFor, nil
	}
	return false, 0, nil
}
