// Package limiter throttles PIN attempts per (uid, seed).
package limiter

import (
	"context"
	"time"
)

// Defaults for PIN attempt limiting.
const (
	MaxPINAttempts  = 5
	DefaultWindow   = 15 * time.Minute
	DefaultBlockFor = 5 * time.Minute
)

// Limiter controls PIN attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether a PIN attempt is currently allowed and optional retry-after.
	Allow(ctx context.Context, uid int, seedID int64) (bool, time.Duration, error)
	// Success resets counters after a correct PIN.
	Success(ctx context.Context, uid int, seedID int64) error
	// Failure records a wrong PIN; may place a temporary block.
	Failure(ctx context.Context, uid int, seedID int64) (bool, time.Duration, error)
}
