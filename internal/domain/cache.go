package domain

import (
	"context"
	"time"
)

// AlertDedup remembers which alerts were already delivered so that a market
// crossing a threshold is reported once, not on every polling cycle.
type AlertDedup interface {
	// MarkOnce records key for ttl. It returns true the first time a key is
	// seen inside its ttl window and false afterwards.
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// CycleLock serialises scan cycles across processes.
type CycleLock interface {
	// Acquire takes the named lock for ttl and returns its release func, or
	// ErrLockHeld when another holder owns it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
