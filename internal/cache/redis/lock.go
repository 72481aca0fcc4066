package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/deadlinewatch/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockLua deletes the lock only while it still holds the caller's token.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// CycleLock implements domain.CycleLock. Only one watcher sharing the Redis
// instance runs a scan cycle at a time.
type CycleLock struct {
	c        *Client
	unlockSc *redis.Script
}

// NewCycleLock creates a CycleLock backed by c.
func NewCycleLock(c *Client) *CycleLock {
	return &CycleLock{
		c:        c,
		unlockSc: redis.NewScript(unlockLua),
	}
}

// Acquire takes the lock named key for ttl. The returned release func is safe
// to call more than once. domain.ErrLockHeld means another holder has it.
func (l *CycleLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	lk := l.c.key("lock", key)

	ok, err := l.c.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true

		// Detached so release still runs after the cycle context is cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.unlockSc.Run(releaseCtx, l.c.rdb, []string{lk}, token).Err()
	}
	return release, nil
}

var _ domain.CycleLock = (*CycleLock)(nil)
