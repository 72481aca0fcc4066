package notify

import (
	"context"
	"sync"
	"time"
)

// MemoryDedup is a process-local domain.AlertDedup. Entries expire after
// their ttl and are swept lazily on every call.
type MemoryDedup struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemoryDedup creates an empty MemoryDedup.
func NewMemoryDedup() *MemoryDedup {
	return &MemoryDedup{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// MarkOnce implements domain.AlertDedup.
func (d *MemoryDedup) MarkOnce(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, exp := range d.expires {
		if !now.Before(exp) {
			delete(d.expires, k)
		}
	}
	if _, seen := d.expires[key]; seen {
		return false, nil
	}
	d.expires[key] = now.Add(ttl)
	return true, nil
}

// Len returns the number of live entries.
func (d *MemoryDedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.expires)
}
