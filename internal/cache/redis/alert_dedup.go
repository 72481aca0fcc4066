package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/deadlinewatch/internal/domain"
)

// AlertDedup implements domain.AlertDedup with SET NX and a TTL, so an alert
// is delivered once even when several watchers share the instance.
type AlertDedup struct {
	c *Client
}

// NewAlertDedup creates an AlertDedup backed by c.
func NewAlertDedup(c *Client) *AlertDedup {
	return &AlertDedup{c: c}
}

func (d *AlertDedup) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.c.rdb.SetNX(ctx, d.c.key("alert", key), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: mark alert %s: %w", key, err)
	}
	return ok, nil
}

var _ domain.AlertDedup = (*AlertDedup)(nil)
