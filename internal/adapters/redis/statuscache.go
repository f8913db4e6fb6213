package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"sitesweep/internal/domain"
)

// StatusCache stores terminal job status payloads in Redis, cutting the
// poll-status hot path's load on Postgres. Entries expire; Postgres stays
// the source of truth.
type StatusCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func New(addr, prefix string, ttl time.Duration) *StatusCache {
	return &StatusCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *StatusCache) Close() error {
	return c.client.Close()
}

func (c *StatusCache) SetStatus(ctx context.Context, view domain.JobStatusView) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+view.JobID, payload, c.ttl).Err()
}

func (c *StatusCache) GetStatus(ctx context.Context, jobID string) (domain.JobStatusView, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+jobID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.JobStatusView{}, false, nil
		}
		return domain.JobStatusView{}, false, err
	}
	var view domain.JobStatusView
	if err := json.Unmarshal([]byte(val), &view); err != nil {
		return domain.JobStatusView{}, false, err
	}
	return view, true, nil
}
