package quota

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCounter adapts a go-redis client to the Counter interface.
type redisCounter struct {
	client *redis.Client
}

// NewRedisCounter wraps an existing Redis client for rate limiting.
func NewRedisCounter(client *redis.Client) Counter {
	return &redisCounter{client: client}
}

func (c *redisCounter) Incr(ctx context.Context, key string) (int64, error) {
	return c.client.Incr(ctx, key).Result()
}

func (c *redisCounter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.client.Expire(ctx, key, ttl).Err()
}
