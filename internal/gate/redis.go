package gate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a minimum-interval gate shared across processes through Redis.
type Redis struct {
	redis    redis.UniversalClient
	prefix   string
	interval time.Duration
}

// NewRedis creates a shared gate. Keys are prefix + identity.
func NewRedis(client redis.UniversalClient, prefix string, interval time.Duration) *Redis {
	return &Redis{
		redis:    client,
		prefix:   prefix,
		interval: interval,
	}
}

// Acquire claims the gate for identity. It returns false when another holder
// claimed it within the interval. The value stored is the claim time in Unix
// milliseconds.
func (r *Redis) Acquire(ctx context.Context, identity string, now time.Time) (bool, error) {
	ok, err := r.redis.SetNX(ctx, r.key(identity), strconv.FormatInt(now.UnixMilli(), 10), r.interval).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ok, nil
}

func (r *Redis) key(identity string) string {
	return r.prefix + identity
}
