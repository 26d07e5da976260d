// Package ratelimit throttles credential and verification attempts with a
// fixed window counter kept in Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps failures of the backing store.
var ErrUnavailable = errors.New("rate limiter unavailable")

// Limiter decides whether another attempt for key is allowed. A rejected
// attempt returns common.ErrRateLimited.
type Limiter interface {
	Allow(ctx context.Context, key string) error
}

// RedisLimiter allows at most limit attempts per key in each window. The
// window starts at the first attempt.
type RedisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: int64(limit), window: window, prefix: "gk:rl:"}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) error {
	k := l.prefix + key

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.TTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// counters never outlive a window, even when an earlier EXPIRE failed
	if ttl.Val() < 0 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	if incr.Val() > l.limit {
		return common.ErrRateLimited
	}
	return nil
}

// Noop allows everything. It is used when no Redis address is configured.
type Noop struct{}

func (Noop) Allow(context.Context, string) error { return nil }
