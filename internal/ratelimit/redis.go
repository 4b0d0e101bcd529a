package ratelimit

import (
	"context"
	"fmt"
	"time"

	"sdp-backend/internal/timeutil"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares buckets between every instance pointed at the same
// Redis. The window starts on the first INCR and ends when the key expires.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    timeutil.Clock
}

func NewRedisStore(client redis.UniversalClient, prefix string, clock timeutil.Clock) *RedisStore {
	if prefix == "" {
		prefix = "sdp:rl:"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		now:    timeutil.OrNow(clock),
	}
}

func (s *RedisStore) Take(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	k := s.prefix + key

	count, err := s.client.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if count == 1 {
		if err := s.client.PExpire(ctx, k, window).Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return newResult(1, limit, s.now().Add(window)), nil
	}

	ttl, err := s.client.PTTL(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if ttl < 0 {
		// The expiry was lost (crash between INCR and PEXPIRE); close the window now.
		if err := s.client.PExpire(ctx, k, window).Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		ttl = window
	}

	return newResult(int(count), limit, s.now().Add(ttl)), nil
}
