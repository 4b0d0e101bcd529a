package cache

import (
	"context"
	"time"

	"sdp-backend/internal/config"

	"github.com/redis/go-redis/v9"
)

// Connect opens the Redis client used for shared rate-limit buckets. On a
// failed ping the client is closed and the error returned so callers can fall
// back to in-process buckets.
func Connect(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
