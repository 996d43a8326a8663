package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache backed by a Redis instance.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a cache from a redis connection URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opt)}, nil
}

// NewRedisCacheFromClient wraps an existing client. Used by tests.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Remember implements Cache.
func (c *RedisCache) Remember(ctx context.Context, key string, ttl time.Duration, producer Producer) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == nil {
		return val, nil
	}
	if !errors.Is(err, redis.Nil) {
		// Redis being down degrades to producer-only; callers decide how
		// to handle producer failures.
		return producer(ctx)
	}

	val, err = producer(ctx)
	if err != nil {
		return "", err
	}

	_ = c.client.Set(ctx, key, val, ttl).Err()
	return val, nil
}

// Forget implements Cache.
func (c *RedisCache) Forget(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
