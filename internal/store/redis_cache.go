package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/shortener"
)

// RedisCache is a Redis implementation of shortener.Cache.
// Keys are "url:<code>" plain strings holding the original URL.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed cache. A zero ttl means entries never expire.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: "url:",
		ttl:    ttl,
	}
}

func (r *RedisCache) Get(ctx context.Context, code shortener.Code) (string, error) {
	url, err := r.client.Get(ctx, r.prefix+string(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", shortener.ErrCacheMiss
		}

		return "", err
	}

	return url, nil
}

func (r *RedisCache) Set(ctx context.Context, code shortener.Code, url string) error {
	return r.client.Set(ctx, r.prefix+string(code), url, r.ttl).Err()
}

// Shutdown is a no-op for RedisCache (client managed externally).
func (r *RedisCache) Shutdown() error {
	return nil
}

// Compile-time check.
var _ shortener.Cache = (*RedisCache)(nil)
