package store

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/serroba/shortlink/internal/shortener"
)

// LocalCache is an in-process shortener.Cache backed by go-cache.
// It is not shared between replicas.
type LocalCache struct {
	entries *cache.Cache
}

// NewLocalCache creates an in-process cache. A zero ttl means entries never expire.
func NewLocalCache(ttl time.Duration) *LocalCache {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)

	if ttl > 0 {
		expiration = ttl
		cleanup = 2 * ttl
	}

	return &LocalCache{entries: cache.New(expiration, cleanup)}
}

func (l *LocalCache) Get(_ context.Context, code shortener.Code) (string, error) {
	v, ok := l.entries.Get(string(code))
	if !ok {
		return "", shortener.ErrCacheMiss
	}

	url, _ := v.(string)

	return url, nil
}

func (l *LocalCache) Set(_ context.Context, code shortener.Code, url string) error {
	l.entries.SetDefault(string(code), url)

	return nil
}

// Delete evicts code.
func (l *LocalCache) Delete(code shortener.Code) {
	l.entries.Delete(string(code))
}

// Len returns the number of cached entries, including expired ones not yet cleaned up.
func (l *LocalCache) Len() int {
	return l.entries.ItemCount()
}

// NoopCache never holds anything; every Get is a miss.
type NoopCache struct{}

func (NoopCache) Get(context.Context, shortener.Code) (string, error) {
	return "", shortener.ErrCacheMiss
}

func (NoopCache) Set(context.Context, shortener.Code, string) error {
	return nil
}

// Compile-time checks.
var (
	_ shortener.Cache = (*LocalCache)(nil)
	_ shortener.Cache = NoopCache{}
)
