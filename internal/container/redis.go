package container

import (
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
)

// RedisConnection owns the shared Redis client.
type RedisConnection struct {
	Client *redis.Client
}

// Shutdown closes the client.
func (r *RedisConnection) Shutdown() error {
	return r.Client.Close()
}

// RedisPackage provides a lazily connected Redis client. It is only invoked
// when the cache or the event transport needs it.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*RedisConnection, error) {
		opts := do.MustInvoke[*Options](i)

		client := redis.NewClient(&redis.Options{
			Addr:         opts.RedisAddr,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		})

		return &RedisConnection{Client: client}, nil
	})
}
