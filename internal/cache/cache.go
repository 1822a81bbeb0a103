package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache is the narrow surface the query layer needs. Satisfied by *Redis and
// by the no-op used when Redis is not configured.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, keys ...string) error
}

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = redis.Nil

type Redis struct {
	client *redis.Client
}

func NewRedis(addr, password string) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})}
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *Redis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *Redis) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

func (r *Redis) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Noop satisfies Cache when no Redis is configured; every read misses.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string) (string, error) { return "", ErrMiss }
func (Noop) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return nil
}
func (Noop) Incr(ctx context.Context, key string) (int64, error) { return 0, nil }
func (Noop) Del(ctx context.Context, keys ...string) error       { return nil }
