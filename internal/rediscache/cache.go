// Package rediscache shares resolved location names between processes
// through Redis. It implements mapper.Cache.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mesh-intelligence/propsync/pkg/types"
)

// client is the subset of redis.Cmdable the cache uses.
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Cache stores string values under a key prefix with a fixed TTL.
type Cache struct {
	client client
	closer func() error
	prefix string
	ttl    time.Duration
}

// Open connects to the Redis server named in cfg and verifies it with PING.
func Open(ctx context.Context, cfg types.CacheConfig) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
	}
	c := New(rdb, cfg.TTL)
	c.closer = rdb.Close
	return c, nil
}

// New wraps an existing client. A ttl of zero or less uses
// types.DefaultCacheTTL.
func New(rdb client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = types.DefaultCacheTTL
	}
	return &Cache{client: rdb, prefix: "propsync:", ttl: ttl}
}

// Get returns the value stored under key. A missing key is not an error.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key with the cache TTL.
func (c *Cache) Set(ctx context.Context, key, value string) error {
	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close closes the connection opened by Open.
func (c *Cache) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}
