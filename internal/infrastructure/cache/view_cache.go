package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ViewCache is a JSON-backed Redis cache for read models of type T.
// A nil *ViewCache always misses and ignores writes.
type ViewCache[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

// NewViewCache binds a cache to a key prefix. A ttl of 0 keeps keys forever.
func NewViewCache[T any](client *redis.Client, prefix string, ttl time.Duration, log *zap.Logger) *ViewCache[T] {
	return &ViewCache[T]{client: client, prefix: prefix, ttl: ttl, log: log.Named("view-cache")}
}

func (c *ViewCache[T]) key(id string) string {
	return c.prefix + ":" + id
}

// Get returns (nil, false) on a miss, a Redis error or undecodable data.
func (c *ViewCache[T]) Get(ctx context.Context, id string) (*T, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache read failed", zap.String("key", c.key(id)), zap.Error(err))
		}
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// Set stores value under id. Failures are logged, never returned.
func (c *ViewCache[T]) Set(ctx context.Context, id string, value *T) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache marshal failed", zap.String("key", c.key(id)), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.key(id), data, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", zap.String("key", c.key(id)), zap.Error(err))
	}
}

func (c *ViewCache[T]) Delete(ctx context.Context, id string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		c.log.Warn("cache delete failed", zap.String("key", c.key(id)), zap.Error(err))
	}
}
