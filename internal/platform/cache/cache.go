// Package cache is the generic master-data cache collaborator: a small
// entity cache keyed by (entity type, id) with TTL expiry and explicit
// invalidation. It carries no domain invariants; services that cache
// catalogue lookups (charge catalogue, drug formulary) go through it and
// must tolerate a cold or unavailable cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when the requested entity is not cached.
var ErrMiss = errors.New("cache: miss")

// EntityCache is implemented by the redis-backed cache and by test fakes.
type EntityCache interface {
	Get(ctx context.Context, entityType, id string, dest interface{}) error
	Set(ctx context.Context, entityType, id string, value interface{}) error
	Invalidate(ctx context.Context, entityType, id string) error
	InvalidateType(ctx context.Context, entityType string) error
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis builds an EntityCache over an existing redis client. Entries
// expire after ttl; writes through services additionally invalidate
// explicitly so stale master data never outlives an update.
func NewRedis(client *redis.Client, ttl time.Duration) EntityCache {
	return &redisCache{client: client, ttl: ttl, prefix: "his"}
}

func (c *redisCache) key(entityType, id string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, entityType, id)
}

func (c *redisCache) Get(ctx context.Context, entityType, id string, dest interface{}) error {
	raw, err := c.client.Get(ctx, c.key(entityType, id)).Bytes()
	if err == redis.Nil {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("cache get %s/%s: %w", entityType, id, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("cache decode %s/%s: %w", entityType, id, err)
	}
	return nil
}

func (c *redisCache) Set(ctx context.Context, entityType, id string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s/%s: %w", entityType, id, err)
	}
	if err := c.client.Set(ctx, c.key(entityType, id), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s/%s: %w", entityType, id, err)
	}
	return nil
}

func (c *redisCache) Invalidate(ctx context.Context, entityType, id string) error {
	if err := c.client.Del(ctx, c.key(entityType, id)).Err(); err != nil {
		return fmt.Errorf("cache invalidate %s/%s: %w", entityType, id, err)
	}
	return nil
}

// InvalidateType drops every cached entry of one entity type. Used after
// bulk master-data imports.
func (c *redisCache) InvalidateType(ctx context.Context, entityType string) error {
	pattern := fmt.Sprintf("%s:%s:*", c.prefix, entityType)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache invalidate type %s: %w", entityType, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan %s: %w", entityType, err)
	}
	return nil
}

// Noop is an EntityCache that caches nothing; used when REDIS_URL is unset.
type Noop struct{}

func (Noop) Get(context.Context, string, string, interface{}) error { return ErrMiss }
func (Noop) Set(context.Context, string, string, interface{}) error { return nil }
func (Noop) Invalidate(context.Context, string, string) error       { return nil }
func (Noop) InvalidateType(context.Context, string) error           { return nil }
