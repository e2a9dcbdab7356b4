package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/snsphoto/gallery-api/internal/gallery"
	"github.com/snsphoto/gallery-api/pkg/logger"
)

// RedisCache shares the snapshot cache between replicas. Each category keeps
// two copies: "fresh:<key>" expiring at the TTL, and "stale:<key>" with a
// long expiry that backs the stale-on-error read.
type RedisCache struct {
	client   *redis.Client
	prefix   string
	ttl      time.Duration
	staleTTL time.Duration
}

// NewRedisCache creates a Redis-backed cache. Prefix may be empty.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "gallery:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl, staleTTL: 24 * time.Hour}
}

func (c *RedisCache) freshKey(key string) string { return c.prefix + "fresh:" + key }
func (c *RedisCache) staleKey(key string) string { return c.prefix + "stale:" + key }

func (c *RedisCache) get(ctx context.Context, redisKey string) (*gallery.CollectionDocument, bool) {
	b, err := c.client.Get(ctx, redisKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warnf("redis cache get %s: %v", redisKey, err)
		}
		return nil, false
	}
	var doc gallery.CollectionDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		logger.Warnf("redis cache decode %s: %v", redisKey, err)
		return nil, false
	}
	return &doc, true
}

func (c *RedisCache) Get(ctx context.Context, key string) (*gallery.CollectionDocument, bool) {
	return c.get(ctx, c.freshKey(key))
}

func (c *RedisCache) GetStale(ctx context.Context, key string) (*gallery.CollectionDocument, bool) {
	if doc, ok := c.get(ctx, c.freshKey(key)); ok {
		return doc, true
	}
	return c.get(ctx, c.staleKey(key))
}

func (c *RedisCache) Put(ctx context.Context, key string, doc *gallery.CollectionDocument) {
	b, err := json.Marshal(doc)
	if err != nil {
		logger.Warnf("redis cache encode %s: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, c.freshKey(key), b, c.ttl).Err(); err != nil {
		logger.Warnf("redis cache set %s: %v", key, err)
	}
	if err := c.client.Set(ctx, c.staleKey(key), b, c.staleTTL).Err(); err != nil {
		logger.Warnf("redis cache set stale %s: %v", key, err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, key string) {
	// the stale copy survives invalidation on purpose: a write refreshes it
	// via Put, and a reader must never prefer it over a fresh fetch
	if err := c.client.Del(ctx, c.freshKey(key)).Err(); err != nil {
		logger.Warnf("redis cache del %s: %v", key, err)
	}
}

func (c *RedisCache) InvalidateAll(ctx context.Context) {
	keys := make([]string, 0, len(gallery.Categories))
	for _, cat := range gallery.Categories {
		keys = append(keys, c.freshKey(cat))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warnf("redis cache flush: %v", err)
	}
}
