package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sokoni-labs/commerce_layer/internal/app/domain/catalog"
)

// ProductCache is a Redis-backed read-through cache for product fetches.
// Entries are JSON encoded and expire after the configured TTL, so a stale
// stock figure is bounded by it. Failures fall through to the store.
type ProductCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewProductCache wraps an existing Redis client. The prefix namespaces keys
// alongside the idempotency store.
func NewProductCache(client redis.Cmdable, prefix string, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ProductCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *ProductCache) key(id string) string {
	if c.prefix == "" {
		return "product:" + id
	}
	return c.prefix + ":product:" + id
}

// GetProduct returns the cached product and whether it was present.
func (c *ProductCache) GetProduct(ctx context.Context, id string) (catalog.Product, bool) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		return catalog.Product{}, false
	}
	var p catalog.Product
	if err := json.Unmarshal(data, &p); err != nil {
		c.client.Del(ctx, c.key(id))
		return catalog.Product{}, false
	}
	return p, true
}

// SetProduct stores the product for the cache TTL.
func (c *ProductCache) SetProduct(ctx context.Context, p catalog.Product) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(p.ID), data, c.ttl)
}

// InvalidateProduct drops the cached entries for the given product IDs.
func (c *ProductCache) InvalidateProduct(ctx context.Context, ids ...string) {
	for _, id := range ids {
		c.client.Del(ctx, c.key(id))
	}
}
