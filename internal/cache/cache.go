// Package cache is a Redis-backed read cache with tag invalidation.
// Cached entries register under one or more tags; invalidating a tag
// drops every entry registered under it. Entity mutations invalidate
// their own tag plus any aggregate tag embedding them, giving readers
// read-after-write consistency on the denormalized views (concurrent
// readers inside the invalidation window may still see the previous
// snapshot, which is acceptable).
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Invalidation tags produced by entity mutations.
const (
	TagProducts        = "products"
	TagCatalogs        = "catalogs"
	TagCustomerCatalog = "customer_catalog"
	TagTables          = "tables"
)

// CatalogTag is the per-entity tag for one catalog.
func CatalogTag(id int64) string {
	return "catalogs-" + strconv.FormatInt(id, 10)
}

// TableTag is the per-entity tag for one table.
func TableTag(id int64) string {
	return "table-" + strconv.FormatInt(id, 10)
}

// TagCache stores JSON-encoded values under keys, with each key
// registered in the Redis set of every tag it belongs to.
type TagCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a TagCache with the given default TTL.
func New(client *redis.Client, ttl time.Duration) *TagCache {
	return &TagCache{client: client, ttl: ttl}
}

func entryKey(key string) string { return "cache:entry:" + key }
func tagKey(tag string) string   { return "cache:tag:" + tag }

// Get unmarshals the cached value for key into dest. Returns false on
// a miss.
func (c *TagCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache decode: %w", err)
	}
	return true, nil
}

// Set stores value under key and registers the key under every tag.
// Tag sets outlive the entry TTL slightly; a stale tag member only
// causes a harmless extra DEL on invalidation.
func (c *TagCache) Set(ctx context.Context, key string, value interface{}, tags ...string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, entryKey(key), data, c.ttl)
		for _, tag := range tags {
			pipe.SAdd(ctx, tagKey(tag), key)
			pipe.Expire(ctx, tagKey(tag), c.ttl+time.Minute)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate drops every entry registered under any of the tags.
func (c *TagCache) Invalidate(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		keys, err := c.client.SMembers(ctx, tagKey(tag)).Result()
		if err != nil {
			return fmt.Errorf("cache invalidate %q: %w", tag, err)
		}

		del := make([]string, 0, len(keys)+1)
		for _, key := range keys {
			del = append(del, entryKey(key))
		}
		del = append(del, tagKey(tag))
		if err := c.client.Del(ctx, del...).Err(); err != nil {
			return fmt.Errorf("cache invalidate %q: %w", tag, err)
		}
	}
	return nil
}
