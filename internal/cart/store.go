package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session's cart and table context in Redis with
// a sliding TTL: the cart lives only as long as the browsing session.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. ttl bounds the browsing session;
// every save refreshes it.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func cartKey(sessionID string) string  { return "cart:items:" + sessionID }
func tableKey(sessionID string) string { return "cart:table:" + sessionID }

// Load returns the session's items; a session with no cart yet is an
// empty collection, not an error.
func (s *RedisStore) Load(ctx context.Context, sessionID string) ([]Item, error) {
	data, err := s.client.Get(ctx, cartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return items, nil
}

// Save replaces the session's collection atomically.
func (s *RedisStore) Save(ctx context.Context, sessionID string, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.client.Set(ctx, cartKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// LoadTableContext returns the session's last-visited table; a session
// that never visited a table returns the zero context.
func (s *RedisStore) LoadTableContext(ctx context.Context, sessionID string) (TableContext, error) {
	data, err := s.client.Get(ctx, tableKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return TableContext{}, nil
	}
	if err != nil {
		return TableContext{}, fmt.Errorf("load table context: %w", err)
	}

	var tc TableContext
	if err := json.Unmarshal(data, &tc); err != nil {
		return TableContext{}, fmt.Errorf("decode table context: %w", err)
	}
	return tc, nil
}

// SaveTableContext records the table the customer is ordering from.
func (s *RedisStore) SaveTableContext(ctx context.Context, sessionID string, tc TableContext) error {
	data, err := json.Marshal(tc)
	if err != nil {
		return fmt.Errorf("encode table context: %w", err)
	}
	if err := s.client.Set(ctx, tableKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save table context: %w", err)
	}
	return nil
}
