package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "pos:catalog:"

// Cache stores catalog reads in Redis as JSON.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func itemKey(id string) string    { return cachePrefix + "item:" + id }
func optionsKey(id string) string { return cachePrefix + "options:" + id }
func listKey() string             { return cachePrefix + "items" }

// GetJSON unmarshals a cached payload into dst and reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate drops cached entries for the given menu item and the menu list.
func (c *Cache) Invalidate(ctx context.Context, menuItemID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	keys := []string{listKey()}
	if menuItemID != "" {
		keys = append(keys, itemKey(menuItemID), optionsKey(menuItemID))
	}
	return c.client.Del(ctx, keys...).Err()
}
