package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// JSONCache stores JSON encoded values under a key prefix with a fixed TTL.
type JSONCache struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

func NewJSONCache(client *redis.Client, prefix string, ttl time.Duration) *JSONCache {
	return &JSONCache{Client: client, Prefix: prefix, TTL: ttl}
}

// Get decodes the cached value into dst. A miss returns false and no error.
func (c *JSONCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.Client == nil {
		return false, fmt.Errorf("redis client not initialized")
	}

	raw, err := c.Client.Get(ctx, c.Prefix+key).Bytes()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to get %s from Redis: %w", key, err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached %s: %w", key, err)
	}
	return true, nil
}

func (c *JSONCache) Set(ctx context.Context, key string, value any) error {
	if c.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	if err := c.Client.Set(ctx, c.Prefix+key, raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store %s in Redis: %w", key, err)
	}
	return nil
}
