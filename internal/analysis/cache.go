package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache abstracts the Redis operations used by the service to make testing easier.
type Cache interface {
	Put(ctx context.Context, record *Record, expiration time.Duration) error
	Get(ctx context.Context, requestID string) (*Record, error)
}

// RedisCache stores analysis records as JSON under analysis:<requestId>.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache constructs a new Redis-backed cache adapter.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Put writes a record, replacing any previous state for the same request.
func (c *RedisCache) Put(ctx context.Context, record *Record, expiration time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(record.RequestID), payload, expiration).Err()
}

// Get reads a record. A miss is reported as redis.Nil.
func (c *RedisCache) Get(ctx context.Context, requestID string) (*Record, error) {
	payload, err := c.client.Get(ctx, cacheKey(requestID)).Bytes()
	if err != nil {
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("decode cached analysis: %w", err)
	}
	return &record, nil
}

func cacheKey(requestID string) string {
	return fmt.Sprintf("analysis:%s", requestID)
}
