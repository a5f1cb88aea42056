package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erp/doclink/internal/domain/lineage"
)

// RedisTraceCache implements TraceCache on Redis, for deployments running
// more than one instance of the service against the same remote store. It
// carries the same TTL semantics as the in-memory tier; Redis expiry takes
// the place of lazy eviction.
type RedisTraceCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisTraceCache creates a Redis-backed trace cache and verifies the
// connection.
func NewRedisTraceCache(cfg RedisConfig, ttl time.Duration) (*RedisTraceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTraceTTL
	}
	return &RedisTraceCache{
		client:    client,
		keyPrefix: "lineage:trace:",
		ttl:       ttl,
	}, nil
}

// Get returns the cached trace for a key, if present.
func (c *RedisTraceCache) Get(ctx context.Context, key string) (*lineage.TraceResult, bool, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read trace from Redis: %w", err)
	}

	var result lineage.TraceResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached trace: %w", err)
	}
	return &result, true, nil
}

// Put stores a trace under a key with the cache TTL.
func (c *RedisTraceCache) Put(ctx context.Context, key string, result *lineage.TraceResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write trace to Redis: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (c *RedisTraceCache) Close() error {
	return c.client.Close()
}

var _ TraceCache = (*RedisTraceCache)(nil)
