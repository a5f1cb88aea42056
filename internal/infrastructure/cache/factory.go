package cache

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Backend names accepted by the factory.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// NewTraceCache creates the ephemeral trace cache for the configured
// backend. The in-memory backend is the default; the Redis backend exists
// for deployments running multiple instances against the same store, where
// each process keeping its own 6-hour copy would multiply remote load.
func NewTraceCache(backend string, ttl time.Duration, redisCfg RedisConfig, logger *zap.Logger) (TraceCache, error) {
	switch backend {
	case BackendRedis:
		store, err := NewRedisTraceCache(redisCfg, ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis trace cache: %w", err)
		}
		logger.Info("using Redis trace cache", zap.Duration("ttl", ttl))
		return store, nil
	case BackendMemory, "":
		logger.Info("using in-memory trace cache", zap.Duration("ttl", ttl))
		return NewInMemoryTraceCache(ttl), nil
	default:
		return nil, fmt.Errorf("unknown trace cache backend %q", backend)
	}
}
