// Package cache provides the read-through cache used by services, with a process-local backend and a Redis
// backend for multi-instance deployments.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Cache stores JSON-encoded values under string keys with a TTL.
type Cache interface {
	// Get decodes the cached value for key into dst. It reports false on a miss.
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Flush removes every entry owned by this cache.
	Flush(ctx context.Context) error
}

// New returns the cache for the configured backend. A Redis backend requires rdb.
func New(backend string, rdb *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) (Cache, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemory(ttl), nil
	case BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("cache backend %q requires a redis client", backend)
		}
		return NewRedis(rdb, prefix, logger), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
