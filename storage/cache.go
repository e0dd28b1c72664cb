package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisCache is a read-through cache of serialized items. Entries expire
// after the TTL given at insertion; reads do not extend it.
type RedisCache struct {
	redis *redis.Client
	log   *log.Logger
}

// NewRedisCache creates a cache on top of client. A nil logger uses the
// standard logrus logger.
func NewRedisCache(client *redis.Client, logger *log.Logger) *RedisCache {
	if client == nil {
		panic("storage.NewRedisCache: redis client is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &RedisCache{redis: client, log: logger}
}

// Fetch returns the cached value under key or computes and stores it. Redis
// failures fall back to compute and are never returned.
func (c *RedisCache) Fetch(ctx context.Context, key string, ttl time.Duration, compute func() ([]byte, error)) ([]byte, bool, error) {
	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		CacheHits.WithLabelValues("redis").Inc()
		return data, true, nil
	case errors.Is(err, redis.Nil):
	default:
		CacheErrors.WithLabelValues("get").Inc()
		c.log.WithError(err).WithField("key", key).Warn("cache get failed")
	}
	CacheMisses.WithLabelValues("redis").Inc()

	data, err = compute()
	if err != nil {
		return nil, false, err
	}
	if ttl > 0 {
		if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
			CacheErrors.WithLabelValues("set").Inc()
			c.log.WithError(err).WithField("key", key).Warn("cache set failed")
		}
	}
	return data, false, nil
}
