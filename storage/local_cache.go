package storage

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const defaultLocalCapacity = 100_000

// LocalCache is an in-process cache of serialized items used when no Redis
// is configured. Hits never extend an entry's lifetime.
type LocalCache struct {
	items *ttlcache.Cache[string, []byte]
}

func NewLocalCache(capacity uint64) *LocalCache {
	if capacity == 0 {
		capacity = defaultLocalCapacity
	}
	return &LocalCache{
		items: ttlcache.New(
			ttlcache.WithDisableTouchOnHit[string, []byte](),
			ttlcache.WithCapacity[string, []byte](capacity),
		),
	}
}

// Start runs the expiry loop until Stop is called.
func (c *LocalCache) Start() { c.items.Start() }

func (c *LocalCache) Stop() { c.items.Stop() }

func (c *LocalCache) Fetch(_ context.Context, key string, ttl time.Duration, compute func() ([]byte, error)) ([]byte, bool, error) {
	if item := c.items.Get(key); item != nil {
		CacheHits.WithLabelValues("local").Inc()
		return item.Value(), true, nil
	}
	CacheMisses.WithLabelValues("local").Inc()
	data, err := compute()
	if err != nil {
		return nil, false, err
	}
	if ttl > 0 {
		c.items.Set(key, data, ttl)
	}
	return data, false, nil
}
