// Package cache puts a Redis read-through cache in front of the stream and
// device metadata lookups. Metadata changes rarely and is read on every
// trigger.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"alert-service/internal/alerts"
	"alert-service/internal/logging"
	"alert-service/internal/models"
)

// ErrCacheMiss means the key is not cached.
var ErrCacheMiss = errors.New("cache miss")

// KVStore is the subset of Redis the cache uses.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// RedisKVStore is a KVStore backed by go-redis.
type RedisKVStore struct {
	client *redis.Client
}

func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// MetadataCache wraps a MetadataLookup. Cache errors are logged and fall
// through to the wrapped lookup; lookup errors are never cached.
type MetadataCache struct {
	next   alerts.MetadataLookup
	kv     KVStore
	ttl    time.Duration
	logger *logging.Logger
}

// NewMetadataCache constructs a MetadataCache.
func NewMetadataCache(next alerts.MetadataLookup, kv KVStore, ttl time.Duration, logger *logging.Logger) *MetadataCache {
	return &MetadataCache{next: next, kv: kv, ttl: ttl, logger: logger}
}

func (c *MetadataCache) GetStreamInfo(ctx context.Context, kpiID string) (models.StreamInfo, error) {
	return readThrough(ctx, c, "alerts:kpi:"+kpiID, func() (models.StreamInfo, error) {
		return c.next.GetStreamInfo(ctx, kpiID)
	})
}

func (c *MetadataCache) GetContextDevice(ctx context.Context, contextID string) (string, error) {
	return readThrough(ctx, c, "alerts:context-device:"+contextID, func() (string, error) {
		return c.next.GetContextDevice(ctx, contextID)
	})
}

func (c *MetadataCache) GetDevice(ctx context.Context, deviceID string) (models.Device, error) {
	return readThrough(ctx, c, "alerts:device:"+deviceID, func() (models.Device, error) {
		return c.next.GetDevice(ctx, deviceID)
	})
}

func readThrough[T any](ctx context.Context, c *MetadataCache, key string, load func() (T, error)) (T, error) {
	raw, err := c.kv.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		if jerr := json.Unmarshal([]byte(raw), &v); jerr == nil {
			return v, nil
		}
		c.logger.Warnf("Discarding unreadable cache entry %s", key)
	case !errors.Is(err, ErrCacheMiss):
		c.logger.Warnf("Cache read %s failed: %v", key, err)
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	if b, jerr := json.Marshal(v); jerr == nil {
		if serr := c.kv.Set(ctx, key, string(b), c.ttl); serr != nil {
			c.logger.Warnf("Cache write %s failed: %v", key, serr)
		}
	}
	return v, nil
}
