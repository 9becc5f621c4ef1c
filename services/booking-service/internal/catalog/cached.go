package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
	"github.com/redis/go-redis/v9"
)

// KV is the slice of a key-value cache the catalog needs. Get returns ok=false on a miss.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func storeKey(id string) string { return "catalog:store:" + id }
func serviceKey(id string) string { return "catalog:service:" + id }
func storeServicesKey(id string) string { return "catalog:services:" + id }

// Cached is a read-through cache in front of another Reader. Cache failures are
// logged and fall back to the inner reader; misses in the inner reader are not cached.
type Cached struct {
	inner  Reader
	kv     KV
	ttl    time.Duration
	logger *slog.Logger
}

func NewCached(inner Reader, kv KV, ttl time.Duration, logger *slog.Logger) *Cached {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{inner: inner, kv: kv, ttl: ttl, logger: logger}
}

func (c *Cached) GetStore(ctx context.Context, storeID string) (model.Store, error) {
	return readThrough(ctx, c, storeKey(storeID), func() (model.Store, error) {
		return c.inner.GetStore(ctx, storeID)
	})
}

func (c *Cached) GetService(ctx context.Context, serviceID string) (model.Service, error) {
	return readThrough(ctx, c, serviceKey(serviceID), func() (model.Service, error) {
		return c.inner.GetService(ctx, serviceID)
	})
}

func (c *Cached) ListServices(ctx context.Context, storeID string) ([]model.Service, error) {
	return readThrough(ctx, c, storeServicesKey(storeID), func() ([]model.Service, error) {
		return c.inner.ListServices(ctx, storeID)
	})
}

// StoreOwnedBy is not cached; ownership changes must be visible immediately.
func (c *Cached) StoreOwnedBy(ctx context.Context, userID string) (model.Store, error) {
	return c.inner.StoreOwnedBy(ctx, userID)
}

// Invalidate drops the cached store, its service list and, when serviceID is set, that service.
func (c *Cached) Invalidate(ctx context.Context, storeID, serviceID string) error {
	keys := []string{storeKey(storeID), storeServicesKey(storeID)}
	if serviceID != "" {
		keys = append(keys, serviceKey(serviceID))
	}
	return c.kv.Del(ctx, keys...)
}

func readThrough[T any](ctx context.Context, c *Cached, key string, load func() (T, error)) (T, error) {
	if b, ok, err := c.kv.Get(ctx, key); err != nil {
		c.logger.Warn("catalog cache get failed", "key", key, "err", err)
	} else if ok {
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			return v, nil
		}
		c.logger.Warn("catalog cache entry corrupt", "key", key)
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if b, err := json.Marshal(v); err == nil {
		if err := c.kv.Set(ctx, key, b, c.ttl); err != nil {
			c.logger.Warn("catalog cache set failed", "key", key, "err", err)
		}
	}
	return v, nil
}
