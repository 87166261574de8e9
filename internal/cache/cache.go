package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/config"
	"github.com/juanpasaflipz/ai-prompt-marketplace/internal/metrics"
)

const keyPrefix = "analytics"

// Cache memoizes analytics results in Redis as JSON. A Cache without a
// client passes every call through to the loader.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewClient builds a Redis client from config, or returns nil when Redis is
// not configured.
func NewClient(cfg config.Redis) *redis.Client {
	if cfg.Host == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// New creates a cache with a default TTL. client may be nil.
func New(client *redis.Client, ttl time.Duration, log *zap.Logger) *Cache {
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{client: client, ttl: ttl, log: log}
}

// Key joins parts under the analytics namespace, e.g. analytics:daily_report:2026-01-02.
func Key(kind string, parts ...string) string {
	return strings.Join(append([]string{keyPrefix, kind}, parts...), ":")
}

// DailyReportKey is the cache key of the report for the UTC day of t.
func DailyReportKey(t time.Time) string {
	return Key("daily_report", t.UTC().Format(time.DateOnly))
}

// Enabled reports whether a Redis client is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Ping checks Redis connectivity. It is a no-op for a disabled cache.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Get decodes the value stored at key into dest. Unreadable entries are evicted.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if !c.Enabled() {
		return false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("Failed to read from cache", zap.String("key", key), zap.Error(err))
			c.evict(ctx, key)
		}
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.log.Warn("Failed to decode cached value", zap.String("key", key), zap.Error(err))
		c.evict(ctx, key)
		return false
	}
	return true
}

// Set stores value under key. A zero ttl uses the cache default.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if !c.Enabled() {
		return
	}
	if ttl == 0 {
		ttl = c.ttl
	}
	if ttl == 0 {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("Failed to encode value for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.log.Warn("Failed to write to cache", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) evict(ctx context.Context, key string) {
	_ = c.client.Del(ctx, key).Err()
}

// Close releases the Redis client.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// Remember returns the cached value for key or computes it with load and
// caches the result. Errors from load are returned and never cached.
func Remember[T any](ctx context.Context, c *Cache, kind, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	var cached T
	if c.Get(ctx, key, &cached) {
		metrics.CacheHits.WithLabelValues(kind).Inc()
		return cached, nil
	}
	if c.Enabled() {
		metrics.CacheMisses.WithLabelValues(kind).Inc()
	}

	value, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.Set(ctx, key, value, ttl)
	return value, nil
}
