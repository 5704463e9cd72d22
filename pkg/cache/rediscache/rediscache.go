package rediscache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/asakaida/propaccess/pkg/cache"
	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint used when clearing prefixed keys
const scanBatch = 100

// Client is the subset of go-redis client methods used by Cache.
type Client interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Close() error
}

// Config holds configuration for the Redis cache.
type Config struct {
	Addr     string
	Password string
	DB       int

	// Prefix is prepended to every key so several deployments can share one Redis
	Prefix string

	// DefaultTTL applies when Set is called with a non-positive TTL
	DefaultTTL time.Duration

	EnableMetrics bool
}

// Cache stores sessions in Redis so they survive restarts and are shared between instances.
// Values come back from Get as strings.
type Cache struct {
	client  Client
	cfg     Config
	metrics *counters
}

type counters struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	keysAdded atomic.Uint64
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, cfg *Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Cache backed by a pre-built client.
func NewWithClient(client Client, cfg *Config) *Cache {
	c := &Cache{client: client, cfg: *cfg}
	if cfg.EnableMetrics {
		c.metrics = &counters{}
	}
	return c
}

// Get retrieves a value. Redis errors are reported as misses.
func (c *Cache) Get(ctx context.Context, key string) (interface{}, bool) {
	val, err := c.client.Get(ctx, c.prefixed(key)).Result()
	if err != nil {
		if c.metrics != nil {
			c.metrics.misses.Add(1)
		}
		return nil, false
	}
	if c.metrics != nil {
		c.metrics.hits.Add(1)
	}
	return val, true
}

// Set stores a value with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}
	if err := c.client.Set(ctx, c.prefixed(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	if c.metrics != nil {
		c.metrics.keysAdded.Add(1)
	}
	return nil
}

// Delete removes a value. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefixed(key)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Clear removes every key under the configured prefix.
func (c *Cache) Clear(ctx context.Context) error {
	if c.cfg.Prefix == "" {
		return errors.New("refusing to clear redis without a key prefix")
	}

	iter := c.client.Scan(ctx, 0, c.cfg.Prefix+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to clear keys: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to clear keys: %w", err)
		}
	}
	return nil
}

// Ping checks that Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Metrics returns cache statistics. Evictions and expirations happen inside Redis and are not counted.
func (c *Cache) Metrics() *cache.Metrics {
	if c.metrics == nil {
		return &cache.Metrics{}
	}
	return &cache.Metrics{
		Hits:      c.metrics.hits.Load(),
		Misses:    c.metrics.misses.Load(),
		KeysAdded: c.metrics.keysAdded.Load(),
	}
}

func (c *Cache) prefixed(key string) string {
	return c.cfg.Prefix + key
}
