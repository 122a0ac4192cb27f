package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	devices "device-insight/internal/devices/domain"
)

const (
	defaultKey = "device-insight:snapshot"
	defaultTTL = 30 * time.Second
)

// Client is the subset of *redis.Client used by the cache.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SnapshotCache is a cache-aside snapshot source backed by Redis. Cache
// failures are logged and fall through to the wrapped source.
type SnapshotCache struct {
	client  Client
	source  devices.SnapshotSource
	key     string
	ttl     time.Duration
	logger  *log.Logger
	observe func(hit bool)
}

// Option configures the cache.
type Option func(*SnapshotCache)

// WithKey overrides the cache key.
func WithKey(key string) Option {
	return func(c *SnapshotCache) {
		if key != "" {
			c.key = key
		}
	}
}

// WithTTL overrides the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *SnapshotCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets the logger for cache failures.
func WithLogger(logger *log.Logger) Option {
	return func(c *SnapshotCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver receives every cache lookup outcome.
func WithObserver(fn func(hit bool)) Option {
	return func(c *SnapshotCache) {
		c.observe = fn
	}
}

// NewSnapshotCache wraps source with a Redis cache.
func NewSnapshotCache(client Client, source devices.SnapshotSource, opts ...Option) (*SnapshotCache, error) {
	if client == nil {
		return nil, errors.New("snapshot cache: nil client")
	}
	if source == nil {
		return nil, devices.ErrNilRepository
	}
	c := &SnapshotCache{
		client: client,
		source: source,
		key:    defaultKey,
		ttl:    defaultTTL,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     20,
		MinIdleConns: 2,
		MaxRetries:   3,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// Load returns the cached snapshot or loads and caches a fresh one.
func (c *SnapshotCache) Load(ctx context.Context) (*devices.Snapshot, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	switch {
	case err == nil:
		var snapshot devices.Snapshot
		if err := json.Unmarshal(data, &snapshot); err == nil {
			c.record(true)
			return &snapshot, nil
		}
		c.logger.Printf("snapshot cache: discard corrupt entry %s", c.key)
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Printf("snapshot cache: get %s: %v", c.key, err)
	}
	c.record(false)

	snapshot, err := c.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("snapshot cache: marshal: %w", err)
	}
	if err := c.client.Set(ctx, c.key, payload, c.ttl).Err(); err != nil {
		c.logger.Printf("snapshot cache: set %s: %v", c.key, err)
	}
	return snapshot, nil
}

// Invalidate drops the cached snapshot.
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

func (c *SnapshotCache) record(hit bool) {
	if c.observe != nil {
		c.observe(hit)
	}
}
