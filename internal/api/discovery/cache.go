package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/FACorreiaa/go-trip-assistant/config"
	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

// DefaultTTL applies when the cache config leaves ttl unset.
const DefaultTTL = 30 * time.Minute

const redisPrefix = "discovery:"

// Cache stores discovery results keyed by CacheKey. Invalidate removes every key
// starting with prefix; an empty prefix clears the whole cache.
type Cache interface {
	Get(ctx context.Context, key string) ([]types.Attraction, bool, error)
	Set(ctx context.Context, key string, attractions []types.Attraction) error
	Invalidate(ctx context.Context, prefix string) (int, error)
}

// CacheKey normalizes region, date and the optional suggestion into one key.
func CacheKey(region, date, suggestion string) string {
	return RegionDatePrefix(region, date) + normalize(suggestion)
}

// RegionDatePrefix is the key prefix shared by every suggestion for region on date.
func RegionDatePrefix(region, date string) string {
	return normalize(region) + "|" + strings.TrimSpace(date) + "|"
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NewCache builds the backend selected by cfg.Backend.
func NewCache(cfg config.CacheConfig) (Cache, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	switch cfg.Backend {
	case "", "memory":
		cleanup := cfg.CleanupInterval
		if cleanup <= 0 {
			cleanup = 2 * ttl
		}
		return NewMemoryCache(ttl, cleanup), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedisCache(client, ttl), nil
	default:
		return nil, &types.ConfigurationError{Setting: fmt.Sprintf("cache.backend=%q", cfg.Backend)}
	}
}

type MemoryCache struct {
	store *cache.Cache
}

func NewMemoryCache(ttl, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{store: cache.New(ttl, cleanupInterval)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]types.Attraction, bool, error) {
	v, found := c.store.Get(key)
	if !found {
		return nil, false, nil
	}
	attractions, ok := v.([]types.Attraction)
	if !ok {
		c.store.Delete(key)
		return nil, false, nil
	}
	out := make([]types.Attraction, len(attractions))
	copy(out, attractions)
	return out, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, attractions []types.Attraction) error {
	stored := make([]types.Attraction, len(attractions))
	copy(stored, attractions)
	c.store.SetDefault(key, stored)
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, prefix string) (int, error) {
	if prefix == "" {
		n := c.store.ItemCount()
		c.store.Flush()
		return n, nil
	}
	removed := 0
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
			removed++
		}
	}
	return removed, nil
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]types.Attraction, bool, error) {
	raw, err := c.client.Get(ctx, redisPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var attractions []types.Attraction
	if err := json.Unmarshal(raw, &attractions); err != nil {
		// An unreadable entry is treated as a miss and overwritten on the next Set.
		return nil, false, nil
	}
	return attractions, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, attractions []types.Attraction) error {
	raw, err := json.Marshal(attractions)
	if err != nil {
		return fmt.Errorf("encode attractions: %w", err)
	}
	if err := c.client.Set(ctx, redisPrefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, prefix string) (int, error) {
	iter := c.client.Scan(ctx, 0, redisPrefix+escapeGlob(prefix)+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis del: %w", err)
	}
	return int(n), nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// escapeGlob quotes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '^':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
