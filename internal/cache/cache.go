// Package cache is a Redis read-through cache for computed read models.
// Keys embed a per-restaurant version so a single INCR retires every
// cached value for that restaurant.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"restoran-kpi/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "restoran-kpi"

// Loader computes a value on a cache miss.
type Loader func(ctx context.Context) (any, error)

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log *logrus.Logger
}

// New wraps rdb. A nil *Cache is valid and always calls the loader.
func New(rdb *redis.Client, ttl time.Duration, log *logrus.Logger) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, log: log}
}

// Connect opens a client and pings it.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		PoolSize: 20,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func versionKey(restaurantID uint) string {
	return fmt.Sprintf("%s:restaurant:%d:version", keyPrefix, restaurantID)
}

// BuildKey returns the key for parts under the restaurant's current version.
func (c *Cache) BuildKey(ctx context.Context, restaurantID uint, parts ...string) (string, error) {
	if c == nil {
		return "", nil
	}
	version, err := c.rdb.Get(ctx, versionKey(restaurantID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("read cache version: %w", err)
	}
	return fmt.Sprintf("%s:restaurant:%d:v%s:%s",
		keyPrefix, restaurantID, strconv.FormatInt(version, 10), strings.Join(parts, ":")), nil
}

// FetchJSON fills dest from key, or runs loader and stores its result.
// Redis failures are logged and fall through to the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader Loader) error {
	if c == nil || key == "" {
		return load(ctx, dest, loader)
	}

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		jsonErr := json.Unmarshal(raw, dest)
		if jsonErr == nil {
			return nil
		}
		config.LogError(c.log, "cache", "FetchJSON", "corrupt cached value", key, jsonErr)
	case !errors.Is(err, redis.Nil):
		config.LogError(c.log, "cache", "FetchJSON", "cache read failed", key, err)
	}

	value, err := loader(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached value: %w", err)
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		config.LogError(c.log, "cache", "FetchJSON", "cache write failed", key, err)
	}
	return json.Unmarshal(payload, dest)
}

func load(ctx context.Context, dest any, loader Loader) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, dest)
}

// Invalidate retires every value cached for the restaurant.
func (c *Cache) Invalidate(ctx context.Context, restaurantID uint) {
	if c == nil {
		return
	}
	if err := c.rdb.Incr(ctx, versionKey(restaurantID)).Err(); err != nil {
		config.LogError(c.log, "cache", "Invalidate", "version bump failed", restaurantID, err)
	}
}
