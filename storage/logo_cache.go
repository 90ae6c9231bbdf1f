package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const logoKeyPrefix = "cardscraper:logo:"

// DefaultLogoTTL is how long a resolved bank logo is remembered.
const DefaultLogoTTL = 30 * 24 * time.Hour

// RedisLogoCache remembers resolved bank logo URLs in Redis.
type RedisLogoCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLogoCache connects to addr and verifies the connection.
func NewRedisLogoCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisLogoCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return NewRedisLogoCacheWithClient(client, ttl), nil
}

// NewRedisLogoCacheWithClient wraps an existing client. A non-positive ttl
// uses DefaultLogoTTL.
func NewRedisLogoCacheWithClient(client *redis.Client, ttl time.Duration) *RedisLogoCache {
	if ttl <= 0 {
		ttl = DefaultLogoTTL
	}
	return &RedisLogoCache{client: client, ttl: ttl}
}

func logoKey(bank string) string {
	return logoKeyPrefix + strings.ToLower(strings.TrimSpace(bank))
}

// Get returns the cached logo for bank. ok is false on a cache miss.
func (c *RedisLogoCache) Get(ctx context.Context, bank string) (string, bool, error) {
	logo, err := c.client.Get(ctx, logoKey(bank)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis: get logo: %w", err)
	}
	return logo, true, nil
}

// Set stores logoURL for bank with the configured TTL.
func (c *RedisLogoCache) Set(ctx context.Context, bank, logoURL string) error {
	if err := c.client.Set(ctx, logoKey(bank), logoURL, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set logo: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (c *RedisLogoCache) Close() error {
	return c.client.Close()
}
