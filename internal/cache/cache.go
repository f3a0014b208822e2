package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/itinera/internal/flights"
)

const (
	defaultTTL = time.Hour

	// UsageWindow is how long an anonymous usage counter lives.
	UsageWindow = 24 * time.Hour
)

// Cache wraps a Redis client and stores flight quotes and usage counters.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a Cache whose quotes expire after ttl, or one hour
// when ttl is not positive.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// quoteKey returns the Redis key for a city and departure date.
func quoteKey(city, date string) string {
	return "flight:" + normalize(city) + ":" + date
}

func usageKey(caller string) string {
	return "usage:" + normalize(caller)
}

// GetQuote retrieves a flight quote from cache.
// Returns nil, nil on a cache miss (not an error).
func (c *Cache) GetQuote(ctx context.Context, city, date string) (*flights.Quote, error) {
	val, err := c.client.Get(ctx, quoteKey(city, date)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get for city %s: %w", city, err)
	}

	var q flights.Quote
	if err := json.Unmarshal([]byte(val), &q); err != nil {
		return nil, fmt.Errorf("unmarshaling cached quote for city %s: %w", city, err)
	}

	return &q, nil
}

// SetQuote stores a flight quote with the configured TTL.
func (c *Cache) SetQuote(ctx context.Context, q flights.Quote) error {
	b, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshaling quote for city %s: %w", q.City, err)
	}

	if err := c.client.Set(ctx, quoteKey(q.City, q.Date), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set for city %s: %w", q.City, err)
	}

	return nil
}

// DeleteQuote removes the cached quote for a city and date.
func (c *Cache) DeleteQuote(ctx context.Context, city, date string) error {
	if err := c.client.Del(ctx, quoteKey(city, date)).Err(); err != nil {
		return fmt.Errorf("cache delete for city %s: %w", city, err)
	}
	return nil
}

// IncrUsage counts one more request by caller and returns the new count.
// The counter starts a fresh UsageWindow on its first increment.
func (c *Cache) IncrUsage(ctx context.Context, caller string) (int64, error) {
	key := usageKey(caller)

	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incrementing usage for %s: %w", caller, err)
	}
	if n == 1 {
		if err := c.client.Expire(ctx, key, UsageWindow).Err(); err != nil {
			return n, fmt.Errorf("setting usage window for %s: %w", caller, err)
		}
	}

	return n, nil
}

// Usage returns how many requests caller made in the current window.
func (c *Cache) Usage(ctx context.Context, caller string) (int64, error) {
	n, err := c.client.Get(ctx, usageKey(caller)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading usage for %s: %w", caller, err)
	}
	return n, nil
}
