package reports

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache tags. Every entry carries its report tag plus the umbrella tag so
// a write to any reporting domain can purge everything at once.
const (
	TagAll      = "all"
	TagSales    = "sales"
	TagExpenses = "expenses"
	TagCash     = "cash"
	TagProducts = "products"
	TagProfit   = "profit"
)

const (
	cacheKeyPrefix = "reports"
	cacheTagPrefix = "reports:tag:"
)

// Cache is the injectable memoization layer for report entry points:
// short-TTL JSON values keyed by (report, shop, range), indexed under
// invalidation tags. A nil client disables caching; loaders then run on
// every call. Concurrent recomputation of a key is benign — report values
// are pure functions of their key, so the last SET wins.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Key composes the cache key for a report over a shop and window.
func (c *Cache) Key(report string, shopID int64, w Window) string {
	from, to := "-", "-"
	if w.Start != nil {
		from = w.Start.UTC().Format(time.RFC3339Nano)
	}
	if w.End != nil {
		to = w.End.UTC().Format(time.RFC3339Nano)
	}
	return strings.Join([]string{cacheKeyPrefix, report, strconv.FormatInt(shopID, 10), from, to}, ":")
}

// FetchJSON loads a cached value or populates it using the loader,
// registering the key under each tag's index set.
func (c *Cache) FetchJSON(ctx context.Context, key string, tags []string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	if loader == nil {
		return errors.New("reports: cache loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if err != redis.Nil {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	for _, tag := range tags {
		tagKey := cacheTagPrefix + tag
		if err := c.client.SAdd(ctx, tagKey, key).Err(); err != nil {
			return err
		}
		// Tag indexes outlive their members so a purge always sees them.
		if err := c.client.Expire(ctx, tagKey, 2*c.ttl).Err(); err != nil {
			return err
		}
	}
	return json.Unmarshal(raw, dest)
}

// InvalidateTags purges every entry registered under the given tags and
// reports how many entries were dropped. Domain modules call this
// (directly or via the reports:invalidate task) after writing to sales,
// expenses, or cash entries.
func (c *Cache) InvalidateTags(ctx context.Context, tags ...string) (int, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	dropped := 0
	for _, tag := range tags {
		tagKey := cacheTagPrefix + tag
		members, err := c.client.SMembers(ctx, tagKey).Result()
		if err != nil && err != redis.Nil {
			return dropped, err
		}
		if len(members) > 0 {
			if err := c.client.Del(ctx, members...).Err(); err != nil {
				return dropped, err
			}
			dropped += len(members)
		}
		if err := c.client.Del(ctx, tagKey).Err(); err != nil {
			return dropped, err
		}
	}
	return dropped, nil
}
