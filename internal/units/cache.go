package units

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keeps a company's unit set in Redis so the movement engine does not
// hit the database for every line conversion. Writes bump a version counter
// instead of deleting keys.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

const cacheVersionKey = "units:version"

func (c *Cache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *Cache) key(ctx context.Context, companyID int64) (string, error) {
	ver, err := c.version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("units:company:%d:%d", companyID, ver), nil
}

// Fetch returns the cached unit set, or loads and stores it on a miss.
func (c *Cache) Fetch(ctx context.Context, companyID int64, loader func(context.Context) ([]Unit, error)) ([]Unit, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	key, err := c.key(ctx, companyID)
	if err != nil {
		return loader(ctx)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var units []Unit
		if err := json.Unmarshal(payload, &units); err == nil {
			return units, nil
		}
	} else if err != redis.Nil {
		return nil, err
	}
	units, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(units)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return nil, err
	}
	return units, nil
}

// Bump invalidates all cached unit sets after a write.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}
