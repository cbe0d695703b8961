package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache is a read-through redis cache. A nil *Cache is valid and always calls
// the loader, which keeps redis optional.
type Cache struct {
	RDB    *redis.Client
	Prefix string
	sf     singleflight.Group
}

func New(addr, pass string, db int) *Cache {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}))
}

func NewWithClient(rdb *redis.Client) *Cache {
	return &Cache{RDB: rdb, Prefix: "recipebox:"}
}

func (c *Cache) key(k string) string { return c.Prefix + k }

func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.RDB.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.RDB.Close()
}

func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if c == nil {
		return load(ctx)
	}
	k := c.key(key)
	if b, err := c.RDB.Get(ctx, k).Bytes(); err == nil {
		return b, nil
	}
	// concurrent misses on one key share a single load
	v, err, _ := c.sf.Do(k, func() (any, error) {
		b, e := load(ctx)
		if e != nil {
			return nil, e
		}
		_ = c.RDB.Set(ctx, k, b, ttl).Err()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Delete drops keys; errors are returned so callers can log them, but a stale
// entry only lives until its TTL.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.RDB.Del(ctx, full...).Err()
}

func (c *Cache) genKey(name string) string { return c.key("gen:" + name) }

// Versioned qualifies name with its current generation. A load that started
// before a Bump writes under the old generation, which no reader asks for
// again, so a slow reader cannot re-cache a value a writer just replaced.
func (c *Cache) Versioned(ctx context.Context, name string) (string, error) {
	if c == nil {
		return name, nil
	}
	gen, err := c.RDB.Get(ctx, c.genKey(name)).Int64()
	if errors.Is(err, redis.Nil) {
		gen, err = 0, nil
	}
	if err != nil {
		return "", err
	}
	return name + "@" + strconv.FormatInt(gen, 10), nil
}

// Bump moves name to a new generation. Generation counters never expire;
// a counter that reset could hand out a generation a stale entry still holds.
func (c *Cache) Bump(ctx context.Context, name string) error {
	if c == nil {
		return nil
	}
	return c.RDB.Incr(ctx, c.genKey(name)).Err()
}
