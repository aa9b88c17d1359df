package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	redisx "github.com/kirinyoku/tabgo/internal/redis"
)

// Cache holds read models derived from Postgres: the table board and menu
// items. Entries are dropped after commit by the writers that change them.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return b, true, nil
}

func (c *Cache) del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	return c.rdb.Del(ctx, keys...).Err()
}

// GetJSON decodes the entry under key. An entry that no longer decodes into T
// is removed and reported as a miss.
func GetJSON[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	const op = "redisrepo.GetJSON"

	var out T

	b, ok, err := c.get(ctx, key)
	if err != nil {
		return out, false, fmt.Errorf("%s:%w", op, err)
	}
	if !ok {
		return out, false, nil
	}

	if err := json.Unmarshal(b, &out); err != nil {
		_ = c.del(ctx, key)
		var zero T
		return zero, false, nil
	}

	return out, true, nil
}

func SetJSON(
	ctx context.Context,
	c *Cache,
	key string,
	val any,
	ttl time.Duration,
) error {
	const op = "redisrepo.SetJSON"

	b, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// GetOrSetJSON returns the cached value under key or loads, stores and returns
// it. Concurrent misses for the same key share one loader call. Cache write
// failures are ignored; the loaded value is still returned.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if v, ok, err := GetJSON[T](ctx, c, key); err != nil || ok {
		return v, err
	}

	shared, err, _ := c.sf.Do(key, func() (any, error) {
		if v, ok, err := GetJSON[T](ctx, c, key); err != nil || ok {
			return v, err
		}

		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		_ = SetJSON(ctx, c, key, v, ttl)

		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return shared.(T), nil
}

func (c *Cache) InvalidateTableBoard(ctx context.Context) error {
	return c.del(ctx, redisx.KeyTableBoard())
}

func (c *Cache) InvalidateMenuItems(ctx context.Context, ids ...string) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, redisx.KeyMenuItem(id))
	}

	return c.del(ctx, keys...)
}
