package storage

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores each collection as one hash of JSON values under prefix:collection.
type Redis struct {
	rdb    redis.Cmdable
	prefix string
}

func NewRedis(rdb redis.Cmdable, prefix string) *Redis {
	if prefix == "" {
		prefix = "callboard"
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) hash(collection string) string { return r.prefix + ":" + collection }

func (r *Redis) Get(ctx context.Context, collection, key string, dst any) error {
	raw, err := r.rdb.HGet(ctx, r.hash(collection), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func (r *Redis) Put(ctx context.Context, collection, key string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return r.rdb.HSet(ctx, r.hash(collection), key, raw).Err()
}

func (r *Redis) Delete(ctx context.Context, collection, key string) error {
	return r.rdb.HDel(ctx, r.hash(collection), key).Err()
}

func (r *Redis) List(ctx context.Context, collection string, fn func(key string, raw []byte) error) error {
	all, err := r.rdb.HGetAll(ctx, r.hash(collection)).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := fn(k, []byte(all[k])); err != nil {
			return err
		}
	}
	return nil
}

// Cached reads through a Redis cache in front of a primary store. Writes go to the
// primary first and then drop the cached copy; List always reads the primary.
type Cached struct {
	primary Collections
	rdb     redis.Cmdable
	ttl     time.Duration
	prefix  string
}

func NewCached(primary Collections, rdb redis.Cmdable, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cached{primary: primary, rdb: rdb, ttl: ttl, prefix: "callboard:cache"}
}

func (c *Cached) cacheKey(collection, key string) string {
	return c.prefix + ":" + collection + ":" + key
}

func (c *Cached) Get(ctx context.Context, collection, key string, dst any) error {
	ck := c.cacheKey(collection, key)
	if raw, err := c.rdb.Get(ctx, ck).Bytes(); err == nil {
		return json.Unmarshal(raw, dst)
	}

	var doc json.RawMessage
	if err := c.primary.Get(ctx, collection, key, &doc); err != nil {
		return err
	}
	// Cache fill failures only cost a later miss.
	_ = c.rdb.Set(ctx, ck, []byte(doc), c.ttl).Err()
	return json.Unmarshal(doc, dst)
}

func (c *Cached) Put(ctx context.Context, collection, key string, doc any) error {
	if err := c.primary.Put(ctx, collection, key, doc); err != nil {
		return err
	}
	return c.rdb.Del(ctx, c.cacheKey(collection, key)).Err()
}

func (c *Cached) Delete(ctx context.Context, collection, key string) error {
	if err := c.primary.Delete(ctx, collection, key); err != nil {
		return err
	}
	return c.rdb.Del(ctx, c.cacheKey(collection, key)).Err()
}

func (c *Cached) List(ctx context.Context, collection string, fn func(key string, raw []byte) error) error {
	return c.primary.List(ctx, collection, fn)
}
