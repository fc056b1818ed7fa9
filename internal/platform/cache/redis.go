package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisClient[T any] struct {
	rdb redis.Cmdable
}

// NewRedisClient returns a Client backed by redis. Entries are shared by every
// process using the same redis, so deletes are visible cluster-wide.
func NewRedisClient[T any](rdb redis.Cmdable) Client[T] {
	return &redisClient[T]{rdb: rdb}
}

func (r *redisClient[T]) Get(ctx context.Context, key string) (T, error) {
	var result T
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return result, ErrNotExists
	}
	if err != nil {
		return result, err
	}
	err = json.Unmarshal(raw, &result)
	return result, err
}

func (r *redisClient[T]) Set(ctx context.Context, key string, object T, ttl time.Duration) error {
	raw, err := json.Marshal(object)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, key, raw, ttl).Err()
}

func (r *redisClient[T]) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.rdb.Del(ctx, keys...).Err()
}

func (r *redisClient[T]) GetOrSet(ctx context.Context, opts GetOrSetOpts[T]) (T, error) {
	return readThrough[T](ctx, r, opts)
}
