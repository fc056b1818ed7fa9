package cache

import (
	"context"
	"errors"
	"time"
)

// Client is a typed key/value cache. Values are stored JSON encoded, so T must
// round-trip through encoding/json.
type Client[T any] interface {
	// Get returns ErrNotExists for a missing or expired key.
	Get(ctx context.Context, key string) (T, error)
	// Set stores object under key. A zero ttl keeps the entry until deleted.
	Set(ctx context.Context, key string, object T, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// GetOrSet serves key from the cache, or runs the callback on a miss and stores its result.
	GetOrSet(ctx context.Context, opts GetOrSetOpts[T]) (T, error)
}

var (
	ErrNotExists           = errors.New("cache: key does not exist")
	ErrCallbackNotProvided = errors.New("cache: callback not provided")
	ErrInvalidType         = errors.New("cache: unexpected value type")
)

// GetOrSetOpts describes a read-through lookup.
type GetOrSetOpts[T any] struct {
	Key      string
	TTL      time.Duration
	Callback func() (T, error)
}

// readThrough implements GetOrSet on top of a Client's Get and Set.
func readThrough[T any](ctx context.Context, c Client[T], opts GetOrSetOpts[T]) (T, error) {
	var zero T
	if opts.Callback == nil {
		return zero, ErrCallbackNotProvided
	}

	obj, err := c.Get(ctx, opts.Key)
	switch {
	case err == nil:
		return obj, nil
	case !errors.Is(err, ErrNotExists):
		return zero, err
	}

	if obj, err = opts.Callback(); err != nil {
		return zero, err
	}
	if err = c.Set(ctx, opts.Key, obj, opts.TTL); err != nil {
		return zero, err
	}
	return obj, nil
}
