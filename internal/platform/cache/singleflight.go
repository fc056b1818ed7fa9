package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// singleFlightClient collapses concurrent misses on the same key into one callback.
type singleFlightClient[T any] struct {
	Client[T]
	group singleflight.Group
}

// WithSingleFlight wraps inner so concurrent GetOrSet calls for one key share a load.
func WithSingleFlight[T any](inner Client[T]) Client[T] {
	return &singleFlightClient[T]{Client: inner}
}

func (s *singleFlightClient[T]) GetOrSet(ctx context.Context, opts GetOrSetOpts[T]) (result T, err error) {
	if opts.Callback == nil {
		return result, ErrCallbackNotProvided
	}

	v, err, _ := s.group.Do(opts.Key, func() (interface{}, error) {
		return s.Client.GetOrSet(ctx, opts)
	})
	if err != nil {
		return result, err
	}

	out, ok := v.(T)
	if !ok {
		return result, ErrInvalidType
	}
	return out, nil
}
