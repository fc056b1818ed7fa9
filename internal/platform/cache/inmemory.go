package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const cleanInterval = time.Minute

// InMemoryClient is a process-local Client used when no redis is configured.
// Entries are JSON encoded like the redis client so both behave the same way.
type InMemoryClient[T any] struct {
	entries sync.Map // key -> *entry
	done    chan struct{}
	once    sync.Once
}

type entry struct {
	raw       []byte
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewInMemoryClient returns an empty cache and starts a cleaner that drops expired
// entries every minute. Call Close to stop it.
func NewInMemoryClient[T any]() *InMemoryClient[T] {
	m := &InMemoryClient[T]{done: make(chan struct{})}
	go m.clean()
	return m
}

func (m *InMemoryClient[T]) Get(ctx context.Context, key string) (T, error) {
	var result T
	v, ok := m.entries.Load(key)
	if !ok {
		return result, ErrNotExists
	}
	e, ok := v.(*entry)
	if !ok {
		return result, ErrInvalidType
	}
	if e.expired(time.Now()) {
		m.entries.CompareAndDelete(key, e)
		return result, ErrNotExists
	}
	err := json.Unmarshal(e.raw, &result)
	return result, err
}

func (m *InMemoryClient[T]) Set(ctx context.Context, key string, object T, ttl time.Duration) error {
	raw, err := json.Marshal(object)
	if err != nil {
		return err
	}
	e := &entry{raw: raw}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.entries.Store(key, e)
	return nil
}

func (m *InMemoryClient[T]) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		m.entries.Delete(k)
	}
	return nil
}

func (m *InMemoryClient[T]) GetOrSet(ctx context.Context, opts GetOrSetOpts[T]) (T, error) {
	return readThrough[T](ctx, m, opts)
}

func (m *InMemoryClient[T]) clean() {
	ticker := time.NewTicker(cleanInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			m.entries.Range(func(key, value any) bool {
				if e, ok := value.(*entry); !ok || e.expired(now) {
					m.entries.Delete(key)
				}
				return true
			})
		case <-m.done:
			return
		}
	}
}

// Close stops the background cleaner. It is safe to call more than once.
func (m *InMemoryClient[T]) Close() {
	m.once.Do(func() { close(m.done) })
}
