package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces keys written by RedisStore.
const DefaultRedisPrefix = "openid_flow"

const redisScanCount = 100

var (
	_ Store[any] = (*RedisStore[any])(nil)
	_ Taker[any] = (*RedisStore[any])(nil)
)

// RedisStore keeps JSON encoded values in Redis. Expiry is delegated to
// Redis, so an expired entry is never visible to any reader.
type RedisStore[V any] struct {
	client    redis.UniversalClient
	prefix    string
	observers Observers[V]
}

// RedisOption configures a RedisStore.
type RedisOption[V any] func(*RedisStore[V])

// WithRedisPrefix overrides DefaultRedisPrefix.
func WithRedisPrefix[V any](prefix string) RedisOption[V] {
	return func(s *RedisStore[V]) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRedisObservers registers mutation callbacks.
func WithRedisObservers[V any](observers Observers[V]) RedisOption[V] {
	return func(s *RedisStore[V]) {
		s.observers = observers
	}
}

// NewRedisStore wraps an existing client. The caller owns the client.
func NewRedisStore[V any](client redis.UniversalClient, options ...RedisOption[V]) *RedisStore[V] {
	s := &RedisStore[V]{
		client: client,
		prefix: DefaultRedisPrefix,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *RedisStore[V]) key(key Key) string {
	return s.prefix + ":" + key.flatKey()
}

// Get returns the value stored under key.
func (s *RedisStore[V]) Get(ctx context.Context, key Key) (V, bool, error) {
	var zero V
	if err := checkKey(key); err != nil {
		return zero, false, err
	}

	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("%w: get: %v", ErrBackend, err)
	}
	return s.decode(data)
}

// Set stores value under key. Redis removes the key once ttl has elapsed.
func (s *RedisStore[V]) Set(ctx context.Context, key Key, value V, ttl time.Duration) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode value: %v", ErrBackend, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set: %v", ErrBackend, err)
	}
	return s.observers.set(ctx, key, value)
}

// Delete removes key. The previous value is fetched in the same command so
// observers see what was removed.
func (s *RedisStore[V]) Delete(ctx context.Context, key Key) error {
	_, _, err := s.Take(ctx, key)
	return err
}

// Take removes key with GETDEL, so only one caller ever receives the value.
func (s *RedisStore[V]) Take(ctx context.Context, key Key) (V, bool, error) {
	var zero V
	if err := checkKey(key); err != nil {
		return zero, false, err
	}

	data, err := s.client.GetDel(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, s.observers.delete(ctx, key, zero, false)
	}
	if err != nil {
		return zero, false, fmt.Errorf("%w: getdel: %v", ErrBackend, err)
	}
	previous, _, err := s.decode(data)
	if err != nil {
		return zero, false, err
	}
	if err := s.observers.delete(ctx, key, previous, true); err != nil {
		return previous, true, err
	}
	return previous, true, nil
}

// IsEmpty scans for any key under the store prefix.
func (s *RedisStore[V]) IsEmpty(ctx context.Context) (bool, error) {
	// The iterator follows the cursor, since SCAN may return an empty page
	// before the last one.
	iter := s.client.Scan(ctx, 0, s.prefix+":*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		return false, nil
	}
	if err := iter.Err(); err != nil {
		return false, fmt.Errorf("%w: scan: %v", ErrBackend, err)
	}
	return true, nil
}

func (s *RedisStore[V]) decode(data []byte) (V, bool, error) {
	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		return value, false, fmt.Errorf("%w: decode value: %v", ErrBackend, err)
	}
	return value, true, nil
}
