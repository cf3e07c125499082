package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a page store backed by Redis. Pages are stored as JSON so
// multiple processes can share one cache.
type Redis struct {
	client     redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
}

// RedisOption configures the Redis store.
type RedisOption func(*Redis)

// WithPrefix namespaces all keys under prefix.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithRedisDefaultTTL sets the TTL used when Set receives a zero TTL.
func WithRedisDefaultTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		r.defaultTTL = ttl
	}
}

// NewRedis creates a new Redis-backed page store.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := cache.NewRedis(client, cache.WithPrefix("pages"))
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client:     client,
		prefix:     "relay",
		defaultTTL: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get retrieves a page by key from Redis.
// Returns ErrNotFound if the key does not exist.
func (r *Redis) Get(ctx context.Context, key string) (*Page, error) {
	data, err := r.client.Get(ctx, r.prefixedKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return unmarshalPage(data)
}

// Set stores a page in Redis with the given TTL.
// TTL semantics: positive = expires after duration, zero = use default TTL,
// negative = no expiration (persists until manually deleted or Redis evicts it).
func (r *Redis) Set(ctx context.Context, key string, page *Page, ttl time.Duration) error {
	data, err := marshalPage(page)
	if err != nil {
		return err
	}

	if ttl == 0 {
		ttl = r.defaultTTL
	}

	// Redis interprets 0 as no expiration, matching our negative-TTL
	// semantic.
	redisTTL := max(ttl, 0)

	return r.client.Set(ctx, r.prefixedKey(key), data, redisTTL).Err()
}

// Delete removes a key from Redis.
func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefixedKey(key)).Err()
}

// Close is a no-op for Redis. The client lifecycle is managed by the
// caller.
func (r *Redis) Close() error {
	return nil
}

func (r *Redis) prefixedKey(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

var _ Store = (*Redis)(nil)
