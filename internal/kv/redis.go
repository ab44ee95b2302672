package kv

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using Redis. Keys are "<prefix><ns>:<key>".
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-based store. Prefix may be empty.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "blogpipe:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(ns, key string) string {
	return r.prefix + ns + ":" + key
}

func (r *RedisStore) Get(ctx context.Context, ns, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, r.key(ns, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *RedisStore) Put(ctx context.Context, ns, key string, val []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, r.key(ns, key), val, ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, ns, key string) error {
	return r.client.Del(ctx, r.key(ns, key)).Err()
}

// Ping reports whether the backing Redis is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
