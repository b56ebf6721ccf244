// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the production Store backed by github.com/redis/go-redis/v9.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore dials addr (host:port) and returns a Store. The
// connection is lazy: redis.NewClient never blocks, the first command
// establishes it.
func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

func (rs *RedisStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return rs.client.HSet(ctx, key, args...).Err()
}

func (rs *RedisStore) HGet(ctx context.Context, key, field string) (string, error) {
	v, err := rs.client.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

func (rs *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return rs.client.HGetAll(ctx, key).Result()
}

func (rs *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return rs.client.Expire(ctx, key, ttl).Err()
}
