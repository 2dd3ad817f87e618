package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type RedisStore struct {
	Redis *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{Redis: rdb}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.Redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, blob []byte, ttl time.Duration) error {
	return s.Redis.Set(ctx, key, blob, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.Redis.Del(ctx, key).Err()
}

func (s *RedisStore) Add(ctx context.Context, key string, blob []byte, ttl time.Duration) (bool, error) {
	return s.Redis.SetNX(ctx, key, blob, ttl).Result()
}
