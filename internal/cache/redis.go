package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache хранит результаты в Redis с общим TTL
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache подключается к Redis по адресу addr
func NewRedisCache(addr string, ttl time.Duration) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisCache{
		client: rdb,
		ttl:    ttl,
	}
}

// Get возвращает значение; отсутствие ключа - промах без ошибки
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set сохраняет значение на время ttl
func (r *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, r.ttl).Err()
}

// Close закрывает соединения с Redis
func (r *RedisCache) Close() error {
	return r.client.Close()
}
