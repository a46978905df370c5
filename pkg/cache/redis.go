// Пакет cache предоставляет обёртку над Redis для кэша чтения и хранения сессий
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss возвращается, когда запрошенный ключ отсутствует в Redis.
// Позволяет отличать кэш-промах от прочих ошибок соединения.
var ErrCacheMiss = errors.New("cache miss")

// RedisClient — обёртка над *redis.Client с методами Set, Get и Invalidate.
// Один и тот же клиент обслуживает и кэш чтения, и сессии (разные префиксы ключей).
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient создаёт новый RedisClient с заданными опциями подключения
func NewRedisClient(opts *redis.Options) *RedisClient {
	return &RedisClient{client: redis.NewClient(opts)}
}

// Set сохраняет значение value под ключом key с временем жизни expiration
func (r *RedisClient) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

// Get возвращает значение по ключу key.
// Отсутствующий ключ (redis.Nil) транслируется в ErrCacheMiss,
// остальные ошибки Redis возвращаются как есть.
func (r *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Invalidate удаляет ключ key.
// Используется и для сброса устаревшего кэша, и для завершения сессий.
func (r *RedisClient) Invalidate(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
