package cache

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "idem:"

type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGuard(addr string, password string, db int, ttl time.Duration) *RedisGuard {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}

func (g *RedisGuard) Claim(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, g.ttl).Result()
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}
