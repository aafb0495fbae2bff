package ordersvc

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const idemTTL = 24 * time.Hour

// RedisIdemStore backs IdemStore with a Redis SETNX per key.
type RedisIdemStore struct {
	rdb *redis.Client
}

func NewRedisIdemStore(rdb *redis.Client) *RedisIdemStore {
	return &RedisIdemStore{rdb: rdb}
}

func (s *RedisIdemStore) Reserve(ctx context.Context, key string) (bool, error) {
	return s.rdb.SetNX(ctx, "idempotency-key:"+key, "used", idemTTL).Result()
}
