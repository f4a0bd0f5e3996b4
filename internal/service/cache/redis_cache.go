package cache

import (
	"context"
	"errors"
	"time"

	pkgredis "PipFlow/pkg/redis"
)

// RedisCache implements BytesCache over the shared Redis client, so the
// candle query cache survives restarts and is shared between replicas.
type RedisCache struct {
	cli *pkgredis.Client
}

func NewRedisCache(cli *pkgredis.Client) *RedisCache {
	return &RedisCache{cli: cli}
}

func (r *RedisCache) GetBytes(key string) ([]byte, bool, error) {
	var s string
	err := r.cli.Get(context.Background(), key, &s)
	if err != nil {
		if errors.Is(err, pkgredis.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(s), true, nil
}

func (r *RedisCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	return r.cli.Set(context.Background(), key, string(value), ttl)
}

var _ BytesCache = (*RedisCache)(nil)
