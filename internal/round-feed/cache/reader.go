package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Reader é o lado de leitura da projeção mantida pelo round-projector
type Reader interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]redis.Z, error)
}

type RedisReader struct{ R *redis.Client }

func New(r *redis.Client) RedisReader { return RedisReader{R: r} }

func (c RedisReader) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return c.R.HGetAll(ctx, key).Result()
}

func (c RedisReader) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]redis.Z, error) {
	return c.R.ZRevRangeWithScores(ctx, key, start, stop).Result()
}
