package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewRedisStore wires a ulule limiter store backed by Redis.
func NewRedisStore(client *redis.Client) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:          "pos:ratelimit",
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	})
}

// StoreLimiter adapts a ulule limiter store to the Limiter interface. It
// counts fixed windows.
type StoreLimiter struct {
	Store limiter.Store
}

// Allow implements Limiter.
func (s StoreLimiter) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	if s.Store == nil || max <= 0 || window <= 0 {
		return true, max, time.Now().Add(window), nil
	}
	l := limiter.New(s.Store, limiter.Rate{Period: window, Limit: int64(max)})
	res, err := l.Get(ctx, key)
	if err != nil {
		return false, 0, time.Now().Add(window), err
	}
	return !res.Reached, int(res.Remaining), time.Unix(res.Reset, 0), nil
}
