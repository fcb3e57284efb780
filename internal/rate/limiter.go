// Package rate implementa límites fixed-window por key (típicamente IP de cliente).
package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

func newResult(hits, max int64, retry time.Duration) Result {
	res := Result{
		Allowed:     hits <= max,
		Remaining:   max - hits,
		CurrentHits: hits,
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = retry
	}
	return res
}

// ====================================================================================
// Redis
// ====================================================================================

// RedisLimiter: fixed window compartido entre réplicas (INCR + EXPIRE NX en MULTI).
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Max    int64
	Window time.Duration
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{
		Client: client,
		Prefix: prefix,
		Max:    int64(max),
		Window: window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	winStart := time.Now().UTC().Truncate(l.Window)
	redisKey := fmt.Sprintf("%s%s:%d", l.Prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	var incr *rdb.IntCmd
	var ttl *rdb.DurationCmd
	_, err := l.Client.TxPipelined(ctx, func(pipe rdb.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, l.Window)
		ttl = pipe.TTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	retry := ttl.Val()
	if retry <= 0 {
		retry = winStart.Add(l.Window).Sub(time.Now().UTC())
	}
	return newResult(incr.Val(), l.Max, retry), nil
}
