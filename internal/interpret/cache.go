package interpret

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"smart-geo-api/internal/logger"
	"smart-geo-api/internal/metrics"
)

const redisKeyPrefix = "interpret:"

// 文档注释：解释结果两级缓存
// 背景：同一自然语言查询在短时间内重复出现，模型调用昂贵；L1 为进程内 LRU，L2 为可选 Redis，多实例共享。
// 约束：键为去首尾空白后的原文；失败结果不缓存；Redis 故障只记录日志，不影响返回。
type Cached struct {
	next Interpreter
	l1   *expirable.LRU[string, string]
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCached rdb 可为 nil
func NewCached(next Interpreter, size int, ttl time.Duration, rdb *redis.Client) *Cached {
	if size <= 0 {
		size = 1024
	}
	return &Cached{
		next: next,
		l1:   expirable.NewLRU[string, string](size, nil, ttl),
		rdb:  rdb,
		ttl:  ttl,
	}
}

func (c *Cached) Interpret(ctx context.Context, text string) (string, error) {
	key := strings.TrimSpace(text)
	if key == "" {
		return "", ErrEmptyQuery
	}
	metrics.InterpretRequestsTotal.Inc()
	l := logger.L()

	if v, ok := c.l1.Get(key); ok {
		metrics.InterpretCacheHitsTotal.WithLabelValues("memory").Inc()
		l.Debug("interpret_cache_hit", "tier", "memory", "query", key)
		return v, nil
	}
	if c.rdb != nil {
		v, err := c.rdb.Get(ctx, redisKeyPrefix+key).Result()
		switch {
		case err == nil:
			metrics.InterpretCacheHitsTotal.WithLabelValues("redis").Inc()
			l.Debug("interpret_cache_hit", "tier", "redis", "query", key)
			c.l1.Add(key, v)
			return v, nil
		case !errors.Is(err, redis.Nil):
			l.Warn("interpret_redis_get_fail", "err", err)
		}
	}

	start := time.Now()
	v, err := c.next.Interpret(ctx, key)
	metrics.InterpretDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.InterpretFailTotal.Inc()
		return "", err
	}
	c.l1.Add(key, v)
	if c.rdb != nil {
		if err := c.rdb.Set(ctx, redisKeyPrefix+key, v, c.ttl).Err(); err != nil {
			l.Warn("interpret_redis_set_fail", "err", err)
		}
	}
	l.Info("interpret_ok", "query", key, "where", v, "ms", time.Since(start).Milliseconds())
	return v, nil
}

// Purge 清空进程内缓存
func (c *Cached) Purge() {
	c.l1.Purge()
}
