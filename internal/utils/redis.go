package utils

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"smart-geo-api/internal/logger"
)

// 文档注释：从 REDIS_HOST/REDIS_PORT/REDIS_PASS/REDIS_DB 打开 Redis 并探活
// 约束：REDIS_DB 解析失败回退 0；探活失败时关闭客户端并返回错误，由调用方决定是否降级为仅进程内缓存。
func OpenRedisFromEnv(ctx context.Context) (*redis.Client, error) {
	addr := envOr("REDIS_HOST", "127.0.0.1") + ":" + envOr("REDIS_PORT", "6379")
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			db = n
		}
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASS"), DB: db})

	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	logger.L().Debug("redis_ok", "addr", addr, "db", db)
	return rdb, nil
}
