package middleware

import (
	"math"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"

	"smart-geo-api/internal/logger"
)

// 文档注释：全局令牌桶限流中间件
// 背景：要素缓存过期时每个请求都可能等待一次远端刷新，入口限速避免突发流量压垮表格数据源与模型接口。
// 约束：不排队，超限直接返回 429 与 Retry-After；qps <= 0 时不限流。
func RateLimit(qps float64, burst int) func(http.Handler) http.Handler {
	if qps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst <= 0 {
		burst = int(math.Ceil(qps))
	}
	lim := rate.NewLimiter(rate.Limit(qps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := lim.Reserve()
			if d := res.Delay(); d > 0 {
				res.Cancel()
				retry := int(math.Ceil(d.Seconds()))
				if retry < 1 {
					retry = 1
				}
				logger.L().Debug("rate_limited", "path", r.URL.Path, "retry_after", retry)
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Too many requests"}}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
