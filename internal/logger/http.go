package logger

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// HTTP 访问日志：记录方法、路径、状态、耗时、字节数、远端地址与请求 ID

// 超过该耗时的请求以 warn 级别记录
const slowRequest = time.Second

// statusWriter：包装 ResponseWriter 以捕获状态码与写出字节数
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// AccessMiddleware：生成访问日志中间件；不读取请求体
// 约束：请求 ID 依赖 chi 的 RequestID 中间件先行执行，缺失时为空串
func AccessMiddleware(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r)
			dur := time.Since(start)
			lvl := slog.LevelDebug
			if dur >= slowRequest || sw.status >= http.StatusInternalServerError {
				lvl = slog.LevelWarn
			}
			l.Log(r.Context(), lvl, "http_access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"bytes", sw.bytes,
				"duration_ms", dur.Milliseconds(),
				"ip", r.RemoteAddr,
				"req_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
