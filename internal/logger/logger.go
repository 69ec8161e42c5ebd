// 包 logger：进程级 slog 日志器；级别与格式由 LOG_LEVEL / LOG_FORMAT 控制，输出到标准错误
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

// ParseLevel：将 debug/info/warn/error 映射为 slog.Level，未知值回退 info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Setup：按环境变量初始化默认日志器
func Setup() *slog.Logger {
	return SetupWith(os.Stderr, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

// SetupWith：显式指定输出、级别与格式（json|text）并替换默认日志器
func SetupWith(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	l := slog.New(h)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	return l
}

// L：获取默认日志器；未初始化时回退到 Setup
func L() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		return Setup()
	}
	return l
}

// Discard：丢弃全部输出的日志器，供测试与静默场景注入
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
