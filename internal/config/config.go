// 包 config：集中读取环境变量为类型化配置；.env 由 godotenv 预加载，已存在的环境变量优先
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 行数据源类型
const (
	SourceSheets   = "sheets"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

// Config：服务进程配置
type Config struct {
	Addr    string
	APIBase string

	// 行数据源
	RowSource       string
	SheetID         string
	CredentialsFile string
	CurrentRange    string
	PreviousRange   string // 为空表示不读取上一快照
	SQLitePath      string

	// 要素缓存新鲜窗口
	FeatureCacheTTL time.Duration

	// 自然语言解释
	OpenAIKey          string
	OpenAIModel        string
	OpenAIBaseURL      string
	InterpretCacheTTL  time.Duration
	InterpretCacheSize int
	Categories         []string

	RedisEnable bool

	RateLimitEnabled bool
	RateLimitQPS     float64
	RateLimitBurst   int

	CORSAllowedOrigins []string

	TLSEnable   bool
	TLSCertPath string
	TLSKeyPath  string

	LayerName string
	LogLevel  string
	LogFormat string

	// Warnings：加载过程中的非致命问题，待日志器就绪后由调用方输出
	Warnings []string
}

// LoadDotEnv：按顺序加载 .env 与 data/env/.env；文件缺失不视为错误
func LoadDotEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
}

// LoadFromEnv：读取环境变量并填充默认值
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Addr:            envDefault("ADDR", ":8080"),
		APIBase:         strings.TrimRight(os.Getenv("API_BASE"), "/"),
		RowSource:       strings.ToLower(envDefault("ROW_SOURCE", SourceSheets)),
		SheetID:         os.Getenv("SHEET_ID"),
		CredentialsFile: envDefault("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		CurrentRange:    envDefault("CURRENT_RANGE", "latest!A2:E"),
		SQLitePath:      envDefault("SQLITE_PATH", filepath.Join("data", "features.db")),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     envDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		TLSCertPath:     envDefault("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt")),
		TLSKeyPath:      envDefault("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key")),
		LayerName:       envDefault("LAYER_NAME", "Simulated Parcels"),
		LogLevel:        envDefault("LOG_LEVEL", "info"),
		LogFormat:       envDefault("LOG_FORMAT", "text"),
	}
	// PREVIOUS_RANGE 显式置空时关闭上一快照
	if v, ok := os.LookupEnv("PREVIOUS_RANGE"); ok {
		cfg.PreviousRange = strings.TrimSpace(v)
	} else {
		cfg.PreviousRange = "previous!A2:E"
	}

	cfg.FeatureCacheTTL = cfg.duration("FEATURE_CACHE_TTL", 60*time.Second)
	cfg.InterpretCacheTTL = cfg.duration("INTERPRET_CACHE_TTL", 60*time.Second)
	cfg.InterpretCacheSize = cfg.integer("INTERPRET_CACHE_SIZE", 1024)
	cfg.RateLimitQPS = cfg.float("RATE_LIMIT_QPS", 200)
	cfg.RateLimitBurst = cfg.integer("RATE_LIMIT_BURST", 400)
	cfg.RedisEnable = cfg.boolean("REDIS_ENABLE", false)
	cfg.RateLimitEnabled = cfg.boolean("RATE_LIMIT_ENABLED", false)
	cfg.TLSEnable = cfg.boolean("TLS_ENABLE", false)

	cfg.Categories = splitList(envDefault("INTERPRET_CATEGORIES", "park,garden"))
	cfg.CORSAllowedOrigins = splitList(envDefault("CORS_ALLOWED_ORIGINS", "*"))

	switch cfg.RowSource {
	case SourceSheets:
		if cfg.SheetID == "" {
			return nil, fmt.Errorf("SHEET_ID is required when ROW_SOURCE=%s", SourceSheets)
		}
	case SourcePostgres, SourceSQLite:
	default:
		return nil, fmt.Errorf("unknown ROW_SOURCE %q (want sheets, postgres or sqlite)", cfg.RowSource)
	}
	if cfg.CurrentRange == "" {
		return nil, fmt.Errorf("CURRENT_RANGE must not be empty")
	}
	if cfg.FeatureCacheTTL <= 0 {
		cfg.Warnings = append(cfg.Warnings, "FEATURE_CACHE_TTL <= 0, every query recomputes the feature set")
	}
	if cfg.OpenAIKey == "" {
		cfg.Warnings = append(cfg.Warnings, "OPENAI_API_KEY not set, interpret falls back to keyword matching")
	}
	return cfg, nil
}

func envDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (c *Config) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// 兼容纯数字秒
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	c.Warnings = append(c.Warnings, fmt.Sprintf("%s=%q is not a duration, using %s", key, v, def))
	return def
}

func (c *Config) integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s=%q is not a positive integer, using %d", key, v, def))
		return def
	}
	return n
}

func (c *Config) float(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s=%q is not a positive number, using %g", key, v, def))
		return def
	}
	return f
}

func (c *Config) boolean(key string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	c.Warnings = append(c.Warnings, fmt.Sprintf("%s=%q is not a boolean, using %t", key, v, def))
	return def
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
