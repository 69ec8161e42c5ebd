// 程序入口：仅负责读取配置、初始化依赖并启动服务；路由注册在 internal/api
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smart-geo-api/internal/api"
	"smart-geo-api/internal/config"
	"smart-geo-api/internal/feature"
	"smart-geo-api/internal/interpret"
	"smart-geo-api/internal/logger"
	"smart-geo-api/internal/query"
	"smart-geo-api/internal/source"
	"smart-geo-api/internal/utils"

	"github.com/redis/go-redis/v9"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Setup().Error("config_error", "err", err)
		os.Exit(1)
	}
	l := logger.SetupWith(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	l.Debug("log_init_ok")
	for _, w := range cfg.Warnings {
		l.Warn("config_warning", "msg", w)
	}
	l.Debug("config_api_base", "base", cfg.APIBase)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rows, closeRows, err := source.Open(ctx, source.OpenOptions{
		Kind:            cfg.RowSource,
		SheetID:         cfg.SheetID,
		CredentialsFile: cfg.CredentialsFile,
		SQLitePath:      cfg.SQLitePath,
	})
	if err != nil {
		l.Error("row_source_open_error", "kind", cfg.RowSource, "err", err)
		os.Exit(1)
	}
	defer closeRows()
	l.Info("row_source_open_ok", "kind", cfg.RowSource, "current", cfg.CurrentRange, "previous", cfg.PreviousRange)

	// Redis 不可用时降级为仅进程内缓存
	var rdb *redis.Client
	if cfg.RedisEnable {
		if rdb, err = utils.OpenRedisFromEnv(ctx); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			defer rdb.Close()
			l.Info("redis_ping_ok")
		}
	} else {
		l.Info("redis_disabled")
	}

	store := feature.NewStore(cfg.FeatureCacheTTL)
	engine := query.NewEngine(store, rows, query.Ranges{Current: cfg.CurrentRange, Previous: cfg.PreviousRange})

	var interp interpret.Interpreter
	if cfg.OpenAIKey != "" {
		interp = interpret.NewOpenAI(interpret.OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
		l.Info("interpreter_openai", "model", cfg.OpenAIModel)
	} else {
		interp = interpret.NewKeywords(cfg.Categories)
		l.Info("interpreter_keywords", "categories", cfg.Categories)
	}
	interp = interpret.NewCached(interp, cfg.InterpretCacheSize, cfg.InterpretCacheTTL, rdb)

	opts := api.RouterOptions{
		APIBase:        cfg.APIBase,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         l,
	}
	if cfg.RateLimitEnabled {
		opts.RateLimitQPS = cfg.RateLimitQPS
		opts.RateLimitBurst = cfg.RateLimitBurst
		l.Info("rate_limit_enabled", "qps", cfg.RateLimitQPS, "burst", cfg.RateLimitBurst)
	}
	router := api.NewRouter(api.NewHandler(engine, interp, cfg.LayerName), opts)

	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if cfg.TLSEnable {
			if err := utils.EnsureSelfSignedCert(cfg.TLSCertPath, cfg.TLSKeyPath, "smart-geo-api.local"); err != nil {
				errCh <- err
				return
			}
			l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLSCertPath)
			errCh <- s.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
			return
		}
		l.Info("listening", "addr", cfg.Addr)
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("server_error", "err", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		l.Info("shutdown_begin")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(sctx); err != nil {
			l.Error("shutdown_error", "err", err)
		}
		l.Info("shutdown_done")
	}
}
