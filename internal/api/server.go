package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"smart-geo-api/internal/logger"
	"smart-geo-api/internal/metrics"
	"smart-geo-api/internal/middleware"
)

// RouterOptions 路由装配参数
type RouterOptions struct {
	APIBase        string
	AllowedOrigins []string
	// RateLimitQPS <= 0 时不限流
	RateLimitQPS   float64
	RateLimitBurst int
	Logger         *slog.Logger
}

// 文档注释：构建完整路由
// 约束：所有接口挂在 APIBase 之下（为空即根路径）；RequestID 先于访问日志执行。
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	l := opts.Logger
	if l == nil {
		l = logger.L()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(logger.AccessMiddleware(l))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}))
	r.Use(middleware.RateLimit(opts.RateLimitQPS, opts.RateLimitBurst))

	routes := func(r chi.Router) {
		r.Route("/FeatureServer", func(r chi.Router) {
			r.Get("/", h.Service)
			r.Route("/0", func(r chi.Router) {
				r.Get("/", h.Layer)
				r.Get("/query", h.Query)
				r.Post("/query", h.Query)
				r.Post("/interpret", h.Interpret)
			})
		})
		r.Post("/smart-query", h.SmartQuery)
		r.Get("/features", h.Features)
		r.Get("/detect-changes", h.DetectChanges)
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	base := strings.TrimRight(opts.APIBase, "/")
	if base == "" {
		routes(r)
	} else {
		r.Route(base, routes)
	}
	return r
}
