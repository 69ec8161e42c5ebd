package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000}

var (
	QueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "featureserver_queries_total",
		Help: "Total number of feature queries by endpoint",
	}, []string{"endpoint"})
	QueryDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "featureserver_query_duration_ms",
		Help:    "Query duration in milliseconds (parse + filter, excluding refresh)",
		Buckets: durationBuckets,
	})
	QueryMatches = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "featureserver_query_matches",
		Help:    "Number of features matched per query",
		Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "featureserver_cache_hits_total",
		Help: "Feature set served from the fresh cache entry",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "featureserver_cache_misses_total",
		Help: "Feature set lookups that found no fresh cache entry",
	})
	RefreshTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "featureserver_refresh_total",
		Help: "Total feature set recomputations",
	})
	RefreshFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "featureserver_refresh_fail_total",
		Help: "Recomputations aborted by a row source failure",
	})
	RefreshDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "featureserver_refresh_duration_ms",
		Help:    "Fetch + annotate duration in milliseconds",
		Buckets: durationBuckets,
	})
	FeaturesGeometryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "featureserver_features_geometry_total",
		Help: "Decoded features by geometry outcome (ok, malformed, unsupported, corrupt)",
	}, []string{"outcome"})
	InterpretRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "featureserver_interpret_requests_total",
		Help: "Total natural-language interpret requests",
	})
	InterpretCacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "featureserver_interpret_cache_hits_total",
		Help: "Interpret cache hits by tier",
	}, []string{"tier"})
	InterpretFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "featureserver_interpret_fail_total",
		Help: "Interpret collaborator failures",
	})
	InterpretDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "featureserver_interpret_duration_ms",
		Help:    "Interpret collaborator call duration in milliseconds",
		Buckets: durationBuckets,
	})
)

func init() {
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDurationMs)
	prometheus.MustRegister(QueryMatches)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(RefreshTotal)
	prometheus.MustRegister(RefreshFailTotal)
	prometheus.MustRegister(RefreshDurationMs)
	prometheus.MustRegister(FeaturesGeometryTotal)
	prometheus.MustRegister(InterpretRequestsTotal)
	prometheus.MustRegister(InterpretCacheHitsTotal)
	prometheus.MustRegister(InterpretFailTotal)
	prometheus.MustRegister(InterpretDurationMs)
}

// 文档注释：返回 Prometheus 指标处理器，由主入口挂载到 <API_BASE>/metrics
func Handler() http.Handler { return promhttp.Handler() }
