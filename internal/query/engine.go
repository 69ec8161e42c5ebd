// 包 query：要素集合获取（单飞刷新）与 where 子句过滤
package query

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"smart-geo-api/internal/clause"
	"smart-geo-api/internal/feature"
	"smart-geo-api/internal/logger"
	"smart-geo-api/internal/metrics"
	"smart-geo-api/internal/source"
)

// Ranges 当前与上一快照的范围标识；Previous 为空时不读取上一快照
type Ranges struct {
	Current  string
	Previous string
}

// Request 查询输入；OutFields 仅透传给展示层
type Request struct {
	Where     string
	OutFields []string
}

// Result 查询输出，Features 保持快照行序
type Result struct {
	Predicate clause.Predicate
	Features  []feature.Feature
}

// 文档注释：查询编排
// 背景：缓存过期时同一时刻到达的请求只触发一次外部读取并共享结果；等待方被取消不会中断正在进行的刷新。
// 约束：两个范围并行读取，任一失败则本次查询失败（SourceUnavailable）；不做自动重试。
type Engine struct {
	store  *feature.Store
	rows   source.RowSource
	ranges Ranges
	group  singleflight.Group
}

func NewEngine(store *feature.Store, rows source.RowSource, ranges Ranges) *Engine {
	return &Engine{store: store, rows: rows, ranges: ranges}
}

// Features 返回当前要素集合，必要时刷新
func (e *Engine) Features(ctx context.Context) ([]feature.Feature, error) {
	if fs, ok := e.store.Get(); ok {
		metrics.CacheHitsTotal.Inc()
		return fs, nil
	}
	metrics.CacheMissesTotal.Inc()

	ch := e.group.DoChan("refresh", func() (interface{}, error) {
		// 排队期间其他调用可能已完成刷新
		if fs, ok := e.store.Get(); ok {
			return fs, nil
		}
		return e.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]feature.Feature), nil
	}
}

func (e *Engine) refresh(ctx context.Context) ([]feature.Feature, error) {
	start := time.Now()
	metrics.RefreshTotal.Inc()

	var current, previous []feature.Row
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := e.rows.FetchRange(gctx, e.ranges.Current)
		current = rows
		return source.Unavailable(e.ranges.Current, err)
	})
	if e.ranges.Previous != "" {
		g.Go(func() error {
			rows, err := e.rows.FetchRange(gctx, e.ranges.Previous)
			previous = rows
			return source.Unavailable(e.ranges.Previous, err)
		})
	}
	if err := g.Wait(); err != nil {
		metrics.RefreshFailTotal.Inc()
		logger.L().Error("feature_refresh_fail", "err", err)
		return nil, err
	}

	fs := e.store.Refresh(current, previous)
	ms := time.Since(start).Milliseconds()
	metrics.RefreshDurationMs.Observe(float64(ms))
	logger.L().Info("feature_refresh_done",
		"current", len(current), "previous", len(previous), "features", len(fs),
		"changed", len(feature.Changed(fs)), "malformed", feature.Malformed(fs), "ms", ms)
	return fs, nil
}

// Query 解析 where 并按行序返回命中要素
func (e *Engine) Query(ctx context.Context, req Request) (*Result, error) {
	fs, err := e.Features(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	p := clause.Parse(req.Where)
	matched := clause.Filter(p, fs)
	metrics.QueryDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	metrics.QueryMatches.Observe(float64(len(matched)))
	logger.L().Debug("query_done", "where", req.Where, "predicate", p.String(), "matched", len(matched), "total", len(fs))
	return &Result{Predicate: p, Features: matched}, nil
}

// Changes 返回带变化标注的要素
func (e *Engine) Changes(ctx context.Context) ([]feature.Feature, error) {
	fs, err := e.Features(ctx)
	if err != nil {
		return nil, err
	}
	return feature.Changed(fs), nil
}

// Invalidate 丢弃缓存，下次查询重新读取
func (e *Engine) Invalidate() {
	e.store.Invalidate()
}
