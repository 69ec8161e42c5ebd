package feature

import (
	"sync"
	"time"
)

// DefaultTTL 要素集合的新鲜窗口
const DefaultTTL = 60 * time.Second

type entry struct {
	computedAt time.Time
	features   []Feature
}

// 文档注释：要素缓存（单条目，惰性失效）
// 背景：构建要素需要两次远端读取与逐要素几何运算，在新鲜窗口内复用上次结果。
// 约束：过期后不主动刷新，由调用方取数后调用 Refresh；读写经 RWMutex 同步，但并发刷新的去重由调用方负责。
type Store struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	entry *entry
}

type Option func(*Store)

// WithClock 注入时钟，测试用
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore ttl <= 0 时每次 Get 都视为过期
func NewStore(ttl time.Duration, opts ...Option) *Store {
	s := &Store{ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get 返回新鲜窗口内的要素集合；返回切片只读
func (s *Store) Get() ([]Feature, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entry == nil || s.ttl <= 0 {
		return nil, false
	}
	if s.now().Sub(s.entry.computedAt) >= s.ttl {
		return nil, false
	}
	return s.entry.features, true
}

// Refresh 重新构建并替换缓存条目
func (s *Store) Refresh(current, previous []Row) []Feature {
	fs := Build(current, previous)
	s.mu.Lock()
	s.entry = &entry{computedAt: s.now(), features: fs}
	s.mu.Unlock()
	return fs
}

// Invalidate 丢弃当前条目
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.entry = nil
	s.mu.Unlock()
}

// ComputedAt 返回当前条目的计算时间
func (s *Store) ComputedAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entry == nil {
		return time.Time{}, false
	}
	return s.entry.computedAt, true
}

func (s *Store) TTL() time.Duration { return s.ttl }
