package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-geo-api/internal/feature"
	"smart-geo-api/internal/geometry"
	"smart-geo-api/internal/source"
)

const (
	sq    = `{"type":"Polygon","coordinates":[[[0,0],[0.001,0],[0.001,0.001],[0,0.001],[0,0]]]}`
	grown = `{"type":"Polygon","coordinates":[[[0,0],[0.001,0],[0.001,0.001152],[0,0.001152],[0,0]]]}`
)

// mockSource 按范围返回固定行并统计读取次数
type mockSource struct {
	rows    map[string][]feature.Row
	err     error
	fetches atomic.Int32
	gate    chan struct{} // 非空时读取阻塞到关闭
	ctxErrs atomic.Int32
}

func (m *mockSource) FetchRange(ctx context.Context, rangeID string) ([]feature.Row, error) {
	m.fetches.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	if ctx.Err() != nil {
		m.ctxErrs.Add(1)
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.rows[rangeID], nil
}

var ranges = Ranges{Current: "latest!A2:E", Previous: "previous!A2:E"}

func fixture() *mockSource {
	return &mockSource{rows: map[string][]feature.Row{
		"latest!A2:E": {
			{ID: "1", Name: "Central Park", Geometry: grown, Category: "park", Year: 2021, HasYear: true},
			{ID: "2", Name: "Rose Garden", Geometry: sq, Category: "garden", Year: 2019, HasYear: true},
			{ID: "3", Name: "Broken", Geometry: `{}`, Category: "park", Year: 2022, HasYear: true},
			{ID: "4", Name: "Old Park", Geometry: sq, Category: "Park", Year: 2020, HasYear: true},
		},
		"previous!A2:E": {
			{ID: "1", Geometry: sq},
			{ID: "2", Geometry: sq},
		},
	}}
}

func ids(fs []feature.Feature) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.ID
	}
	return out
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(feature.NewStore(feature.DefaultTTL), fixture(), ranges)

	cases := []struct {
		where string
		want  []string
	}{
		{"", []string{"1", "2", "3", "4"}},
		{"1=1", []string{"1", "2", "3", "4"}},
		{"1=1 AND type = 'garden'", []string{"1", "2", "3", "4"}},
		{"type = 'Park' AND year > 2020", []string{"1", "3"}},
		{"type = 'park' AND year > 2019 year < 2022", []string{"1", "4"}},
		{"change like '%15%'", []string{"1"}},
		{"change like '%4.0%'", []string{}},
		{"type = 'lake'", []string{}},
		{"this is not a clause", []string{"1", "2", "3", "4"}},
	}
	for _, tc := range cases {
		t.Run(tc.where, func(t *testing.T) {
			res, err := e.Query(ctx, Request{Where: tc.where})
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(res.Features))
		})
	}
}

func TestMalformedGeometryRetained(t *testing.T) {
	e := NewEngine(feature.NewStore(feature.DefaultTTL), fixture(), ranges)
	res, err := e.Query(context.Background(), Request{Where: "type = 'park' AND year = 2022"})
	require.NoError(t, err)
	require.Len(t, res.Features, 1)
	f := res.Features[0]
	assert.Equal(t, "Broken", f.Name)
	assert.ErrorIs(t, f.GeometryErr, geometry.ErrMalformedGeometry)
	assert.False(t, geometry.Usable(f.Geometry))
}

func TestChanges(t *testing.T) {
	e := NewEngine(feature.NewStore(feature.DefaultTTL), fixture(), ranges)
	fs, err := e.Changes(context.Background())
	require.NoError(t, err)
	require.Len(t, fs, 1)
	assert.Equal(t, "1", fs[0].ID)
	assert.Equal(t, "Area changed by 15.2%", fs[0].Change.Text)
}

func TestSingleFlightRefresh(t *testing.T) {
	src := fixture()
	src.gate = make(chan struct{})
	e := NewEngine(feature.NewStore(feature.DefaultTTL), src, ranges)

	const n = 32
	var wg sync.WaitGroup
	results := make([]int, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.Query(context.Background(), Request{Where: "1=1"})
			errs[i] = err
			if err == nil {
				results[i] = len(res.Features)
			}
		}(i)
	}
	// 等待至少一次读取开始后放行
	require.Eventually(t, func() bool { return src.fetches.Load() > 0 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 4, results[i])
	}
	// 当前 + 上一快照各读取一次
	assert.Equal(t, int32(2), src.fetches.Load())

	_, err := e.Query(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.fetches.Load(), "served from cache")
}

func TestWaiterCancellationDoesNotAbortRefresh(t *testing.T) {
	src := fixture()
	src.gate = make(chan struct{})
	e := NewEngine(feature.NewStore(feature.DefaultTTL), src, ranges)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := e.Features(ctx)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return src.fetches.Load() > 0 }, time.Second, time.Millisecond)

	secondDone := make(chan []feature.Feature, 1)
	go func() {
		fs, err := e.Features(context.Background())
		assert.NoError(t, err)
		secondDone <- fs
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(src.gate)
	fs := <-secondDone
	assert.Len(t, fs, 4)
	assert.Equal(t, int32(0), src.ctxErrs.Load())
}

func TestSourceUnavailable(t *testing.T) {
	src := fixture()
	src.err = errors.New("quota exceeded")
	e := NewEngine(feature.NewStore(feature.DefaultTTL), src, ranges)

	_, err := e.Query(context.Background(), Request{Where: "1=1"})
	require.Error(t, err)
	assert.True(t, source.IsUnavailable(err))

	var ue *source.UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, []string{ranges.Current, ranges.Previous}, ue.Range)

	// 失败不写缓存，恢复后可再次读取
	src.err = nil
	res, err := e.Query(context.Background(), Request{})
	require.NoError(t, err)
	assert.Len(t, res.Features, 4)
}

func TestNoPreviousRange(t *testing.T) {
	src := fixture()
	e := NewEngine(feature.NewStore(feature.DefaultTTL), src, Ranges{Current: ranges.Current})
	fs, err := e.Changes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fs)
	assert.Equal(t, int32(1), src.fetches.Load())
}

func TestExpiryTriggersRefetch(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time { mu.Lock(); defer mu.Unlock(); return now }
	src := fixture()
	e := NewEngine(feature.NewStore(time.Minute, feature.WithClock(clock)), src, ranges)

	_, err := e.Features(context.Background())
	require.NoError(t, err)
	_, err = e.Features(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.fetches.Load())

	mu.Lock()
	now = now.Add(time.Minute)
	mu.Unlock()
	_, err = e.Features(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(4), src.fetches.Load())

	e.Invalidate()
	_, err = e.Features(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(6), src.fetches.Load())
}
