package interpret

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openai/openai-go/option"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywords(t *testing.T) {
	k := NewKeywords([]string{"park", " Garden "})
	ctx := context.Background()
	cases := map[string]string{
		"Show me all parks":                    "type = 'park'",
		"gardens built since 2022":             "type = 'garden' AND year >= 2022",
		"which parks changed after 2021?":      "type = 'park' AND year > 2021 AND change like '%changed%'",
		"parks before 2000":                    "type = 'park' AND year < 2000",
		"gardens in 2019":                      "type = 'garden' AND year = 2019",
		"parks 2020":                           "type = 'park' AND year >= 2020",
		"recently updated features":            "change like '%changed%'",
		"everything please":                    "1=1",
		"parking lots":                         "1=1",
		"features from 12345 with no category": "1=1",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			got, err := k.Interpret(ctx, in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	_, err := k.Interpret(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestCleanClause(t *testing.T) {
	assert.Equal(t, "type = 'park'", cleanClause("  type = 'park'\n"))
	assert.Equal(t, "type = 'park'", cleanClause(`"type = 'park'"`))
	assert.Equal(t, "year > 2020", cleanClause("```sql\nyear > 2020\n```"))
	assert.Equal(t, "year > 2020", cleanClause("`year > 2020`"))
}

// fakeResponses 模拟 Responses API
func fakeResponses(t *testing.T, status int, text string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/responses"))
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "gpt-test", body["model"])
		assert.InDelta(t, 0.2, body["temperature"], 1e-9)

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         "resp_1",
			"object":     "response",
			"created_at": 0,
			"model":      "gpt-test",
			"status":     "completed",
			"output": []any{map[string]any{
				"type":   "message",
				"id":     "msg_1",
				"role":   "assistant",
				"status": "completed",
				"content": []any{map[string]any{
					"type":        "output_text",
					"text":        text,
					"annotations": []any{},
				}},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAI(t *testing.T) {
	ctx := context.Background()

	t.Run("returns_trimmed_clause", func(t *testing.T) {
		var calls atomic.Int32
		srv := fakeResponses(t, http.StatusOK, "  type = 'park' AND year > 2021 \n", &calls)
		o := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/", Model: "gpt-test"}, option.WithMaxRetries(0))
		got, err := o.Interpret(ctx, "Parks after 2021")
		require.NoError(t, err)
		assert.Equal(t, "type = 'park' AND year > 2021", got)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("collaborator_error", func(t *testing.T) {
		var calls atomic.Int32
		srv := fakeResponses(t, http.StatusBadRequest, "", &calls)
		o := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/", Model: "gpt-test"}, option.WithMaxRetries(0))
		_, err := o.Interpret(ctx, "parks")
		require.Error(t, err)
	})

	t.Run("empty_input_skips_call", func(t *testing.T) {
		o := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: "http://127.0.0.1:1/"})
		_, err := o.Interpret(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})
}

type countingInterpreter struct {
	calls atomic.Int32
	err   error
}

func (c *countingInterpreter) Interpret(_ context.Context, text string) (string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	return "type = '" + text + "'", nil
}

func TestCached(t *testing.T) {
	ctx := context.Background()

	t.Run("memory_hit", func(t *testing.T) {
		next := &countingInterpreter{}
		c := NewCached(next, 16, time.Minute, nil)
		a, err := c.Interpret(ctx, "park")
		require.NoError(t, err)
		b, err := c.Interpret(ctx, "  park ")
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Equal(t, int32(1), next.calls.Load())

		c.Purge()
		_, err = c.Interpret(ctx, "park")
		require.NoError(t, err)
		assert.Equal(t, int32(2), next.calls.Load())
	})

	t.Run("errors_not_cached", func(t *testing.T) {
		next := &countingInterpreter{err: errors.New("upstream down")}
		c := NewCached(next, 16, time.Minute, nil)
		_, err := c.Interpret(ctx, "park")
		require.Error(t, err)
		next.err = nil
		got, err := c.Interpret(ctx, "park")
		require.NoError(t, err)
		assert.Equal(t, "type = 'park'", got)
		assert.Equal(t, int32(2), next.calls.Load())
	})

	t.Run("ttl_expiry", func(t *testing.T) {
		next := &countingInterpreter{}
		c := NewCached(next, 16, 20*time.Millisecond, nil)
		_, _ = c.Interpret(ctx, "park")
		require.Eventually(t, func() bool {
			_, _ = c.Interpret(ctx, "park")
			return next.calls.Load() == 2
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NewCached(&countingInterpreter{}, 0, time.Minute, nil).Interpret(ctx, " ")
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})
}

// 需要本地 Redis：REDIS_TEST_ADDR=127.0.0.1:6379
func TestCachedRedisTier(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	key := "redis-tier-" + time.Now().Format("150405.000000")
	t.Cleanup(func() { rdb.Del(ctx, redisKeyPrefix+key) })

	first := &countingInterpreter{}
	_, err := NewCached(first, 16, time.Minute, rdb).Interpret(ctx, key)
	require.NoError(t, err)

	// 新实例 L1 为空，命中 Redis
	second := &countingInterpreter{}
	got, err := NewCached(second, 16, time.Minute, rdb).Interpret(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "type = '"+key+"'", got)
	assert.Equal(t, int32(0), second.calls.Load())
}
