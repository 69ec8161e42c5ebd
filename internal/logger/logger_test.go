package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestSetupWithJSON(t *testing.T) {
	var buf bytes.Buffer
	l := SetupWith(&buf, "info", "json")
	t.Cleanup(func() { SetupWith(&bytes.Buffer{}, "error", "text") })
	assert.Same(t, l, L())

	l.Debug("hidden")
	l.Info("feature_refresh_done", "features", 3)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "feature_refresh_done", rec["msg"])
	assert.EqualValues(t, 3, rec["features"])
}

func TestAccessMiddleware(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := chimw.RequestID(AccessMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("down"))
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/FeatureServer/0/query", nil))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "http_access", rec["msg"])
	assert.Equal(t, "WARN", rec["level"])
	assert.EqualValues(t, 503, rec["status"])
	assert.EqualValues(t, 4, rec["bytes"])
	assert.NotEmpty(t, rec["req_id"])
}
