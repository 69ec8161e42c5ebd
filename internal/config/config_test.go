package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("ROW_SOURCE", "sqlite")
		cfg, err := LoadFromEnv()
		require.NoError(t, err)

		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, "latest!A2:E", cfg.CurrentRange)
		assert.Equal(t, "previous!A2:E", cfg.PreviousRange)
		assert.Equal(t, 60*time.Second, cfg.FeatureCacheTTL)
		assert.Equal(t, 60*time.Second, cfg.InterpretCacheTTL)
		assert.Equal(t, []string{"park", "garden"}, cfg.Categories)
		assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
		assert.False(t, cfg.RateLimitEnabled)
	})

	t.Run("sheets_requires_sheet_id", func(t *testing.T) {
		t.Setenv("ROW_SOURCE", "sheets")
		t.Setenv("SHEET_ID", "")
		_, err := LoadFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SHEET_ID")
	})

	t.Run("unknown_row_source", func(t *testing.T) {
		t.Setenv("ROW_SOURCE", "excel")
		_, err := LoadFromEnv()
		require.Error(t, err)
	})

	t.Run("empty_previous_range_disables_snapshot", func(t *testing.T) {
		t.Setenv("ROW_SOURCE", "sqlite")
		t.Setenv("PREVIOUS_RANGE", "")
		cfg, err := LoadFromEnv()
		require.NoError(t, err)
		assert.Empty(t, cfg.PreviousRange)
	})

	t.Run("plain_seconds_and_bad_values", func(t *testing.T) {
		t.Setenv("ROW_SOURCE", "sqlite")
		t.Setenv("FEATURE_CACHE_TTL", "15")
		t.Setenv("INTERPRET_CACHE_TTL", "soon")
		t.Setenv("RATE_LIMIT_ENABLED", "maybe")
		t.Setenv("INTERPRET_CACHE_SIZE", "-3")
		cfg, err := LoadFromEnv()
		require.NoError(t, err)

		assert.Equal(t, 15*time.Second, cfg.FeatureCacheTTL)
		assert.Equal(t, 60*time.Second, cfg.InterpretCacheTTL)
		assert.False(t, cfg.RateLimitEnabled)
		assert.Equal(t, 1024, cfg.InterpretCacheSize)
		assert.GreaterOrEqual(t, len(cfg.Warnings), 3)
	})

	t.Run("category_list_is_trimmed", func(t *testing.T) {
		t.Setenv("ROW_SOURCE", "postgres")
		t.Setenv("INTERPRET_CATEGORIES", " park , , lake ")
		cfg, err := LoadFromEnv()
		require.NoError(t, err)
		assert.Equal(t, []string{"park", "lake"}, cfg.Categories)
	})
}
