package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, 5, cfg.Aggregator.MaxWorkers)
	assert.Equal(t, 30*time.Second, cfg.Aggregator.SourceTimeout)
	assert.Equal(t, 5, cfg.Hunt.BatchSize)
	assert.Equal(t, []string{"hackernews", "reddit_rss"}, cfg.Sources.Enabled)
	assert.Equal(t, 2048, cfg.Cache.Size)
}

func TestLoadOverridesFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("AGGREGATOR_MAX_WORKERS", "12")
	t.Setenv("AGGREGATOR_SOURCE_TIMEOUT", "5s")
	t.Setenv("SOURCES_ENABLED", "hackernews,github,stackoverflow")
	t.Setenv("NATS_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 12, cfg.Aggregator.MaxWorkers)
	assert.Equal(t, 5*time.Second, cfg.Aggregator.SourceTimeout)
	assert.Equal(t, []string{"hackernews", "github", "stackoverflow"}, cfg.Sources.Enabled)
	assert.True(t, cfg.NATS.Enabled)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("HUNT_BACKOFF_INITIAL", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.Hunt.BackoffInitial)
}

func TestValidateRequiresLLMKeyOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestValidateRequiresTwitterToken(t *testing.T) {
	t.Setenv("SOURCES_ENABLED", "twitter")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TWITTER_BEARER_TOKEN")
}
