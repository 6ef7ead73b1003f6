package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RESEARCH_PROVIDER_TIMEOUT", "")
	t.Setenv("RESEARCH_MAX_ACTIVE_TASKS", "not-a-number")

	cfg := Load()

	assert.Equal(t, 5, cfg.Research.DefaultMaxSearches)
	assert.Equal(t, 4, cfg.Research.MaxActiveTasks)
	assert.Equal(t, 30*time.Second, cfg.Research.ProviderTimeout)
	assert.Equal(t, 120*time.Second, cfg.Research.SynthesisTimeout)
	assert.Equal(t, time.Hour, cfg.Research.TaskTTL)
	assert.Equal(t, 5*time.Minute, cfg.Stats.InsightsCacheTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("RESEARCH_PROVIDER_TIMEOUT", "45")
	t.Setenv("RESEARCH_TASK_TTL", "10m")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("INSIGHTS_CACHE_TTL", "90s")
	t.Setenv("GO_ENV", "production")

	cfg := Load()

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "ollama", cfg.Ai.LLMProvider)
	assert.Equal(t, 45*time.Second, cfg.Research.ProviderTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Research.TaskTTL)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 90*time.Second, cfg.Stats.InsightsCacheTTL)
	assert.True(t, cfg.App.IsProduction())
}
