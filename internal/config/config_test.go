package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 500, cfg.GuardrailMaxInput)
	assert.Equal(t, "WEB001", cfg.DefaultProjectID)
	assert.Equal(t, 5, cfg.CatalogResultLimit)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("USE_MEMORY_QUEUE", "true")
	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("BEDROCK_GUARDRAIL_MODEL_ID", "anthropic.claude-3-haiku")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.UseMemoryQueue)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "anthropic.claude-3-haiku", cfg.BedrockGuardrailModelID)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("WORKER_COUNT", "many")
	t.Setenv("SESSION_TTL", "soon")
	t.Setenv("REDIS_TLS", "yep")

	cfg := Load()

	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.RedisTLS)
}
