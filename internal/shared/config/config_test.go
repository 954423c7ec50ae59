package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := load(newViper())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "local", cfg.ObjectStoreType)
	assert.Equal(t, 45*time.Second, cfg.NarrativeTimeout)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, 10, cfg.RateLimitBurst)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSAllowOrigin)
	assert.Empty(t, cfg.APIKeys)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("OBJECT_STORE", "S3")
	t.Setenv("API_KEYS", "alpha, ,beta")
	t.Setenv("NARRATIVE_TIMEOUT", "10s")
	t.Setenv("RATE_LIMIT_RPM", "-4")
	t.Setenv("LLM_PROVIDER", " OpenAI ")

	cfg := load(newViper())
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "s3", cfg.ObjectStoreType)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.APIKeys)
	assert.Equal(t, 10*time.Second, cfg.NarrativeTimeout)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, "openai", cfg.LLMProvider)
}

func TestLoadEnvFileEnvironmentWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9090\nS3_BUCKET=reports-dev\n"), 0o600))
	t.Setenv("PORT", "7070")

	cfg := load(newViper(path))
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "reports-dev", cfg.S3Bucket)
}
