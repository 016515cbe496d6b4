package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "claims.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "local", cfg.OCR.Provider)
	assert.Equal(t, []string{"anthropic", "ollama"}, cfg.LLM.Providers)
	assert.False(t, cfg.LLM.Disabled)
	assert.Equal(t, 120, cfg.LLM.TimeoutSecs)
	assert.Equal(t, 4, cfg.Pipeline.MaxConcurrentExtractions)
	assert.Equal(t, 3, cfg.Pipeline.SnippetLimit)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CLAIMS_STORE_DRIVER", "postgres")
	t.Setenv("CLAIMS_STORE_DATABASE_URL", "postgres://localhost/claims")
	t.Setenv("CLAIMS_LLM_DISABLED", "true")
	t.Setenv("CLAIMS_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/claims", cfg.Store.DatabaseURL)
	assert.True(t, cfg.LLM.Disabled)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	yaml := []byte(`
store:
  driver: sqlite
  database_url: /tmp/other.db
ocr:
  provider: mistral
  mistral_api_key: test-key
pipeline:
  snippet_limit: 5
`)
	require.NoError(t, os.WriteFile("config.yaml", yaml, 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/other.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "mistral", cfg.OCR.Provider)
	assert.Equal(t, "test-key", cfg.OCR.MistralKey)
	assert.Equal(t, 5, cfg.Pipeline.SnippetLimit)
	// Untouched settings keep their defaults.
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "verbose", Format: "json"})
	require.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
}
