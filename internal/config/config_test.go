package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewProviderConfig_Defaults(t *testing.T) {
	unsetEnv(t, "LLM_PROVIDER", "LLM_MODEL", "REQUEST_TIMEOUT", "STREAM_IDLE_TIMEOUT")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := NewProviderConfig(context.Background())

	assert.Equal(t, ProviderOpenAI, cfg.GetProvider())
	assert.Equal(t, "gpt-4o-mini", cfg.GetModel())
	assert.Equal(t, "sk-test", cfg.GetAPIKey())
	assert.Equal(t, "OPENAI_API_KEY", cfg.APIKeyEnv())
	assert.Equal(t, 30*time.Second, cfg.GetRequestTimeout())
	assert.Equal(t, time.Minute, cfg.GetStreamIdleTimeout())
}

func TestProviderConfig_GetAPIKey(t *testing.T) {
	cfg := ProviderConfig{
		OpenAIAPIKey:        "openai",
		OpenRouterAPIKey:    "router",
		OllamaAPIKey:        "ollama",
		CustomOpenAIAPIKey:  "custom",
		OllamaBaseURL:       "http://localhost:11434",
		CustomOpenAIBaseURL: "http://llm.lan",
	}

	tests := []struct {
		provider string
		wantKey  string
		wantURL  string
	}{
		{ProviderOpenAI, "openai", ""},
		{ProviderOpenRouter, "router", ""},
		{ProviderOllama, "ollama", "http://localhost:11434"},
		{ProviderCustom, "custom", "http://llm.lan"},
		{"unknown", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			c := cfg
			c.Provider = tt.provider
			assert.Equal(t, tt.wantKey, c.GetAPIKey())
			assert.Equal(t, tt.wantURL, c.GetBaseURL())
		})
	}
}

func TestNewAppConfig_ResolvesRuntimePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	unsetEnv(t, "CUURI_RUNTIME_PATH", "CONTEXT_MAX_EXCHANGES", "ENABLE_CLI", "ENABLE_TELEGRAM")

	cfg := NewAppConfig(context.Background())

	assert.Equal(t, filepath.Join(home, ".cuuri"), cfg.GetRuntimePath())
	assert.Equal(t, filepath.Join(home, ".cuuri", "chat.db"), cfg.GetDatabasePath())
	assert.Equal(t, filepath.Join(home, ".cuuri", ".env"), cfg.GetEnvPath())
	assert.Equal(t, GetRuntimePath(), cfg.GetRuntimePath())
	assert.Equal(t, 20, cfg.ContextMaxExchanges)
	assert.True(t, cfg.IsCLISelected())
	assert.False(t, cfg.IsTelegramSelected())
}

func TestNewAppConfig_AbsoluteRuntimePath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CUURI_RUNTIME_PATH", dir)

	cfg := NewAppConfig(context.Background())
	assert.Equal(t, dir, cfg.GetRuntimePath())
}

// unsetEnv removes keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestParseProviderConfig(t *testing.T) {
	cfg, err := ParseProviderConfig(map[string]string{
		"LLM_PROVIDER":    ProviderOllama,
		"LLM_MODEL":       "llama3.2",
		"OLLAMA_BASE_URL": "http://gpu.lan:11434",
	})
	assert.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.GetProvider())
	assert.Equal(t, "llama3.2", cfg.GetModel())
	assert.Equal(t, "http://gpu.lan:11434", cfg.GetBaseURL())
	assert.Equal(t, 30*time.Second, cfg.GetRequestTimeout())

	_, err = ParseProviderConfig(map[string]string{"REQUEST_TIMEOUT": "soon"})
	assert.Error(t, err)
}
