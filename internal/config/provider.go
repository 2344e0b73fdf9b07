package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/cuuri/pkg/log"
)

const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderCustom     = "custom"
)

type ProviderConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"openai"`
	Model    string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`

	OpenAIAPIKey        string `env:"OPENAI_API_KEY"`
	OpenRouterAPIKey    string `env:"OPENROUTER_API_KEY"`
	OllamaBaseURL       string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	OllamaAPIKey        string `env:"OLLAMA_API_KEY"`
	CustomOpenAIBaseURL string `env:"CUSTOM_OPENAI_BASE_URL"`
	CustomOpenAIAPIKey  string `env:"CUSTOM_OPENAI_API_KEY"`

	// RequestTimeout bounds the wait for response headers only; the body is
	// governed by StreamIdleTimeout.
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	StreamIdleTimeout time.Duration `env:"STREAM_IDLE_TIMEOUT" envDefault:"60s"`
}

func NewProviderConfig(ctx context.Context) *ProviderConfig {
	c := &ProviderConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Provider config")
	}
	return c
}

func (c ProviderConfig) GetProvider() string {
	return c.Provider
}

func (c ProviderConfig) GetModel() string {
	return c.Model
}

// GetAPIKey returns the credential of the selected provider.
func (c ProviderConfig) GetAPIKey() string {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderOpenRouter:
		return c.OpenRouterAPIKey
	case ProviderOllama:
		return c.OllamaAPIKey
	case ProviderCustom:
		return c.CustomOpenAIAPIKey
	default:
		return ""
	}
}

// APIKeyEnv returns the variable name holding the selected provider's key.
func (c ProviderConfig) APIKeyEnv() string {
	switch c.Provider {
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	case ProviderOllama:
		return "OLLAMA_API_KEY"
	case ProviderCustom:
		return "CUSTOM_OPENAI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

func (c ProviderConfig) GetBaseURL() string {
	switch c.Provider {
	case ProviderOllama:
		return c.OllamaBaseURL
	case ProviderCustom:
		return c.CustomOpenAIBaseURL
	default:
		return ""
	}
}

func (c ProviderConfig) GetRequestTimeout() time.Duration {
	return c.RequestTimeout
}

func (c ProviderConfig) GetStreamIdleTimeout() time.Duration {
	return c.StreamIdleTimeout
}

// ParseProviderConfig reads the provider settings from vars instead of the
// process environment. Defaults apply to missing keys.
func ParseProviderConfig(vars map[string]string) (*ProviderConfig, error) {
	c := &ProviderConfig{}
	if err := env.ParseWithOptions(c, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse provider config: %w", err)
	}
	return c, nil
}
