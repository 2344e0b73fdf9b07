package llm

import (
	"context"
	"fmt"

	"github.com/sandevgo/cuuri/internal/config"
	"github.com/sandevgo/cuuri/internal/core"
	"github.com/sandevgo/cuuri/pkg/log"
)

// NewProvider creates the appropriate AIProvider based on configuration.
func NewProvider(ctx context.Context, cfg core.ProviderConfig) (core.AIProvider, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.GetProvider()).
		Str("model", cfg.GetModel()).
		Msg("starting llm provider")

	base := OpenAICompatibleConfig{
		BaseURL:        cfg.GetBaseURL(),
		APIKey:         cfg.GetAPIKey(),
		Model:          cfg.GetModel(),
		RequestTimeout: cfg.GetRequestTimeout(),
		IdleTimeout:    cfg.GetStreamIdleTimeout(),
	}

	switch cfg.GetProvider() {
	case config.ProviderOpenAI:
		return NewOpenAI(base), nil
	case config.ProviderOpenRouter:
		return NewOpenRouter(base), nil
	case config.ProviderOllama:
		return NewOllama(base), nil
	case config.ProviderCustom:
		if base.BaseURL == "" {
			return nil, fmt.Errorf("custom provider requires CUSTOM_OPENAI_BASE_URL")
		}
		return NewCustomOpenAI(base), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.GetProvider())
	}
}
