package llm

import "github.com/sandevgo/cuuri/internal/core"

const openRouterURL = "https://openrouter.ai/api"

type OpenRouter struct {
	*OpenAICompatible
}

func NewOpenRouter(cfg OpenAICompatibleConfig) *OpenRouter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = openRouterURL
	}
	cfg.AuthHeader = "Authorization"
	cfg.AuthPrefix = "Bearer "
	cfg.KeyRequired = true
	cfg.ExtraHeaders = map[string]string{
		"HTTP-Referer": core.CuuriRepositoryURL,
		"X-Title":      core.CuuriName,
	}
	return &OpenRouter{OpenAICompatible: NewOpenAICompatible(cfg)}
}
