package llm

const openAIURL = "https://api.openai.com"

// OpenAI provider is implemented using OpenAICompatible.
type OpenAI struct {
	*OpenAICompatible
}

// NewOpenAI creates a new OpenAI provider.
func NewOpenAI(cfg OpenAICompatibleConfig) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = openAIURL
	}
	cfg.AuthHeader = "Authorization"
	cfg.AuthPrefix = "Bearer "
	cfg.KeyRequired = true
	return &OpenAI{OpenAICompatible: NewOpenAICompatible(cfg)}
}
