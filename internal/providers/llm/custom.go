package llm

type CustomOpenAI struct {
	*OpenAICompatible
}

func NewCustomOpenAI(cfg OpenAICompatibleConfig) *CustomOpenAI {
	cfg.AuthHeader = "Authorization"
	cfg.AuthPrefix = "Bearer "
	return &CustomOpenAI{OpenAICompatible: NewOpenAICompatible(cfg)}
}
