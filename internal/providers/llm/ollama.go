package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sandevgo/cuuri/internal/core"
)

const ollamaContextLength = 32768

type Ollama struct {
	*OpenAICompatible
}

func NewOllama(cfg OpenAICompatibleConfig) *Ollama {
	cfg.AuthHeader = "Authorization"
	cfg.AuthPrefix = "Bearer "
	return &Ollama{OpenAICompatible: NewOpenAICompatible(cfg)}
}

// Models lists locally pulled models via the native tags endpoint.
func (o *Ollama) Models(ctx context.Context) ([]core.Model, error) {
	type ollamaTag struct {
		Name string `json:"name"`
	}
	type ollamaResponse struct {
		Models []ollamaTag `json:"models"`
	}

	resp, err := o.doRequest(ctx, http.MethodGet, "/api/tags", nil, o.headers(o.apiKey))
	if err != nil {
		return nil, fmt.Errorf("ollama not available: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()

	var result ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}

	models := make([]core.Model, 0, len(result.Models))
	for _, m := range result.Models {
		models = append(models, core.Model{
			ID:            m.Name,
			Name:          m.Name,
			ContextLength: ollamaContextLength,
		})
	}
	sortModels(models)
	return models, nil
}
