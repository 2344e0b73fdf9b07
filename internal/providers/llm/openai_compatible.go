package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/sandevgo/cuuri/internal/core"
	"github.com/sandevgo/cuuri/pkg/log"
	"github.com/sandevgo/cuuri/pkg/retry"
)

const completionsPath = "/v1/chat/completions"

type OpenAICompatible struct {
	baseProvider
	authHeader   string
	authPrefix   string
	extraHeaders map[string]string
	keyRequired  bool
	retry        *retry.Config
}

type OpenAICompatibleConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	AuthHeader   string // e.g., "Authorization"
	AuthPrefix   string // e.g., "Bearer "
	ExtraHeaders map[string]string
	// KeyRequired rejects requests without a credential before dialing.
	// Local servers usually accept anonymous requests.
	KeyRequired bool

	RequestTimeout time.Duration
	IdleTimeout    time.Duration
	Retry          *retry.Config
	HTTPClient     *http.Client
}

func NewOpenAICompatible(cfg OpenAICompatibleConfig) *OpenAICompatible {
	if cfg.Retry == nil {
		cfg.Retry = retry.NewDefaultConfig()
	}
	return &OpenAICompatible{
		baseProvider: newBaseProvider(cfg),
		authHeader:   cfg.AuthHeader,
		authPrefix:   cfg.AuthPrefix,
		extraHeaders: cfg.ExtraHeaders,
		keyRequired:  cfg.KeyRequired,
		retry:        cfg.Retry,
	}
}

func (o *OpenAICompatible) headers(key string) map[string]string {
	headers := make(map[string]string, len(o.extraHeaders)+1)
	if o.authHeader != "" && key != "" {
		headers[o.authHeader] = o.authPrefix + key
	}
	for k, v := range o.extraHeaders {
		headers[k] = v
	}
	return headers
}

// Stream opens a streaming completion. Opening is retried on transport
// errors, 429 and 5xx; nothing has been decoded at that point, so a retry
// never repeats a fragment.
func (o *OpenAICompatible) Stream(ctx context.Context, req core.CompletionRequest) (core.FrameStream, error) {
	key := req.Credential
	if key == "" {
		key = o.apiKey
	}
	if key == "" && o.keyRequired {
		return nil, fmt.Errorf("open stream: %w", ErrUnauthorized)
	}
	if req.Model == "" {
		req.Model = o.model
	}
	req.Stream = true

	headers := o.headers(key)
	headers["Accept"] = "text/event-stream"

	logger := log.FromCtx(ctx)
	cfg := *o.retry
	cfg.OnRetry = func(attempt int, err error) {
		logger.Warn().Err(err).Int("attempt", attempt).Str("model", req.Model).Msg("retrying completion request")
	}

	var stream *Stream
	err := retry.NewRetrier(&cfg).Do(ctx, func() error {
		reqCtx, cancel := context.WithCancelCause(ctx)
		resp, err := o.doRequest(reqCtx, http.MethodPost, completionsPath, req, headers)
		if err != nil {
			cancel(err)
			if ctx.Err() != nil {
				return retry.Permanent(err)
			}
			return err
		}
		if err := checkStatus(resp); err != nil {
			cancel(err)
			var se *StatusError
			if errors.As(err, &se) && !se.Temporary() {
				return retry.Permanent(err)
			}
			return err
		}
		stream = newStream(reqCtx, cancel, resp.Body, o.idleTimeout)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}

	logger.Debug().Str("model", req.Model).Int("messages", len(req.Messages)).Msg("completion stream opened")
	return stream, nil
}

// Models lists the ids served under /v1/models, sorted.
func (o *OpenAICompatible) Models(ctx context.Context) ([]core.Model, error) {
	resp, err := o.doRequest(ctx, http.MethodGet, "/v1/models", nil, o.headers(o.apiKey))
	if err != nil {
		return nil, fmt.Errorf("fetch models: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("fetch models: %w", err)
	}
	defer resp.Body.Close()

	var apiResp struct {
		Data []struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			ContextLength int    `json:"context_length"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode models response: %w", err)
	}

	models := make([]core.Model, 0, len(apiResp.Data))
	for _, m := range apiResp.Data {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		models = append(models, core.Model{
			ID:            m.ID,
			Name:          name,
			ContextLength: m.ContextLength,
		})
	}
	sortModels(models)
	return models, nil
}

func sortModels(models []core.Model) {
	slices.SortFunc(models, func(a, b core.Model) int {
		return strings.Compare(a.ID, b.ID)
	})
}
