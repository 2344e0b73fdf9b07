package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sandevgo/cuuri/internal/core"
	"github.com/sandevgo/cuuri/pkg/log"
	"github.com/sandevgo/cuuri/pkg/sse"
)

type state string

const (
	stateBuildingContext state = "building_context"
	stateRequesting      state = "requesting"
	stateStreaming       state = "streaming"
	statePersisting      state = "persisting"
	stateDone            state = "done"
)

type Orchestrator struct {
	store   core.ExchangeStore
	client  core.CompletionClient
	counter TokenCounter
	budget  ContextBudget
	now     func() time.Time
}

type Option func(*Orchestrator)

func WithBudget(b ContextBudget) Option {
	return func(o *Orchestrator) { o.budget = b }
}

func WithTokenCounter(c TokenCounter) Option {
	return func(o *Orchestrator) { o.counter = c }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(store core.ExchangeStore, client core.CompletionClient, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:   store,
		client:  client,
		counter: EstimateCounter{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit runs one exchange: it builds the context from the session history,
// streams the completion into sink and persists the finished answer.
//
// Fragments already delivered to sink are never retracted. A partial answer
// is never persisted. Once persistence has started it runs to completion
// even if ctx is cancelled.
func (o *Orchestrator) Submit(ctx context.Context, req core.SubmitRequest, sink core.TokenSink) (core.Answer, error) {
	if sink == nil {
		sink = core.Discard
	}
	if err := validate(req); err != nil {
		return core.Answer{}, newError(KindRequestFailed, err, core.Answer{})
	}

	ctx = log.WithFields(ctx, map[string]any{
		"session": req.SessionID,
		"model":   req.Model,
	})
	logger := log.FromCtx(ctx)

	// BuildingContext
	logger.Debug().Str("state", string(stateBuildingContext)).Msg("submit")
	history, err := o.store.History(ctx, req.SessionID, o.budget.MaxExchanges)
	if err != nil {
		logger.Error().Err(err).Msg("failed to fetch history")
		return core.Answer{}, newError(KindHistoryFetchFailed, fmt.Errorf("fetch history: %w", err), core.Answer{})
	}
	input := core.UserInput{Text: req.Text, Images: req.Images}
	kept := TrimHistory(history, input, o.budget, o.counter)
	if dropped := len(history) - len(kept); dropped > 0 {
		logger.Debug().Int("dropped", dropped).Msg("history trimmed to budget")
	}
	messages := BuildContext(kept, input)

	// Requesting
	logger.Debug().Str("state", string(stateRequesting)).Int("messages", len(messages)).Msg("submit")
	stream, err := o.client.Stream(ctx, core.CompletionRequest{
		Model:      req.Model,
		Messages:   messages,
		Credential: req.Credential,
	})
	if err != nil {
		logger.Error().Err(err).Msg("completion request failed")
		return core.Answer{}, newError(KindRequestFailed, err, core.Answer{})
	}
	defer stream.Close()

	// Streaming
	logger.Debug().Str("state", string(stateStreaming)).Msg("submit")
	var (
		answer     strings.Builder
		fragments  int
		skipped    int
		sinkErrors int
	)
	partial := func() core.Answer {
		return core.Answer{Text: answer.String(), Fragments: fragments}
	}

	for done := false; !done; {
		if err := ctx.Err(); err != nil {
			logger.Warn().Err(err).Int("fragments", fragments).Msg("stream cancelled")
			return partial(), newError(KindStreamInterrupted, err, partial())
		}

		frame, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// a stream that ends without its terminal frame is truncated
				err = io.ErrUnexpectedEOF
			}
			logger.Warn().Err(err).Int("fragments", fragments).Msg("stream interrupted")
			return partial(), newError(KindStreamInterrupted, fmt.Errorf("read stream: %w", err), partial())
		}

		switch frame.Kind {
		case sse.Delta:
			answer.WriteString(frame.Content)
			fragments++
			if err := sink.Receive(ctx, frame.Content); err != nil {
				if sinkErrors == 0 {
					logger.Warn().Err(err).Msg("token sink failed, continuing stream")
				}
				sinkErrors++
			}
		case sse.Unparseable:
			skipped++
			logger.Debug().Int("skipped", skipped).Msg("skipping unparseable frame")
		case sse.Done:
			done = true
		}
	}

	// Persisting
	result := core.Answer{
		Text:      answer.String(),
		CreatedAt: o.now().UTC(),
		Fragments: fragments,
	}
	summary := logger.With().
		Int("fragments", fragments).
		Int("skipped", skipped).
		Int("sink_errors", sinkErrors).
		Int("chars", len(result.Text)).
		Logger()

	if result.Text == "" {
		summary.Info().Msg("empty answer, nothing to persist")
		return result, nil
	}

	summary.Debug().Str("state", string(statePersisting)).Msg("submit")
	stored, err := o.store.Append(context.WithoutCancel(ctx), core.Exchange{
		SessionID: req.SessionID,
		Question:  req.Text,
		Answer:    result.Text,
		CreatedAt: result.CreatedAt,
	})
	if err != nil {
		summary.Error().Err(err).Msg("answer produced but not saved")
		return result, newError(KindPersistenceFailed, fmt.Errorf("append exchange: %w", err), result)
	}

	result.CreatedAt = stored.CreatedAt
	result.Saved = true
	summary.Info().Str("state", string(stateDone)).Int64("exchange_id", stored.ID).Msg("exchange saved")
	return result, nil
}

func validate(req core.SubmitRequest) error {
	switch {
	case req.SessionID == "":
		return fmt.Errorf("%w: empty session id", ErrInvalidInput)
	case strings.TrimSpace(req.Text) == "":
		return fmt.Errorf("%w: empty text", ErrInvalidInput)
	case req.Model == "":
		return fmt.Errorf("%w: empty model", ErrInvalidInput)
	}
	return nil
}
