package core

import (
	"context"

	"github.com/sandevgo/cuuri/pkg/sse"
)

// FrameStream is an open completion stream. Next returns io.EOF after the
// terminal frame.
type FrameStream interface {
	Next() (sse.Frame, error)
	Close() error
}

type CompletionClient interface {
	Stream(ctx context.Context, req CompletionRequest) (FrameStream, error)
}

type ModelLister interface {
	Models(ctx context.Context) ([]Model, error)
}

// TokenSink receives content fragments in arrival order. Delivery is best
// effort: a failing sink never stops the stream.
type TokenSink interface {
	Receive(ctx context.Context, fragment string) error
}

type SinkFunc func(ctx context.Context, fragment string) error

func (f SinkFunc) Receive(ctx context.Context, fragment string) error {
	return f(ctx, fragment)
}

// Discard is a sink that drops every fragment.
var Discard TokenSink = SinkFunc(func(context.Context, string) error { return nil })

// AIProvider is a completion backend that can also enumerate its models.
type AIProvider interface {
	CompletionClient
	ModelLister
}
