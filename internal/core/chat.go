package core

import "context"

// Submitter runs one question/answer exchange, streaming fragments to sink.
type Submitter interface {
	Submit(ctx context.Context, req SubmitRequest, sink TokenSink) (Answer, error)
}
