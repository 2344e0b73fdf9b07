package llm

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sandevgo/cuuri/pkg/sse"
)

// Stream is an open completion response. It is not safe for concurrent use.
type Stream struct {
	body   io.ReadCloser
	rd     *sse.Reader
	cancel context.CancelCauseFunc
	once   sync.Once
}

func newStream(ctx context.Context, cancel context.CancelCauseFunc, body io.ReadCloser, idle time.Duration) *Stream {
	var src io.Reader = body
	if idle > 0 {
		src = newIdleReader(ctx, cancel, body, idle)
	}
	return &Stream{
		body:   body,
		rd:     sse.NewReader(src),
		cancel: cancel,
	}
}

// Next returns the next decoded frame. It returns io.EOF after the Done
// frame and io.ErrUnexpectedEOF when the body ends without one.
func (s *Stream) Next() (sse.Frame, error) {
	return s.rd.Next()
}

// Close releases the connection. Unread body bytes are discarded.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.body.Close()
		s.cancel(context.Canceled)
	})
	return err
}

// idleReader fails a read that makes no progress within timeout by
// cancelling the request context with ErrIdleTimeout.
type idleReader struct {
	ctx     context.Context
	r       io.Reader
	timeout time.Duration
	timer   *time.Timer
}

func newIdleReader(ctx context.Context, cancel context.CancelCauseFunc, r io.Reader, timeout time.Duration) *idleReader {
	timer := time.AfterFunc(timeout, func() { cancel(ErrIdleTimeout) })
	timer.Stop()
	return &idleReader{ctx: ctx, r: r, timeout: timeout, timer: timer}
}

func (r *idleReader) Read(p []byte) (int, error) {
	r.timer.Reset(r.timeout)
	n, err := r.r.Read(p)
	r.timer.Stop()
	if err != nil && !errors.Is(err, io.EOF) && errors.Is(context.Cause(r.ctx), ErrIdleTimeout) {
		return n, ErrIdleTimeout
	}
	return n, err
}
