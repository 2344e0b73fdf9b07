package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sandevgo/cuuri/internal/core"
	"github.com/sandevgo/cuuri/internal/service/chat"
	"github.com/sandevgo/cuuri/internal/service/ui"
)

// WriterSink prints fragments as they arrive.
type WriterSink struct {
	w io.Writer
	n int
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Receive(_ context.Context, fragment string) error {
	n, err := io.WriteString(s.w, fragment)
	s.n += n
	return err
}

// Written reports whether any fragment reached the writer.
func (s *WriterSink) Written() bool {
	return s.n > 0
}

// Ask submits one request and streams the answer to out.
func Ask(ctx context.Context, svc core.Submitter, req core.SubmitRequest, out io.Writer) (core.Answer, error) {
	sink := NewWriterSink(out)
	answer, err := svc.Submit(ctx, req, sink)
	if sink.Written() {
		fmt.Fprintln(out)
	}
	return answer, err
}

// DescribeError renders a submit failure for a terminal user.
func DescribeError(err error) string {
	var chatErr *chat.Error
	if !errors.As(err, &chatErr) {
		return ui.ErrorStyle.Render("error: " + err.Error())
	}

	switch chatErr.Kind {
	case chat.KindPersistenceFailed:
		return ui.WarnStyle.Render("answer was not saved: " + chatErr.Err.Error())
	case chat.KindStreamInterrupted:
		return ui.ErrorStyle.Render("answer incomplete, not saved: " + chatErr.Err.Error())
	case chat.KindRequestFailed:
		return ui.ErrorStyle.Render("request failed: " + chatErr.Err.Error())
	default:
		return ui.ErrorStyle.Render(err.Error())
	}
}
