package chat

import (
	"errors"
	"fmt"

	"github.com/sandevgo/cuuri/internal/core"
)

// Kind classifies why a submit was aborted.
type Kind int

const (
	KindHistoryFetchFailed Kind = iota + 1
	KindRequestFailed
	KindStreamInterrupted
	KindPersistenceFailed
)

var (
	ErrHistoryFetchFailed = errors.New("history fetch failed")
	ErrRequestFailed      = errors.New("request failed")
	ErrStreamInterrupted  = errors.New("stream interrupted")
	ErrPersistenceFailed  = errors.New("persistence failed")

	ErrInvalidInput = errors.New("invalid input")
)

func (k Kind) String() string {
	switch k {
	case KindHistoryFetchFailed:
		return "HistoryFetchFailed"
	case KindRequestFailed:
		return "RequestFailed"
	case KindStreamInterrupted:
		return "StreamInterrupted"
	case KindPersistenceFailed:
		return "PersistenceFailed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindHistoryFetchFailed:
		return ErrHistoryFetchFailed
	case KindRequestFailed:
		return ErrRequestFailed
	case KindStreamInterrupted:
		return ErrStreamInterrupted
	case KindPersistenceFailed:
		return ErrPersistenceFailed
	default:
		return nil
	}
}

// Error is returned by Submit when the pipeline aborts. Answer carries the
// text streamed before the abort; for PersistenceFailed it is the complete
// answer.
type Error struct {
	Kind   Kind
	Err    error
	Answer core.Answer
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind.String(), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Produced reports whether a complete answer was generated and shown even
// though the submit failed.
func (e *Error) Produced() bool {
	return e.Kind == KindPersistenceFailed
}

func newError(kind Kind, err error, answer core.Answer) *Error {
	return &Error{Kind: kind, Err: err, Answer: answer}
}
